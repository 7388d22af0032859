package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"libris/internal/api/models"
	"libris/internal/api/repository"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrAuthorRequired = errors.New("author is required")
	ErrInvalidISBN    = errors.New("isbn must be 10 or 13 digits")
	ErrInvalidGenre   = errors.New("invalid genre")
	ErrInvalidPages   = errors.New("page count must be at least 1")
	ErrInvalidCopies  = errors.New("total copies must be at least 1")
)

var isbnPattern = regexp.MustCompile(`^\d{10}(\d{3})?$`)

type BookService interface {
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	List(ctx context.Context, filters repository.BookFilters, page, pageSize int) ([]models.Book, int64, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, id int64, b *models.Book) error
	Delete(ctx context.Context, id int64) error
}

type bookService struct {
	repo repository.BookRepository
}

func NewBookService(r repository.BookRepository) BookService {
	return &bookService{repo: r}
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *bookService) List(ctx context.Context, filters repository.BookFilters, page, pageSize int) ([]models.Book, int64, error) {
	return s.repo.List(ctx, filters, page, pageSize)
}

func (s *bookService) Create(ctx context.Context, b *models.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	// new books start fully on the shelf
	b.AvailableCopies = b.TotalCopies
	return s.repo.Create(ctx, b)
}

// Update applies a full catalog edit. available_copies is never taken from
// the caller; the repository reconciles it from the new total while
// preserving the borrowed count.
func (s *bookService) Update(ctx context.Context, id int64, b *models.Book) error {
	if err := validateBook(b); err != nil {
		return err
	}
	b.ID = id
	return s.repo.Update(ctx, b)
}

func (s *bookService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func validateBook(b *models.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.ISBN = strings.TrimSpace(b.ISBN)

	if b.Title == "" {
		return ErrTitleRequired
	}
	if b.Author == "" {
		return ErrAuthorRequired
	}
	if !isbnPattern.MatchString(b.ISBN) {
		return ErrInvalidISBN
	}
	if b.Genre == "" {
		b.Genre = "other"
	}
	if !models.ValidGenre(b.Genre) {
		return ErrInvalidGenre
	}
	if b.PageCount < 1 {
		return ErrInvalidPages
	}
	if b.TotalCopies < 1 {
		return ErrInvalidCopies
	}
	return nil
}
