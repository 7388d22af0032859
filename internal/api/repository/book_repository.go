package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"libris/internal/api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookFilters narrows the catalog listing. Zero values mean "no filter".
type BookFilters struct {
	Title           string // case-insensitive partial match
	Author          string // case-insensitive partial match
	ISBN            string // exact match
	Genre           string
	Available       *bool // true: available_copies > 0; false: == 0
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
	MinPages        *int
	MaxPages        *int
	Search          string // free-text token search over title/author/isbn
	SortBy          string // title, author, published_date, created_at
	SortDesc        bool
}

type BookRepository interface {
	Create(ctx context.Context, b *models.Book) error
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	Update(ctx context.Context, b *models.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filters BookFilters, page, pageSize int) ([]models.Book, int64, error)
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrISBNInUse
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Update saves catalog edits. It runs inside a transaction holding the book
// row lock so a copy-count reconciliation cannot race a concurrent borrow.
// b.AvailableCopies is ignored: the new availability is derived from the new
// total while preserving the number of copies currently on loan.
func (r *bookRepository) Update(ctx context.Context, b *models.Book) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, b.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if err := reconcileCopies(&current, b); err != nil {
			return err
		}
		b.CreatedAt = current.CreatedAt

		if err := tx.Save(b).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrISBNInUse
			}
			return fmt.Errorf("update book: %w", err)
		}
		return nil
	})
}

// Delete removes a book and its loan history (admin operation). Books with
// copies still out on loan cannot be deleted.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}
		if current.BorrowedCopies() > 0 {
			return ErrBookHasActiveLoans
		}
		if err := tx.Where("book_id = ?", id).Delete(&models.Loan{}).Error; err != nil {
			return fmt.Errorf("delete loans for book: %w", err)
		}
		if err := tx.Delete(&models.Book{}, id).Error; err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

func (r *bookRepository) List(ctx context.Context, filters BookFilters, page, pageSize int) ([]models.Book, int64, error) {
	var list []models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	query = applyBookFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.
		Order(bookOrderClause(filters)).
		Limit(pageSize).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// reconcileCopies derives the new availability for a catalog edit from the
// updated total while preserving the number of copies on loan. An edit that
// would leave fewer copies than are currently borrowed is rejected.
func reconcileCopies(current, updated *models.Book) error {
	borrowed := current.BorrowedCopies()
	if updated.TotalCopies < borrowed {
		return ErrCopiesOnLoan
	}
	updated.AvailableCopies = updated.TotalCopies - borrowed
	return nil
}

func applyBookFilters(query *gorm.DB, f BookFilters) *gorm.DB {
	if f.Title != "" {
		query = query.Where("title ILIKE ?", "%"+f.Title+"%")
	}
	if f.Author != "" {
		query = query.Where("author ILIKE ?", "%"+f.Author+"%")
	}
	if f.ISBN != "" {
		query = query.Where("isbn = ?", f.ISBN)
	}
	if f.Genre != "" {
		query = query.Where("genre = ?", f.Genre)
	}
	if f.Available != nil {
		if *f.Available {
			query = query.Where("available_copies > 0")
		} else {
			query = query.Where("available_copies = 0")
		}
	}
	if f.PublishedAfter != nil {
		query = query.Where("published_date >= ?", *f.PublishedAfter)
	}
	if f.PublishedBefore != nil {
		query = query.Where("published_date <= ?", *f.PublishedBefore)
	}
	if f.MinPages != nil {
		query = query.Where("page_count >= ?", *f.MinPages)
	}
	if f.MaxPages != nil {
		query = query.Where("page_count <= ?", *f.MaxPages)
	}

	// Free-text search: each token must appear in at least one of
	// title/author/isbn, like "one piece oda" ->
	// (title ILIKE '%one%' OR author ILIKE '%one%' OR isbn ILIKE '%one%') AND ...
	if tokens := strings.Fields(f.Search); len(tokens) > 0 {
		clauses := make([]string, 0, len(tokens))
		args := make([]interface{}, 0, len(tokens)*3)
		for _, t := range tokens {
			p := "%" + t + "%"
			clauses = append(clauses, "(title ILIKE ? OR author ILIKE ? OR isbn ILIKE ?)")
			args = append(args, p, p, p)
		}
		query = query.Where(strings.Join(clauses, " AND "), args...)
	}

	return query
}

// bookOrderClause whitelists sortable columns; anything else falls back to
// title ordering.
func bookOrderClause(f BookFilters) string {
	col := "title"
	switch f.SortBy {
	case "title", "author", "published_date", "created_at", "page_count":
		col = f.SortBy
	}
	if f.SortDesc {
		return col + " desc"
	}
	return col + " asc"
}
