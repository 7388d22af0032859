package dto

import (
	"time"

	"libris/internal/api/models"
)

// CreateBookRequest used for POST /api/books
type CreateBookRequest struct {
	Title         string    `json:"title" binding:"required"`
	Author        string    `json:"author" binding:"required"`
	ISBN          string    `json:"isbn" binding:"required"`
	Genre         string    `json:"genre,omitempty"`
	PublishedDate time.Time `json:"published_date" binding:"required"`
	PageCount     int       `json:"page_count" binding:"required,min=1"`
	Description   string    `json:"description,omitempty"`
	CoverURL      *string   `json:"cover_url,omitempty"`
	TotalCopies   int       `json:"total_copies" binding:"required,min=1"`
}

// UpdateBookRequest used for PUT /api/books/:book_id (partial updates allowed).
// available_copies is absent on purpose: it is owned by the loan workflow.
type UpdateBookRequest struct {
	Title         *string    `json:"title,omitempty"`
	Author        *string    `json:"author,omitempty"`
	ISBN          *string    `json:"isbn,omitempty"`
	Genre         *string    `json:"genre,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	PageCount     *int       `json:"page_count,omitempty"`
	Description   *string    `json:"description,omitempty"`
	CoverURL      *string    `json:"cover_url,omitempty"`
	TotalCopies   *int       `json:"total_copies,omitempty"`
}

// BookResponse DTO for responses
type BookResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Genre           string    `json:"genre"`
	PublishedDate   time.Time `json:"published_date"`
	PageCount       int       `json:"page_count"`
	Description     string    `json:"description,omitempty"`
	CoverURL        *string   `json:"cover_url,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	IsAvailable     bool      `json:"is_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookSummary is the compact shape embedded in loan responses and lists.
type BookSummary struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	AvailableCopies int    `json:"available_copies"`
	IsAvailable     bool   `json:"is_available"`
}

// Converters
func (d CreateBookRequest) ToModel() models.Book {
	return models.Book{
		Title:         d.Title,
		Author:        d.Author,
		ISBN:          d.ISBN,
		Genre:         d.Genre,
		PublishedDate: d.PublishedDate,
		PageCount:     d.PageCount,
		Description:   d.Description,
		CoverURL:      d.CoverURL,
		TotalCopies:   d.TotalCopies,
	}
}

func (d UpdateBookRequest) ApplyTo(b *models.Book) {
	if d.Title != nil {
		b.Title = *d.Title
	}
	if d.Author != nil {
		b.Author = *d.Author
	}
	if d.ISBN != nil {
		b.ISBN = *d.ISBN
	}
	if d.Genre != nil {
		b.Genre = *d.Genre
	}
	if d.PublishedDate != nil {
		b.PublishedDate = *d.PublishedDate
	}
	if d.PageCount != nil {
		b.PageCount = *d.PageCount
	}
	if d.Description != nil {
		b.Description = *d.Description
	}
	if d.CoverURL != nil {
		b.CoverURL = d.CoverURL
	}
	if d.TotalCopies != nil {
		b.TotalCopies = *d.TotalCopies
	}
}

func FromBookToResponse(b models.Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		PublishedDate:   b.PublishedDate,
		PageCount:       b.PageCount,
		Description:     b.Description,
		CoverURL:        b.CoverURL,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		IsAvailable:     b.IsAvailable(),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func FromBookToSummary(b models.Book) BookSummary {
	return BookSummary{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		AvailableCopies: b.AvailableCopies,
		IsAvailable:     b.IsAvailable(),
	}
}
