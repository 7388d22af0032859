package models

import "time"

// Genres accepted by the catalog.
var Genres = []string{
	"fiction", "non-fiction", "mystery", "romance", "science-fiction",
	"fantasy", "thriller", "biography", "history", "science",
	"technology", "self-help", "children", "other",
}

type Book struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title         string    `json:"title" gorm:"not null;index"`
	Author        string    `json:"author" gorm:"not null;index"`
	ISBN          string    `json:"isbn" gorm:"uniqueIndex;size:13;not null"`
	Genre         string    `json:"genre" gorm:"default:'other';index"`
	PublishedDate time.Time `json:"published_date" gorm:"type:date"`
	PageCount     int       `json:"page_count" gorm:"not null"`
	Description   string    `json:"description,omitempty"`
	CoverURL      *string   `json:"cover_url,omitempty"`

	// AvailableCopies is mutated only by loan borrow/return transitions,
	// never directly by catalog edits. Invariant: 0 <= available <= total.
	TotalCopies     int `json:"total_copies" gorm:"not null;default:1"`
	AvailableCopies int `json:"available_copies" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// IsAvailable reports whether the book has copies left to lend.
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// BorrowedCopies is the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// ValidGenre reports whether g is one of the accepted catalog genres.
func ValidGenre(g string) bool {
	for _, genre := range Genres {
		if g == genre {
			return true
		}
	}
	return false
}
