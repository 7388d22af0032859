package dto

import (
	"time"

	"libris/internal/api/models"
)

// BorrowRequest used for POST /api/loans/borrow
type BorrowRequest struct {
	BookID int64      `json:"book_id" binding:"required"`
	DueAt  *time.Time `json:"due_at,omitempty"` // optional, defaults to borrow time + loan period
	Notes  string     `json:"notes,omitempty"`
}

// ReturnRequest used for POST /api/loans/return; one of loan_id or book_id
// must be set.
type ReturnRequest struct {
	LoanID int64 `json:"loan_id,omitempty"`
	BookID int64 `json:"book_id,omitempty"`
}

// LoanResponse DTO for responses. Status is derived from the timestamps at
// serialization time, identically for every view.
type LoanResponse struct {
	ID         int64             `json:"id"`
	UserID     string            `json:"user_id"`
	Username   string            `json:"username,omitempty"`
	Book       *BookSummary      `json:"book,omitempty"`
	BorrowedAt time.Time         `json:"borrowed_at"`
	DueAt      time.Time         `json:"due_at"`
	ReturnedAt *time.Time        `json:"returned_at,omitempty"`
	Status     models.LoanStatus `json:"status"`
	IsOverdue  bool              `json:"is_overdue"`
	Notes      string            `json:"notes,omitempty"`
}

func FromLoanToResponse(l models.Loan, now time.Time) LoanResponse {
	resp := LoanResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		BorrowedAt: l.BorrowedAt,
		DueAt:      l.DueAt,
		ReturnedAt: l.ReturnedAt,
		Status:     l.Status(now),
		IsOverdue:  l.IsOverdue(now),
		Notes:      l.Notes,
	}
	if l.User != nil {
		resp.Username = l.User.Username
	}
	if l.Book != nil {
		summary := FromBookToSummary(*l.Book)
		resp.Book = &summary
	}
	return resp
}

func FromLoansToResponses(loans []models.Loan, now time.Time) []LoanResponse {
	resp := make([]LoanResponse, 0, len(loans))
	for _, l := range loans {
		resp = append(resp, FromLoanToResponse(l, now))
	}
	return resp
}
