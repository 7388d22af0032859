package models

import "time"

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanOverdue  LoanStatus = "overdue"
	LoanReturned LoanStatus = "returned"
)

// Loan links a user to a borrowed book copy. Loans are never deleted;
// returning sets ReturnedAt and the row stays as history.
type Loan struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string     `gorm:"type:uuid;not null;index:idx_loans_user_returned" json:"user_id"`
	BookID     int64      `gorm:"not null;index:idx_loans_book_returned" json:"book_id"`
	BorrowedAt time.Time  `gorm:"not null" json:"borrowed_at"`
	DueAt      time.Time  `gorm:"not null;index" json:"due_at"`
	ReturnedAt *time.Time `gorm:"index:idx_loans_user_returned;index:idx_loans_book_returned" json:"returned_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`

	// Associations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// Status derives the loan state from its timestamps. There is no stored
// status column; every serializer path must go through this so the
// derivation cannot drift between views.
func (l *Loan) Status(now time.Time) LoanStatus {
	if l.ReturnedAt != nil {
		return LoanReturned
	}
	if now.After(l.DueAt) {
		return LoanOverdue
	}
	return LoanActive
}

// IsActive reports whether the loan has not been returned yet. Overdue
// loans still count as active holdings.
func (l *Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// IsOverdue reports whether the loan is past due and unreturned.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.Status(now) == LoanOverdue
}
