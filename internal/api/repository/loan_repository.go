package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"libris/internal/api/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BorrowParams carries the inputs for a borrow transaction.
type BorrowParams struct {
	UserID     string
	BookID     int64
	DueAt      time.Time // zero means Now + loan period, resolved by the service
	Notes      string
	MaxActive  int // cap on simultaneous active loans for this user
	LoanPeriod time.Duration
}

// LoanFilters narrows the admin loan listing. Zero values mean no filter.
type LoanFilters struct {
	Status models.LoanStatus
	UserID string
	BookID int64
	Search string // free-text token search over borrower username/title/isbn
}

type LoanRepository interface {
	// Borrow creates a loan and decrements the book's available copies as
	// one atomic transaction holding an exclusive lock on the book row.
	Borrow(ctx context.Context, p BorrowParams) (*models.Loan, error)

	// Return closes the user's active loan identified by loan ID and
	// increments the book's available copies, symmetric to Borrow.
	// Admins may return on behalf of any user (isAdmin bypasses the
	// ownership check).
	Return(ctx context.Context, userID string, loanID int64, isAdmin bool) (*models.Loan, error)

	// ReturnByBook closes the user's active loan for the given book.
	ReturnByBook(ctx context.Context, userID string, bookID int64) (*models.Loan, error)

	GetByID(ctx context.Context, id int64) (*models.Loan, error)
	ActiveByUser(ctx context.Context, userID string) ([]models.Loan, error)
	HistoryByUser(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error)
	ListAll(ctx context.Context, f LoanFilters, page, pageSize int) ([]models.Loan, int64, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Borrow(ctx context.Context, p BorrowParams) (*models.Loan, error) {
	var loan *models.Loan

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the book row for the whole read-check-mutate sequence so
		// two concurrent borrows cannot both see the last copy.
		var book models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, p.BookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if book.AvailableCopies <= 0 {
			return ErrNotAvailable
		}

		var active int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND book_id = ? AND returned_at IS NULL", p.UserID, p.BookID).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrDuplicateActiveLoan
		}

		if p.MaxActive > 0 {
			// The book lock alone cannot enforce the cap: two borrows of
			// different books by the same user hold different book rows.
			// Locking the user row serializes the count per borrower.
			var borrower models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&borrower, "id = ?", p.UserID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return err
			}

			var held int64
			if err := tx.Model(&models.Loan{}).
				Where("user_id = ? AND returned_at IS NULL", p.UserID).
				Count(&held).Error; err != nil {
				return err
			}
			if held >= int64(p.MaxActive) {
				return ErrLoanLimitReached
			}
		}

		now := time.Now().UTC()
		due := p.DueAt
		if due.IsZero() {
			due = now.Add(p.LoanPeriod)
		}

		loan = &models.Loan{
			UserID:     p.UserID,
			BookID:     p.BookID,
			BorrowedAt: now,
			DueAt:      due,
			Notes:      p.Notes,
		}
		if err := tx.Create(loan).Error; err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		if err := tx.Model(&models.Book{}).
			Where("id = ?", p.BookID).
			Update("available_copies", gorm.Expr("available_copies - 1")).Error; err != nil {
			return fmt.Errorf("decrement availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, loan.ID)
}

func (r *loanRepository) Return(ctx context.Context, userID string, loanID int64, isAdmin bool) (*models.Loan, error) {
	var returned *models.Loan

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the loan row first so a double-submitted return blocks here
		// and re-reads committed state; without it the ReturnedAt guard in
		// closeLoan would evaluate a pre-lock snapshot.
		var loan models.Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&loan, loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if !isAdmin && loan.UserID != userID {
			return ErrNotLoanOwner
		}
		return r.closeLoan(tx, &loan)
	})
	if err != nil {
		return nil, err
	}
	returned, err = r.GetByID(ctx, loanID)
	return returned, err
}

func (r *loanRepository) ReturnByBook(ctx context.Context, userID string, bookID int64) (*models.Loan, error) {
	var loanID int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locked read: a concurrent return of the same loan either blocks
		// here or excludes the row once returned_at is committed.
		var loan models.Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND book_id = ? AND returned_at IS NULL", userID, bookID).
			First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveLoan
			}
			return err
		}
		loanID = loan.ID
		return r.closeLoan(tx, &loan)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, loanID)
}

// closeLoan stamps the return and gives the copy back, holding the book row
// lock for the duration. Must run inside tx with the loan row already locked
// (lock order is loan, then book) so the ReturnedAt guard is authoritative.
func (r *loanRepository) closeLoan(tx *gorm.DB, loan *models.Loan) error {
	if loan.ReturnedAt != nil {
		return ErrNoActiveLoan
	}

	var book models.Book
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, loan.BookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}

	now := time.Now().UTC()
	loan.ReturnedAt = &now
	if err := tx.Save(loan).Error; err != nil {
		return fmt.Errorf("close loan: %w", err)
	}

	// Never push availability past total_copies.
	if book.AvailableCopies < book.TotalCopies {
		if err := tx.Model(&models.Book{}).
			Where("id = ?", book.ID).
			Update("available_copies", gorm.Expr("available_copies + 1")).Error; err != nil {
			return fmt.Errorf("increment availability: %w", err)
		}
	}
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).Preload("Book").Preload("User").First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) ActiveByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	var loans []models.Loan
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ? AND returned_at IS NULL", userID).
		Order("borrowed_at desc").
		Find(&loans).Error; err != nil {
		return nil, fmt.Errorf("active loans: %w", err)
	}
	return loans, nil
}

func (r *loanRepository) HistoryByUser(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{}).Where("user_id = ?", userID)
	query = applyStatusFilter(query, status)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.
		Preload("Book").
		Order("borrowed_at desc").
		Limit(pageSize).
		Offset(offset).
		Find(&loans).Error; err != nil {
		return nil, 0, fmt.Errorf("loan history: %w", err)
	}
	return loans, total, nil
}

func (r *loanRepository) ListAll(ctx context.Context, f LoanFilters, page, pageSize int) ([]models.Loan, int64, error) {
	var loans []models.Loan
	var total int64

	query := applyLoanFilters(r.db.WithContext(ctx).Model(&models.Loan{}), f)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.
		Preload("Book").
		Preload("User").
		Order("loans.borrowed_at desc").
		Limit(pageSize).
		Offset(offset).
		Find(&loans).Error; err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	return loans, total, nil
}

func applyLoanFilters(query *gorm.DB, f LoanFilters) *gorm.DB {
	if f.UserID != "" {
		query = query.Where("loans.user_id = ?", f.UserID)
	}
	if f.BookID != 0 {
		query = query.Where("loans.book_id = ?", f.BookID)
	}
	query = applyStatusFilter(query, f.Status)

	// Search spans the joined borrower and book, so the tokens match
	// "who has what": username, title or isbn.
	if tokens := strings.Fields(f.Search); len(tokens) > 0 {
		query = query.
			Joins("JOIN users ON users.id = loans.user_id").
			Joins("JOIN books ON books.id = loans.book_id")
		clauses := make([]string, 0, len(tokens))
		args := make([]interface{}, 0, len(tokens)*3)
		for _, t := range tokens {
			p := "%" + t + "%"
			clauses = append(clauses, "(users.username ILIKE ? OR books.title ILIKE ? OR books.isbn ILIKE ?)")
			args = append(args, p, p, p)
		}
		query = query.Where(strings.Join(clauses, " AND "), args...)
	}
	return query
}

func (r *loanRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND returned_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// applyStatusFilter translates a derived status into a timestamp predicate,
// the same derivation models.Loan.Status uses.
func applyStatusFilter(query *gorm.DB, status models.LoanStatus) *gorm.DB {
	switch status {
	case models.LoanActive:
		return query.Where("returned_at IS NULL AND due_at >= ?", time.Now().UTC())
	case models.LoanOverdue:
		return query.Where("returned_at IS NULL AND due_at < ?", time.Now().UTC())
	case models.LoanReturned:
		return query.Where("returned_at IS NOT NULL")
	}
	return query
}

// IsRetryableTxError reports whether err is a Postgres serialization failure
// or deadlock that a fresh transaction attempt may resolve.
func IsRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
