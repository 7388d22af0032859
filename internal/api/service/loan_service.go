package service

import (
	"context"
	"errors"
	"time"

	"libris/internal/api/models"
	"libris/internal/api/repository"
	"libris/internal/config"
)

// Re-exported lending errors so handlers depend on the service package only.
var (
	ErrNotAvailable        = repository.ErrNotAvailable
	ErrDuplicateActiveLoan = repository.ErrDuplicateActiveLoan
	ErrNoActiveLoan        = repository.ErrNoActiveLoan
	ErrLoanLimitReached    = repository.ErrLoanLimitReached
	ErrBookNotFound        = repository.ErrBookNotFound
	ErrLoanNotFound        = repository.ErrLoanNotFound
	ErrNotLoanOwner        = repository.ErrNotLoanOwner
	ErrTxConflict          = repository.ErrTxConflict

	ErrInvalidDueDate = errors.New("due date must be in the future and within the allowed window")
)

// txRetries bounds how often a borrow/return is re-attempted after a
// serialization failure before the conflict is surfaced to the caller.
const txRetries = 3

// BorrowRequest carries a member's borrow call.
type BorrowRequest struct {
	UserID string
	BookID int64
	DueAt  *time.Time // optional override, defaults to now + loan period
	Notes  string
}

type LoanService interface {
	Borrow(ctx context.Context, req BorrowRequest) (*models.Loan, error)
	// Return closes a loan by loan ID or, when loanID is 0, by book ID.
	Return(ctx context.Context, userID string, loanID, bookID int64, isAdmin bool) (*models.Loan, error)
	Active(ctx context.Context, userID string) ([]models.Loan, error)
	History(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error)
	ListAll(ctx context.Context, f repository.LoanFilters, page, pageSize int) ([]models.Loan, int64, error)
}

type loanService struct {
	loanRepo   repository.LoanRepository
	userRepo   repository.UserRepository
	loanPeriod time.Duration
	maxDueDate time.Duration
	maxLoans   int
}

func NewLoanService(loanRepo repository.LoanRepository, userRepo repository.UserRepository, cfg *config.Config) LoanService {
	return &loanService{
		loanRepo:   loanRepo,
		userRepo:   userRepo,
		loanPeriod: cfg.LoanPeriod,
		maxDueDate: cfg.MaxDueDate,
		maxLoans:   cfg.MaxLoans,
	}
}

func (s *loanService) Borrow(ctx context.Context, req BorrowRequest) (*models.Loan, error) {
	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	now := time.Now().UTC()
	var due time.Time
	if req.DueAt != nil {
		if req.DueAt.Before(now) || req.DueAt.After(now.Add(s.maxDueDate)) {
			return nil, ErrInvalidDueDate
		}
		due = req.DueAt.UTC()
	}

	maxActive := s.maxLoans
	if user.MaxLoans > 0 {
		maxActive = user.MaxLoans
	}

	params := repository.BorrowParams{
		UserID:     req.UserID,
		BookID:     req.BookID,
		DueAt:      due,
		Notes:      req.Notes,
		MaxActive:  maxActive,
		LoanPeriod: s.loanPeriod,
	}

	var loan *models.Loan
	err = withTxRetry(func() error {
		var berr error
		loan, berr = s.loanRepo.Borrow(ctx, params)
		return berr
	})
	return loan, err
}

func (s *loanService) Return(ctx context.Context, userID string, loanID, bookID int64, isAdmin bool) (*models.Loan, error) {
	var loan *models.Loan
	err := withTxRetry(func() error {
		var rerr error
		if loanID != 0 {
			loan, rerr = s.loanRepo.Return(ctx, userID, loanID, isAdmin)
		} else {
			loan, rerr = s.loanRepo.ReturnByBook(ctx, userID, bookID)
		}
		return rerr
	})
	return loan, err
}

func (s *loanService) Active(ctx context.Context, userID string) ([]models.Loan, error) {
	return s.loanRepo.ActiveByUser(ctx, userID)
}

func (s *loanService) History(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error) {
	return s.loanRepo.HistoryByUser(ctx, userID, status, page, pageSize)
}

func (s *loanService) ListAll(ctx context.Context, f repository.LoanFilters, page, pageSize int) ([]models.Loan, int64, error) {
	return s.loanRepo.ListAll(ctx, f, page, pageSize)
}

// withTxRetry re-runs fn on retryable transaction conflicts. Domain-rule
// violations pass through untouched; they are never retried.
func withTxRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = fn()
		if err == nil || !repository.IsRetryableTxError(err) {
			return err
		}
	}
	return ErrTxConflict
}
