package repository

import "errors"

// Domain errors shared by the GORM implementations and the in-memory fakes
// used in tests. Services wrap or re-export these; handlers map them to
// HTTP status codes.
var (
	ErrBookNotFound = errors.New("book not found")
	ErrLoanNotFound = errors.New("loan not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists covers the username and email unique indexes when a
	// concurrent registration wins the race.
	ErrUserExists = errors.New("username or email already in use")

	// Lending rule violations. Surfaced to the caller, never retried.
	ErrNotAvailable        = errors.New("book is not available for borrowing")
	ErrDuplicateActiveLoan = errors.New("user already has an active loan for this book")
	ErrNoActiveLoan        = errors.New("no active loan for this book")
	ErrLoanLimitReached    = errors.New("active loan limit reached")
	ErrNotLoanOwner        = errors.New("loan does not belong to this user")

	// Catalog rule violations.
	ErrISBNInUse          = errors.New("a book with this ISBN already exists")
	ErrCopiesOnLoan       = errors.New("total copies cannot be reduced below the number currently on loan")
	ErrBookHasActiveLoans = errors.New("book has active loans and cannot be deleted")

	// ErrTxConflict is returned after bounded retries on serialization
	// failures give up.
	ErrTxConflict = errors.New("transaction conflict, please retry")
)
