package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"libris/internal/api/models"
	"libris/internal/api/repository"
)

// store is the shared in-memory backing state for the repository fakes. The
// single mutex stands in for the database's row locking: every borrow/return
// runs its whole read-check-mutate sequence under it, exactly the atomicity
// the real transaction provides.
type store struct {
	mu         sync.Mutex
	users      map[string]*models.User
	books      map[int64]*models.Book
	loans      map[int64]*models.Loan
	tokens     map[string]*models.RefreshToken // by ID
	nextLoanID int64
}

func newStore() *store {
	return &store{
		users:  make(map[string]*models.User),
		books:  make(map[int64]*models.Book),
		loans:  make(map[int64]*models.Loan),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (s *store) addUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *store) addBook(b *models.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = b
}

func (s *store) book(id int64) models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.books[id]
}

func (s *store) user(id string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *store) setAvailable(bookID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[bookID].AvailableCopies = n
}

func (s *store) deactivateUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id].Active = false
}

// fakeUserRepo implements repository.UserRepository.
type fakeUserRepo struct{ s *store }

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	// Same unique indexes the database enforces.
	for _, u := range f.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrUserExists
		}
	}
	f.s.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	f.s.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Deactivate(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Active = false
	return nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, activeOnly *bool, page, pageSize int) ([]models.User, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var users []models.User
	for _, u := range f.s.users {
		if activeOnly != nil && u.Active != *activeOnly {
			continue
		}
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return paginate(users, page, pageSize), int64(len(users)), nil
}

// fakeBookRepo implements repository.BookRepository with the same copy
// reconciliation and delete rules as the real one.
type fakeBookRepo struct {
	s      *store
	nextID int64
}

func (f *fakeBookRepo) Create(_ context.Context, b *models.Book) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, existing := range f.s.books {
		if existing.ISBN == b.ISBN {
			return repository.ErrISBNInUse
		}
	}
	f.nextID++
	b.ID = f.nextID
	b.CreatedAt = time.Now().UTC()
	copied := *b
	f.s.books[b.ID] = &copied
	return nil
}

func (f *fakeBookRepo) GetByID(_ context.Context, id int64) (*models.Book, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookRepo) Update(_ context.Context, b *models.Book) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	current, ok := f.s.books[b.ID]
	if !ok {
		return repository.ErrBookNotFound
	}
	for id, existing := range f.s.books {
		if id != b.ID && existing.ISBN == b.ISBN {
			return repository.ErrISBNInUse
		}
	}
	borrowed := current.BorrowedCopies()
	if b.TotalCopies < borrowed {
		return repository.ErrCopiesOnLoan
	}
	b.AvailableCopies = b.TotalCopies - borrowed
	b.CreatedAt = current.CreatedAt
	copied := *b
	f.s.books[b.ID] = &copied
	return nil
}

func (f *fakeBookRepo) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	b, ok := f.s.books[id]
	if !ok {
		return repository.ErrBookNotFound
	}
	if b.BorrowedCopies() > 0 {
		return repository.ErrBookHasActiveLoans
	}
	for loanID, l := range f.s.loans {
		if l.BookID == id {
			delete(f.s.loans, loanID)
		}
	}
	delete(f.s.books, id)
	return nil
}

func (f *fakeBookRepo) List(_ context.Context, filters repository.BookFilters, page, pageSize int) ([]models.Book, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var books []models.Book
	for _, b := range f.s.books {
		if matchesBookFilters(b, filters) {
			books = append(books, *b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return paginate(books, page, pageSize), int64(len(books)), nil
}

func matchesBookFilters(b *models.Book, f repository.BookFilters) bool {
	contains := func(haystack, needle string) bool {
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	}
	if f.Title != "" && !contains(b.Title, f.Title) {
		return false
	}
	if f.Author != "" && !contains(b.Author, f.Author) {
		return false
	}
	if f.ISBN != "" && b.ISBN != f.ISBN {
		return false
	}
	if f.Genre != "" && b.Genre != f.Genre {
		return false
	}
	if f.Available != nil && b.IsAvailable() != *f.Available {
		return false
	}
	for _, token := range strings.Fields(f.Search) {
		if !contains(b.Title, token) && !contains(b.Author, token) && !contains(b.ISBN, token) {
			return false
		}
	}
	return true
}

// fakeLoanRepo implements repository.LoanRepository.
type fakeLoanRepo struct{ s *store }

func (f *fakeLoanRepo) Borrow(_ context.Context, p repository.BorrowParams) (*models.Loan, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	book, ok := f.s.books[p.BookID]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	if book.AvailableCopies <= 0 {
		return nil, repository.ErrNotAvailable
	}

	held := 0
	for _, l := range f.s.loans {
		if l.UserID == p.UserID && l.ReturnedAt == nil {
			if l.BookID == p.BookID {
				return nil, repository.ErrDuplicateActiveLoan
			}
			held++
		}
	}
	if p.MaxActive > 0 && held >= p.MaxActive {
		return nil, repository.ErrLoanLimitReached
	}

	now := time.Now().UTC()
	due := p.DueAt
	if due.IsZero() {
		due = now.Add(p.LoanPeriod)
	}

	f.s.nextLoanID++
	loan := &models.Loan{
		ID:         f.s.nextLoanID,
		UserID:     p.UserID,
		BookID:     p.BookID,
		BorrowedAt: now,
		DueAt:      due,
		Notes:      p.Notes,
	}
	f.s.loans[loan.ID] = loan
	book.AvailableCopies--

	return f.loanCopy(loan), nil
}

func (f *fakeLoanRepo) Return(_ context.Context, userID string, loanID int64, isAdmin bool) (*models.Loan, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	loan, ok := f.s.loans[loanID]
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	if !isAdmin && loan.UserID != userID {
		return nil, repository.ErrNotLoanOwner
	}
	return f.closeLoan(loan)
}

func (f *fakeLoanRepo) ReturnByBook(_ context.Context, userID string, bookID int64) (*models.Loan, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for _, loan := range f.s.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.ReturnedAt == nil {
			return f.closeLoan(loan)
		}
	}
	return nil, repository.ErrNoActiveLoan
}

// closeLoan must run under s.mu.
func (f *fakeLoanRepo) closeLoan(loan *models.Loan) (*models.Loan, error) {
	if loan.ReturnedAt != nil {
		return nil, repository.ErrNoActiveLoan
	}
	now := time.Now().UTC()
	loan.ReturnedAt = &now
	if book, ok := f.s.books[loan.BookID]; ok && book.AvailableCopies < book.TotalCopies {
		book.AvailableCopies++
	}
	return f.loanCopy(loan), nil
}

func (f *fakeLoanRepo) loanCopy(loan *models.Loan) *models.Loan {
	copied := *loan
	if book, ok := f.s.books[loan.BookID]; ok {
		b := *book
		copied.Book = &b
	}
	if user, ok := f.s.users[loan.UserID]; ok {
		u := *user
		copied.User = &u
	}
	return &copied
}

func (f *fakeLoanRepo) GetByID(_ context.Context, id int64) (*models.Loan, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	loan, ok := f.s.loans[id]
	if !ok {
		return nil, repository.ErrLoanNotFound
	}
	return f.loanCopy(loan), nil
}

func (f *fakeLoanRepo) ActiveByUser(_ context.Context, userID string) ([]models.Loan, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var loans []models.Loan
	for _, l := range f.s.loans {
		if l.UserID == userID && l.ReturnedAt == nil {
			loans = append(loans, *f.loanCopy(l))
		}
	}
	sortLoans(loans)
	return loans, nil
}

func (f *fakeLoanRepo) HistoryByUser(_ context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	now := time.Now().UTC()
	var loans []models.Loan
	for _, l := range f.s.loans {
		if l.UserID != userID {
			continue
		}
		if status != "" && l.Status(now) != status {
			continue
		}
		loans = append(loans, *f.loanCopy(l))
	}
	sortLoans(loans)
	return paginate(loans, page, pageSize), int64(len(loans)), nil
}

func (f *fakeLoanRepo) ListAll(_ context.Context, filters repository.LoanFilters, page, pageSize int) ([]models.Loan, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	now := time.Now().UTC()
	var loans []models.Loan
	for _, l := range f.s.loans {
		if filters.UserID != "" && l.UserID != filters.UserID {
			continue
		}
		if filters.BookID != 0 && l.BookID != filters.BookID {
			continue
		}
		if filters.Status != "" && l.Status(now) != filters.Status {
			continue
		}
		copied := f.loanCopy(l)
		if !f.matchesLoanSearch(copied, filters.Search) {
			continue
		}
		loans = append(loans, *copied)
	}
	sortLoans(loans)
	return paginate(loans, page, pageSize), int64(len(loans)), nil
}

// matchesLoanSearch mirrors the token search over borrower username and the
// book's title/isbn.
func (f *fakeLoanRepo) matchesLoanSearch(loan *models.Loan, search string) bool {
	for _, token := range strings.Fields(search) {
		token = strings.ToLower(token)
		hit := false
		if loan.User != nil && strings.Contains(strings.ToLower(loan.User.Username), token) {
			hit = true
		}
		if loan.Book != nil {
			if strings.Contains(strings.ToLower(loan.Book.Title), token) ||
				strings.Contains(strings.ToLower(loan.Book.ISBN), token) {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (f *fakeLoanRepo) CountActiveByUser(_ context.Context, userID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var count int64
	for _, l := range f.s.loans {
		if l.UserID == userID && l.ReturnedAt == nil {
			count++
		}
	}
	return count, nil
}

// fakeTokenRepo implements repository.RefreshTokenRepository.
type fakeTokenRepo struct{ s *store }

func (f *fakeTokenRepo) Create(_ context.Context, token *models.RefreshToken) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.tokens[token.ID] = token
	return nil
}

func (f *fakeTokenRepo) FindByToken(_ context.Context, tokenString string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.tokens {
		if t.Token == tokenString && !t.Revoked {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeTokenRepo) Revoke(_ context.Context, tokenID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if t, ok := f.s.tokens[tokenID]; ok {
		t.Revoked = true
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, t := range f.s.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeTokenRepo) Delete(_ context.Context, tokenID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.tokens, tokenID)
	return nil
}

// fakeDenylist implements repository.TokenDenylist in memory.
type fakeDenylist struct {
	mu   sync.Mutex
	jtis map[string]bool
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{jtis: make(map[string]bool)}
}

func (f *fakeDenylist) Add(_ context.Context, jti string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jtis[jti] = true
	return nil
}

func (f *fakeDenylist) Contains(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jtis[jti], nil
}

func sortLoans(loans []models.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].BorrowedAt.Equal(loans[j].BorrowedAt) {
			return loans[i].ID > loans[j].ID
		}
		return loans[i].BorrowedAt.After(loans[j].BorrowedAt)
	})
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
