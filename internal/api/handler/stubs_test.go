package handler

import (
	"context"
	"errors"
	"time"

	"libris/internal/api/models"
	"libris/internal/api/repository"
	"libris/internal/api/service"
	"libris/internal/config"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{PageSize: 20, MaxPageSize: 100}
}

// Bearer tokens recognised by the stub auth service.
const (
	memberToken = "member-token"
	adminToken  = "admin-token"
)

var errStubNotConfigured = errors.New("stub behavior not configured")

// stubAuthService resolves the two well-known test tokens and delegates
// everything else to optional function fields.
type stubAuthService struct {
	registerFn func(ctx context.Context, username, password, email string) (*models.User, string, string, error)
	loginFn    func(ctx context.Context, username, password string) (string, string, *models.User, error)
	refreshFn  func(ctx context.Context, refreshToken string) (string, string, error)
	logoutFn   func(ctx context.Context, accessToken, refreshToken string) error
	profileFn  func(ctx context.Context, userID string) (*models.User, error)
	updateFn   func(ctx context.Context, user *models.User) error
}

func (s *stubAuthService) ValidateToken(_ context.Context, token string) (*service.TokenClaims, error) {
	switch token {
	case memberToken:
		return &service.TokenClaims{UserID: "member-1", Username: "alice", Role: models.RoleMember}, nil
	case adminToken:
		return &service.TokenClaims{UserID: "admin-1", Username: "root", Role: models.RoleAdmin}, nil
	}
	return nil, service.ErrInvalidToken
}

func (s *stubAuthService) Register(ctx context.Context, username, password, email string) (*models.User, string, string, error) {
	if s.registerFn == nil {
		return nil, "", "", errStubNotConfigured
	}
	return s.registerFn(ctx, username, password, email)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, string, *models.User, error) {
	if s.loginFn == nil {
		return "", "", nil, errStubNotConfigured
	}
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, string, error) {
	if s.refreshFn == nil {
		return "", "", errStubNotConfigured
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if s.logoutFn == nil {
		return errStubNotConfigured
	}
	return s.logoutFn(ctx, accessToken, refreshToken)
}

func (s *stubAuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	if s.profileFn == nil {
		return nil, errStubNotConfigured
	}
	return s.profileFn(ctx, userID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, user *models.User) error {
	if s.updateFn == nil {
		return errStubNotConfigured
	}
	return s.updateFn(ctx, user)
}

func (s *stubAuthService) AccessTokenTTL() time.Duration { return 15 * time.Minute }

// stubBookService delegates to function fields.
type stubBookService struct {
	getFn    func(ctx context.Context, id int64) (*models.Book, error)
	listFn   func(ctx context.Context, filters repository.BookFilters, page, pageSize int) ([]models.Book, int64, error)
	createFn func(ctx context.Context, b *models.Book) error
	updateFn func(ctx context.Context, id int64, b *models.Book) error
	deleteFn func(ctx context.Context, id int64) error
}

func (s *stubBookService) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	if s.getFn == nil {
		return nil, errStubNotConfigured
	}
	return s.getFn(ctx, id)
}

func (s *stubBookService) List(ctx context.Context, filters repository.BookFilters, page, pageSize int) ([]models.Book, int64, error) {
	if s.listFn == nil {
		return nil, 0, errStubNotConfigured
	}
	return s.listFn(ctx, filters, page, pageSize)
}

func (s *stubBookService) Create(ctx context.Context, b *models.Book) error {
	if s.createFn == nil {
		return errStubNotConfigured
	}
	return s.createFn(ctx, b)
}

func (s *stubBookService) Update(ctx context.Context, id int64, b *models.Book) error {
	if s.updateFn == nil {
		return errStubNotConfigured
	}
	return s.updateFn(ctx, id, b)
}

func (s *stubBookService) Delete(ctx context.Context, id int64) error {
	if s.deleteFn == nil {
		return errStubNotConfigured
	}
	return s.deleteFn(ctx, id)
}

// stubLoanService delegates to function fields.
type stubLoanService struct {
	borrowFn  func(ctx context.Context, req service.BorrowRequest) (*models.Loan, error)
	returnFn  func(ctx context.Context, userID string, loanID, bookID int64, isAdmin bool) (*models.Loan, error)
	activeFn  func(ctx context.Context, userID string) ([]models.Loan, error)
	historyFn func(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error)
	listFn    func(ctx context.Context, f repository.LoanFilters, page, pageSize int) ([]models.Loan, int64, error)
}

func (s *stubLoanService) Borrow(ctx context.Context, req service.BorrowRequest) (*models.Loan, error) {
	if s.borrowFn == nil {
		return nil, errStubNotConfigured
	}
	return s.borrowFn(ctx, req)
}

func (s *stubLoanService) Return(ctx context.Context, userID string, loanID, bookID int64, isAdmin bool) (*models.Loan, error) {
	if s.returnFn == nil {
		return nil, errStubNotConfigured
	}
	return s.returnFn(ctx, userID, loanID, bookID, isAdmin)
}

func (s *stubLoanService) Active(ctx context.Context, userID string) ([]models.Loan, error) {
	if s.activeFn == nil {
		return nil, errStubNotConfigured
	}
	return s.activeFn(ctx, userID)
}

func (s *stubLoanService) History(ctx context.Context, userID string, status models.LoanStatus, page, pageSize int) ([]models.Loan, int64, error) {
	if s.historyFn == nil {
		return nil, 0, errStubNotConfigured
	}
	return s.historyFn(ctx, userID, status, page, pageSize)
}

func (s *stubLoanService) ListAll(ctx context.Context, f repository.LoanFilters, page, pageSize int) ([]models.Loan, int64, error) {
	if s.listFn == nil {
		return nil, 0, errStubNotConfigured
	}
	return s.listFn(ctx, f, page, pageSize)
}

// stubUserService delegates to function fields.
type stubUserService struct {
	listFn       func(ctx context.Context, activeOnly *bool, page, pageSize int) ([]models.User, int64, error)
	getFn        func(ctx context.Context, id string) (*models.User, error)
	countFn      func(ctx context.Context, id string) (int64, error)
	updateFn     func(ctx context.Context, user *models.User) error
	deactivateFn func(ctx context.Context, id string) error
}

func (s *stubUserService) ActiveLoanCount(ctx context.Context, id string) (int64, error) {
	if s.countFn == nil {
		return 0, errStubNotConfigured
	}
	return s.countFn(ctx, id)
}

func (s *stubUserService) List(ctx context.Context, activeOnly *bool, page, pageSize int) ([]models.User, int64, error) {
	if s.listFn == nil {
		return nil, 0, errStubNotConfigured
	}
	return s.listFn(ctx, activeOnly, page, pageSize)
}

func (s *stubUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.getFn == nil {
		return nil, errStubNotConfigured
	}
	return s.getFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, user *models.User) error {
	if s.updateFn == nil {
		return errStubNotConfigured
	}
	return s.updateFn(ctx, user)
}

func (s *stubUserService) Deactivate(ctx context.Context, id string) error {
	if s.deactivateFn == nil {
		return errStubNotConfigured
	}
	return s.deactivateFn(ctx, id)
}
