package service

import (
	"context"
	"errors"

	"libris/internal/api/models"
	"libris/internal/api/repository"
)

var ErrInvalidRole = errors.New("role must be member or admin")

// UserService backs the admin user-management endpoints. Accounts are only
// ever soft-deactivated, never hard-deleted.
type UserService interface {
	List(ctx context.Context, activeOnly *bool, page, pageSize int) ([]models.User, int64, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	ActiveLoanCount(ctx context.Context, id string) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
}

type userService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	loanRepo         repository.LoanRepository
}

func NewUserService(userRepo repository.UserRepository, refreshTokenRepo repository.RefreshTokenRepository, loanRepo repository.LoanRepository) UserService {
	return &userService{userRepo: userRepo, refreshTokenRepo: refreshTokenRepo, loanRepo: loanRepo}
}

func (s *userService) List(ctx context.Context, activeOnly *bool, page, pageSize int) ([]models.User, int64, error) {
	return s.userRepo.List(ctx, activeOnly, page, pageSize)
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// ActiveLoanCount is the number of loans the user currently holds, shown on
// the admin detail view.
func (s *userService) ActiveLoanCount(ctx context.Context, id string) (int64, error) {
	return s.loanRepo.CountActiveByUser(ctx, id)
}

func (s *userService) Update(ctx context.Context, user *models.User) error {
	if user.Role != models.RoleMember && user.Role != models.RoleAdmin {
		return ErrInvalidRole
	}
	return s.userRepo.Update(ctx, user)
}

// Deactivate disables the account and revokes its outstanding refresh
// tokens so it cannot mint new access tokens.
func (s *userService) Deactivate(ctx context.Context, id string) error {
	if err := s.userRepo.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.refreshTokenRepo.RevokeAllForUser(ctx, id)
}
