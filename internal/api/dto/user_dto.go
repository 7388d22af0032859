package dto

import (
	"time"

	"libris/internal/api/models"
)

// AdminUserResponse is the admin view of an account.
type AdminUserResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	PhoneNumber string     `json:"phone_number,omitempty"`
	Address     string     `json:"address,omitempty"`
	MaxLoans    int        `json:"max_loans"`
	ActiveLoans *int64     `json:"active_loans,omitempty"` // detail view only
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// AdminUpdateUserRequest used for PUT /api/users/:user_id (admin only,
// partial updates allowed)
type AdminUpdateUserRequest struct {
	Email       *string `json:"email,omitempty" binding:"omitempty,email"`
	Role        *string `json:"role,omitempty"`
	Active      *bool   `json:"active,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
	MaxLoans    *int    `json:"max_loans,omitempty" binding:"omitempty,min=0"`
}

func (d AdminUpdateUserRequest) ApplyTo(u *models.User) {
	if d.Email != nil {
		u.Email = *d.Email
	}
	if d.Role != nil {
		u.Role = *d.Role
	}
	if d.Active != nil {
		u.Active = *d.Active
	}
	if d.PhoneNumber != nil {
		u.PhoneNumber = *d.PhoneNumber
	}
	if d.Address != nil {
		u.Address = *d.Address
	}
	if d.MaxLoans != nil {
		u.MaxLoans = *d.MaxLoans
	}
}

func FromUserToAdminResponse(u models.User) AdminUserResponse {
	return AdminUserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Active:      u.Active,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		MaxLoans:    u.MaxLoans,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLogin:   u.LastLogin,
	}
}

func FromUsersToAdminResponses(users []models.User) []AdminUserResponse {
	resp := make([]AdminUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, FromUserToAdminResponse(u))
	}
	return resp
}
