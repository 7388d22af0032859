package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"libris/internal/api/models"
	"libris/internal/api/repository"
	"libris/internal/api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRouter(svc service.UserService) *gin.Engine {
	r := gin.New()
	h := NewUserHandler(svc, &stubAuthService{}, testConfig())
	h.RegisterRoutes(r.Group("/api/users"))
	return r
}

func TestUserRoutesAdminOnly(t *testing.T) {
	r := newUserRouter(&stubUserService{
		listFn: func(_ context.Context, _ *bool, _, _ int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	})

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, http.MethodGet, "/api/users", "", "").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodGet, "/api/users", memberToken, "").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/users", adminToken, "").Code)
}

func TestListUsersActiveFilter(t *testing.T) {
	var gotFilter *bool
	r := newUserRouter(&stubUserService{
		listFn: func(_ context.Context, activeOnly *bool, _, _ int) ([]models.User, int64, error) {
			gotFilter = activeOnly
			return []models.User{*memberUser()}, 1, nil
		},
	})

	w := doRequest(r, http.MethodGet, "/api/users?is_active=true", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotFilter)
	assert.True(t, *gotFilter)

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/users?is_active=yes-please", adminToken, "").Code)
}

func TestGetUser(t *testing.T) {
	r := newUserRouter(&stubUserService{
		getFn: func(_ context.Context, id string) (*models.User, error) {
			if id != "member-1" {
				return nil, repository.ErrUserNotFound
			}
			return memberUser(), nil
		},
		countFn: func(_ context.Context, id string) (int64, error) { return 2, nil },
	})

	w := doRequest(r, http.MethodGet, "/api/users/member-1", adminToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["username"])
	assert.Equal(t, float64(2), resp["active_loans"])

	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/users/ghost", adminToken, "").Code)
}

func TestUpdateUserRole(t *testing.T) {
	var saved *models.User
	r := newUserRouter(&stubUserService{
		getFn: func(_ context.Context, _ string) (*models.User, error) { return memberUser(), nil },
		updateFn: func(_ context.Context, user *models.User) error {
			if user.Role != models.RoleMember && user.Role != models.RoleAdmin {
				return service.ErrInvalidRole
			}
			saved = user
			return nil
		},
	})

	w := doRequest(r, http.MethodPut, "/api/users/member-1", adminToken, `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, saved)
	assert.Equal(t, models.RoleAdmin, saved.Role)

	w = doRequest(r, http.MethodPut, "/api/users/member-1", adminToken, `{"role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateUser(t *testing.T) {
	var deactivated string
	r := newUserRouter(&stubUserService{
		deactivateFn: func(_ context.Context, id string) error {
			if id == "ghost" {
				return repository.ErrUserNotFound
			}
			deactivated = id
			return nil
		},
	})

	w := doRequest(r, http.MethodDelete, "/api/users/member-1", adminToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "member-1", deactivated)

	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodDelete, "/api/users/ghost", adminToken, "").Code)
}
