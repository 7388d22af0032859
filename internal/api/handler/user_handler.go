package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libris/internal/api/dto"
	"libris/internal/api/middleware"
	"libris/internal/api/service"
	"libris/internal/authz"
	"libris/internal/config"

	"github.com/gin-gonic/gin"
)

// UserHandler backs the admin user-management endpoints.
type UserHandler struct {
	svc         service.UserService
	authService service.AuthService
	cfg         *config.Config
}

func NewUserHandler(svc service.UserService, authService service.AuthService, cfg *config.Config) *UserHandler {
	return &UserHandler{svc: svc, authService: authService, cfg: cfg}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("", middleware.AuthMiddleware(h.authService), middleware.Require(authz.ActionUserManage))
	admin.GET("", h.List)
	admin.GET("/:user_id", h.Get)
	admin.PUT("/:user_id", h.Update)
	admin.DELETE("/:user_id", h.Deactivate)
}

func (h *UserHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var activeOnly *bool
	if v := strings.TrimSpace(c.Query("is_active")); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_active parameter"})
			return
		}
		activeOnly = &parsed
	}
	page, pageSize := pageParams(c, h.cfg)

	users, total, err := h.svc.List(ctx, activeOnly, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPage(c.Request.URL, page, pageSize, total, dto.FromUsersToAdminResponses(users)))
}

func (h *UserHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.GetByID(ctx, c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.FromUserToAdminResponse(*user)
	if count, err := h.svc.ActiveLoanCount(ctx, user.ID); err == nil {
		resp.ActiveLoans = &count
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Update(c *gin.Context) {
	var in dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.GetByID(ctx, c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	in.ApplyTo(user)
	if err := h.svc.Update(ctx, user); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUserToAdminResponse(*user))
}

// Deactivate is the DELETE verb: accounts are soft-deactivated, never
// removed.
func (h *UserHandler) Deactivate(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Deactivate(ctx, c.Param("user_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deactivated"})
}
