package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libris/internal/api/dto"
	"libris/internal/api/middleware"
	"libris/internal/api/models"
	"libris/internal/api/repository"
	"libris/internal/api/service"
	"libris/internal/authz"
	"libris/internal/config"

	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	svc         service.LoanService
	authService service.AuthService
	cfg         *config.Config
}

func NewLoanHandler(svc service.LoanService, authService service.AuthService, cfg *config.Config) *LoanHandler {
	return &LoanHandler{svc: svc, authService: authService, cfg: cfg}
}

func (h *LoanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authed := rg.Group("", middleware.AuthMiddleware(h.authService))

	authed.POST("/borrow", middleware.Require(authz.ActionLoanBorrow), h.Borrow)
	authed.POST("/return", middleware.Require(authz.ActionLoanReturn), h.Return)
	authed.GET("/active", middleware.Require(authz.ActionLoanRead), h.Active)
	authed.GET("/history", middleware.Require(authz.ActionLoanRead), h.History)

	// Admin view over every user's loans
	authed.GET("", middleware.Require(authz.ActionLoanReadAll), h.ListAll)
}

func (h *LoanHandler) Borrow(c *gin.Context) {
	var in dto.BorrowRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	loan, err := h.svc.Borrow(ctx, service.BorrowRequest{
		UserID: middleware.UserID(c),
		BookID: in.BookID,
		DueAt:  in.DueAt,
		Notes:  in.Notes,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "book borrowed successfully",
		"loan":    dto.FromLoanToResponse(*loan, time.Now().UTC()),
	})
}

func (h *LoanHandler) Return(c *gin.Context) {
	var in dto.ReturnRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.LoanID == 0 && in.BookID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "loan_id or book_id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	isAdmin := middleware.RoleOf(c) == authz.RoleAdmin
	loan, err := h.svc.Return(ctx, middleware.UserID(c), in.LoanID, in.BookID, isAdmin)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "book returned successfully",
		"loan":    dto.FromLoanToResponse(*loan, time.Now().UTC()),
	})
}

func (h *LoanHandler) Active(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	loans, err := h.svc.Active(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	// Same envelope as the paginated lists; the active set is never paged,
	// so the links stay null.
	now := time.Now().UTC()
	c.JSON(http.StatusOK, dto.Page{
		Count:   int64(len(loans)),
		Results: dto.FromLoansToResponses(loans, now),
	})
}

func (h *LoanHandler) History(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, ok := statusFilter(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c, h.cfg)

	loans, total, err := h.svc.History(ctx, middleware.UserID(c), status, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	now := time.Now().UTC()
	c.JSON(http.StatusOK, dto.NewPage(c.Request.URL, page, pageSize, total, dto.FromLoansToResponses(loans, now)))
}

func (h *LoanHandler) ListAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, ok := statusFilter(c)
	if !ok {
		return
	}
	filters := repository.LoanFilters{
		Status: status,
		UserID: strings.TrimSpace(c.Query("user_id")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("book_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book_id"})
			return
		}
		filters.BookID = id
	}
	page, pageSize := pageParams(c, h.cfg)

	loans, total, err := h.svc.ListAll(ctx, filters, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	now := time.Now().UTC()
	c.JSON(http.StatusOK, dto.NewPage(c.Request.URL, page, pageSize, total, dto.FromLoansToResponses(loans, now)))
}

func statusFilter(c *gin.Context) (models.LoanStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(c.Query("status")))
	switch s {
	case "":
		return "", true
	case "active", "overdue", "returned":
		return models.LoanStatus(s), true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status, must be one of: active, overdue, returned"})
	return "", false
}
