package handler

import (
	"errors"
	"net/http"
	"strconv"

	"libris/internal/api/repository"
	"libris/internal/api/service"
	"libris/internal/config"

	"github.com/gin-gonic/gin"
)

// pageParams reads ?page= and ?page_size= with the configured defaults and
// cap.
func pageParams(c *gin.Context, cfg *config.Config) (page, pageSize int) {
	page = 1
	pageSize = cfg.PageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= cfg.MaxPageSize {
			pageSize = parsed
		}
	}
	return page, pageSize
}

// writeError maps service errors onto the HTTP taxonomy: validation 400,
// missing resources 404, domain-rule violations 409, everything else 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrBookNotFound),
		errors.Is(err, repository.ErrLoanNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, repository.ErrNotAvailable),
		errors.Is(err, repository.ErrDuplicateActiveLoan),
		errors.Is(err, repository.ErrNoActiveLoan),
		errors.Is(err, repository.ErrLoanLimitReached),
		errors.Is(err, repository.ErrISBNInUse),
		errors.Is(err, repository.ErrCopiesOnLoan),
		errors.Is(err, repository.ErrBookHasActiveLoans),
		errors.Is(err, repository.ErrUserExists),
		errors.Is(err, repository.ErrTxConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, repository.ErrNotLoanOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrInvalidDueDate),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrAuthorRequired),
		errors.Is(err, service.ErrInvalidISBN),
		errors.Is(err, service.ErrInvalidGenre),
		errors.Is(err, service.ErrInvalidPages),
		errors.Is(err, service.ErrInvalidCopies),
		errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
