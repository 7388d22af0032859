package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"libris/internal/api/dto"
	"libris/internal/api/middleware"
	"libris/internal/api/repository"
	"libris/internal/api/service"
	"libris/internal/authz"
	"libris/internal/config"

	"github.com/gin-gonic/gin"
)

type BookHandler struct {
	svc         service.BookService
	authService service.AuthService
	cfg         *config.Config
}

func NewBookHandler(svc service.BookService, authService service.AuthService, cfg *config.Config) *BookHandler {
	return &BookHandler{svc: svc, authService: authService, cfg: cfg}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	// Read-only routes allow anonymous access
	rg.GET("", middleware.OptionalAuth(h.authService), middleware.Require(authz.ActionBookRead), h.List)
	rg.GET("/:book_id", middleware.OptionalAuth(h.authService), middleware.Require(authz.ActionBookRead), h.Get)

	// Admin-only catalog writes
	admin := rg.Group("", middleware.AuthMiddleware(h.authService), middleware.Require(authz.ActionBookWrite))
	admin.POST("", h.Create)
	admin.PUT("/:book_id", h.Update)
	admin.DELETE("/:book_id", h.Delete)
}

func (h *BookHandler) List(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	filters, ok := parseBookFilters(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c, h.cfg)

	list, total, err := h.svc.List(ctx, filters, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	results := make([]dto.BookResponse, 0, len(list))
	for _, b := range list {
		results = append(results, dto.FromBookToResponse(b))
	}

	c.JSON(http.StatusOK, dto.NewPage(c.Request.URL, page, pageSize, total, results))
}

func (h *BookHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	b, err := h.svc.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBookToResponse(*b))
}

func (h *BookHandler) Create(c *gin.Context) {
	var in dto.CreateBookRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book := in.ToModel()
	if err := h.svc.Create(ctx, &book); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromBookToResponse(book))
}

func (h *BookHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var in dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	existing, err := h.svc.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	in.ApplyTo(existing)
	if err := h.svc.Update(ctx, id, existing); err != nil {
		writeError(c, err)
		return
	}

	updated, err := h.svc.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBookToResponse(*updated))
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseBookFilters reads the catalog filter query parameters. On a malformed
// parameter it writes a 400 and returns ok=false.
func parseBookFilters(c *gin.Context) (repository.BookFilters, bool) {
	var f repository.BookFilters

	f.Title = strings.TrimSpace(c.Query("title"))
	f.Author = strings.TrimSpace(c.Query("author"))
	f.ISBN = strings.TrimSpace(c.Query("isbn"))
	f.Search = strings.TrimSpace(c.Query("search"))

	if genre := strings.TrimSpace(c.Query("genre")); genre != "" {
		f.Genre = strings.ToLower(genre)
	}

	if avail := strings.TrimSpace(c.Query("is_available")); avail != "" {
		parsed, err := strconv.ParseBool(avail)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid is_available parameter"})
			return f, false
		}
		f.Available = &parsed
	}

	for param, target := range map[string]**time.Time{
		"published_after":  &f.PublishedAfter,
		"published_before": &f.PublishedBefore,
	} {
		if v := strings.TrimSpace(c.Query(param)); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param + " parameter, expected YYYY-MM-DD"})
				return f, false
			}
			*target = &t
		}
	}

	for param, target := range map[string]**int{
		"min_pages": &f.MinPages,
		"max_pages": &f.MaxPages,
	} {
		if v := strings.TrimSpace(c.Query(param)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param + " parameter"})
				return f, false
			}
			*target = &n
		}
	}

	// ordering: ?ordering=title or ?ordering=-published_date
	if ordering := strings.TrimSpace(c.Query("ordering")); ordering != "" {
		if strings.HasPrefix(ordering, "-") {
			f.SortDesc = true
			ordering = ordering[1:]
		}
		f.SortBy = ordering
	}

	return f, true
}
