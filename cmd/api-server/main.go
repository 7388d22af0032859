package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"libris/database"
	"libris/internal/api/handler"
	"libris/internal/api/middleware"
	"libris/internal/api/repository"
	"libris/internal/api/service"
	"libris/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	// Logout denylist; runs without Redis when REDIS_URL is unset
	var denylist repository.TokenDenylist
	if cfg.RedisURL != "" {
		denylist, err = repository.NewRedisTokenDenylist(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("could not connect to redis: %v", err)
		}
	} else {
		logger.Warn("REDIS_URL not set, logout denylist disabled")
		denylist = repository.NewNoopTokenDenylist()
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	bookRepo := repository.NewBookRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, denylist, cfg)
	bookService := service.NewBookService(bookRepo)
	loanService := service.NewLoanService(loanRepo, userRepo, cfg)
	userService := service.NewUserService(userRepo, refreshTokenRepo, loanRepo)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)

	api := r.Group("/api")
	handler.NewAuthHandler(authService).RegisterRoutes(api.Group("/auth"), limiter)
	handler.NewBookHandler(bookService, authService, cfg).RegisterRoutes(api.Group("/books"))
	handler.NewLoanHandler(loanService, authService, cfg).RegisterRoutes(api.Group("/loans"))
	handler.NewUserHandler(userService, authService, cfg).RegisterRoutes(api.Group("/users"))

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
