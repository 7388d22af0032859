package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"libris/database"
	"libris/internal/api/models"
	"libris/internal/api/repository"
	"libris/internal/config"
	"libris/internal/middleware/auth"
)

// Bootstraps the first admin account; the API has no endpoint that can
// create an admin before one exists.
func main() {
	username := flag.String("username", "admin", "admin username")
	email := flag.String("email", "", "admin email (required)")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	hashed, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("could not hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	user := &models.User{
		ID:       uuid.New().String(),
		Username: *username,
		Email:    *email,
		Password: hashed,
		Role:     models.RoleAdmin,
		Active:   true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatalf("could not create admin: %v", err)
	}

	fmt.Printf("admin user created: %s (%s)\n", user.Username, user.ID)
}
