package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"cartrack-backend/internal/config"
	"cartrack-backend/internal/database"
	"cartrack-backend/internal/logger"
	"cartrack-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// createadmin bootstraps an admin account on an empty installation:
//
//	createadmin -email boss@example.com -name Boss -password s3cret
//
// The password may also come from ADMIN_PASSWORD.
func main() {
	email := flag.String("email", "", "login email of the new admin")
	name := flag.String("name", "Admin", "display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password (default $ADMIN_PASSWORD)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, "console", "cartrack-createadmin")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	normalized, err := models.NormalizeEmail(*email)
	if err != nil {
		log.Fatal("❌ Invalid email", zap.String("email", *email), zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash admin password", zap.Error(err))
	}

	user := &models.User{
		Email:    normalized,
		Password: string(hashed),
		Name:     *name,
		Role:     models.RoleAdmin,
	}
	err = database.CreateUser(context.Background(), db, user)
	if errors.Is(err, database.ErrDuplicateEmail) {
		log.Warn("⚠️  User already exists", zap.String("email", normalized))
		return
	}
	if err != nil {
		log.Fatal("❌ Failed to create admin", zap.Error(err))
	}

	log.Info("✅ Created admin user", zap.String("email", user.Email), zap.String("user_id", user.ID))
}
