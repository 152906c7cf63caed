package database

import (
	"context"
	"fmt"

	"cartrack-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SeedDemoData creates demo accounts and a demo company on an empty database
func SeedDemoData(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		logger.Info("✓ Users already seeded, skipping...")
		return nil
	}

	logger.Info("🌱 Seeding demo users...")

	userPassword, err := bcrypt.GenerateFromPassword([]byte("user123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []*models.User{
		{
			Email:      "washer@cartrack.local",
			Password:   string(userPassword),
			Name:       "Demo Washer",
			Role:       models.RoleUser,
			SMTPUseTLS: true,
		},
		{
			Email:      "admin@cartrack.local",
			Password:   string(adminPassword),
			Name:       "Admin User",
			Role:       models.RoleAdmin,
			SMTPUseTLS: true,
		},
	}

	for _, user := range users {
		if err := CreateUser(ctx, db, user); err != nil {
			return err
		}
		logger.Info("  ✓ Created user", zap.String("email", user.Email), zap.String("role", user.Role))
	}

	company, err := CreateCompany(ctx, db, "Demo Car Wash", "San Jose")
	if err != nil {
		return err
	}
	for _, user := range users {
		if err := AddCompanyMember(ctx, db, company.ID, user.ID); err != nil {
			return err
		}
	}
	if err := SetActiveCompany(ctx, db, users[0].ID, &company.ID); err != nil {
		return err
	}

	logger.Info("✓ Successfully seeded demo data",
		zap.String("company", company.Name),
		zap.String("user_login", "washer@cartrack.local / user123"),
		zap.String("admin_login", "admin@cartrack.local / admin123"),
	)
	return nil
}
