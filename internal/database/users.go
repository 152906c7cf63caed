package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartrack-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, password, name, role,
	smtp_email, smtp_password, smtp_host, smtp_port, smtp_use_tls, is_email_configured,
	created_at, updated_at`

// GetUserByID loads a user by id
func GetUserByID(ctx context.Context, db *sqlx.DB, id string) (*models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail loads a user by login email (case-insensitive)
func GetUserByEmail(ctx context.Context, db *sqlx.DB, email string) (*models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// ListUsers returns every user in creation order
func ListUsers(ctx context.Context, db *sqlx.DB) ([]models.User, error) {
	users := []models.User{}
	err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser inserts a user. u.Password must already be a bcrypt hash.
func CreateUser(ctx context.Context, db *sqlx.DB, u *models.User) error {
	now := time.Now().Unix()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.SMTPHost == "" {
		u.SMTPHost = models.DefaultSMTPHost
	}
	if u.SMTPPort == 0 {
		u.SMTPPort = models.DefaultSMTPPort
	}
	u.RefreshEmailConfigured()
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `
		INSERT INTO users (
			id, email, password, name, role,
			smtp_email, smtp_password, smtp_host, smtp_port, smtp_use_tls, is_email_configured,
			created_at, updated_at
		) VALUES (
			:id, :email, :password, :name, :role,
			:smtp_email, :smtp_password, :smtp_host, :smtp_port, :smtp_use_tls, :is_email_configured,
			:created_at, :updated_at
		)
	`
	if _, err := db.NamedExecContext(ctx, query, u); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateSMTPSettings persists the SMTP columns and the derived is_email_configured flag
func UpdateSMTPSettings(ctx context.Context, db *sqlx.DB, u *models.User) error {
	u.RefreshEmailConfigured()
	u.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE users SET
			smtp_email = :smtp_email,
			smtp_password = :smtp_password,
			smtp_host = :smtp_host,
			smtp_port = :smtp_port,
			smtp_use_tls = :smtp_use_tls,
			is_email_configured = :is_email_configured,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := db.NamedExecContext(ctx, query, u)
	if err != nil {
		return fmt.Errorf("failed to update smtp settings: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
