package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartrack-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const recipientColumns = `id, user_id, email, name, is_active, created_at, updated_at`

// ListRecipients returns the user's recipients ordered by email
func ListRecipients(ctx context.Context, db *sqlx.DB, userID string) ([]models.EmailRecipient, error) {
	recipients := []models.EmailRecipient{}
	query := `SELECT ` + recipientColumns + ` FROM email_recipients WHERE user_id = $1 ORDER BY email ASC`
	if err := db.SelectContext(ctx, &recipients, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return recipients, nil
}

// GetRecipient loads one of the user's recipients
func GetRecipient(ctx context.Context, db *sqlx.DB, id, userID string) (*models.EmailRecipient, error) {
	var recipient models.EmailRecipient
	query := `SELECT ` + recipientColumns + ` FROM email_recipients WHERE id = $1 AND user_id = $2`
	err := db.GetContext(ctx, &recipient, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}
	return &recipient, nil
}

// CreateRecipient inserts a recipient. An existing (user, email) pair is
// reported as ErrDuplicateRecipient and the stored row is left untouched.
func CreateRecipient(ctx context.Context, db *sqlx.DB, r *models.EmailRecipient) error {
	now := time.Now().Unix()
	r.ID = uuid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now

	query := `
		INSERT INTO email_recipients (id, user_id, email, name, is_active, created_at, updated_at)
		VALUES (:id, :user_id, :email, :name, :is_active, :created_at, :updated_at)
	`
	if _, err := db.NamedExecContext(ctx, query, r); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecipient
		}
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

// UpdateRecipient saves the name and active flag
func UpdateRecipient(ctx context.Context, db *sqlx.DB, r *models.EmailRecipient) error {
	r.UpdatedAt = time.Now().Unix()
	query := `
		UPDATE email_recipients SET name = :name, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`
	result, err := db.NamedExecContext(ctx, query, r)
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}
	return expectOneRow(result)
}

// DeleteRecipient removes one of the user's recipients
func DeleteRecipient(ctx context.Context, db *sqlx.DB, id, userID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM email_recipients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}
	return expectOneRow(result)
}

// ListActiveRecipientAddresses returns the addresses a report is dispatched to
func ListActiveRecipientAddresses(ctx context.Context, db *sqlx.DB, userID string) ([]string, error) {
	addresses := []string{}
	query := `SELECT email FROM email_recipients WHERE user_id = $1 AND is_active = TRUE ORDER BY email ASC`
	if err := db.SelectContext(ctx, &addresses, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list active recipients: %w", err)
	}
	return addresses, nil
}
