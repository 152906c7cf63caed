package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UpsertDeviceToken registers a push token. A token moves to the latest
// user that registers it.
func UpsertDeviceToken(ctx context.Context, db *sqlx.DB, userID, token, deviceType string) error {
	now := time.Now().Unix()
	query := `
		INSERT INTO device_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_type = EXCLUDED.device_type,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := db.ExecContext(ctx, query, userID, token, deviceType, now); err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}
	return nil
}

// ListDeviceTokens returns every push token registered by the user
func ListDeviceTokens(ctx context.Context, db *sqlx.DB, userID string) ([]string, error) {
	tokens := []string{}
	if err := db.SelectContext(ctx, &tokens, `SELECT token FROM device_tokens WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	return tokens, nil
}

// DeleteDeviceTokens drops tokens that FCM reported as unregistered
func DeleteDeviceTokens(ctx context.Context, db *sqlx.DB, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM device_tokens WHERE token IN (?)`, tokens)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	if _, err := db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to delete device tokens: %w", err)
	}
	return nil
}
