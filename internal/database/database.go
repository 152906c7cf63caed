package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRecipient is returned when a user already has a recipient with the same email
	ErrDuplicateRecipient = errors.New("recipient already exists")
	// ErrDuplicateEmail is returned when a user account with the same login email exists
	ErrDuplicateEmail = errors.New("email already registered")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func Connect(dbURL string, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("🔌 Connecting to database", zap.Int("url_length", len(dbURL)))

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Error("❌ Database connection failed", zap.String("step", "connect"), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("❌ Database connection failed", zap.String("step", "ping"), zap.Error(err))
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	logger.Info("✅ Database connection successful")
	return db, nil
}

func Migrate(db *sqlx.DB, logger *zap.Logger) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL CHECK(role IN ('user', 'admin')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// SMTP settings used to email reports
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS smtp_email TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS smtp_password TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS smtp_host TEXT NOT NULL DEFAULT 'smtp-mail.outlook.com'`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS smtp_port INT NOT NULL DEFAULT 587`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS smtp_use_tls BOOLEAN NOT NULL DEFAULT TRUE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_email_configured BOOLEAN NOT NULL DEFAULT FALSE`,

		// Create companies table
		`CREATE TABLE IF NOT EXISTS companies (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Users may work for several companies
		`CREATE TABLE IF NOT EXISTS company_members (
			user_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			linked_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			PRIMARY KEY (user_id, company_id),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
		)`,

		// One selected company per user; NULL means none selected
		`CREATE TABLE IF NOT EXISTS active_companies (
			user_id TEXT PRIMARY KEY,
			company_id TEXT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
		)`,

		// Create reports table
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			company_id TEXT,
			ready_line INT NOT NULL DEFAULT 0 CHECK(ready_line >= 0),
			vip_line INT NOT NULL DEFAULT 0 CHECK(vip_line >= 0),
			overflow_kiosk INT NOT NULL DEFAULT 0 CHECK(overflow_kiosk >= 0),
			overflow_2 INT NOT NULL DEFAULT 0 CHECK(overflow_2 >= 0),
			black_top INT NOT NULL DEFAULT 0 CHECK(black_top >= 0),
			return_line INT NOT NULL DEFAULT 0 CHECK(return_line >= 0),
			mecanico INT NOT NULL DEFAULT 0 CHECK(mecanico >= 0),
			gas_run INT NOT NULL DEFAULT 0 CHECK(gas_run >= 0),
			total_cleaned INT NOT NULL DEFAULT 0,
			forecasted_drops INT NOT NULL DEFAULT 0 CHECK(forecasted_drops >= 0),
			service_date TEXT,
			start_time TEXT,
			end_time TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'completed' CHECK(status IN ('draft', 'completed', 'sent', 'cancelled')),
			send_requested BOOLEAN NOT NULL DEFAULT FALSE,
			email_status TEXT NOT NULL DEFAULT 'not_sent' CHECK(email_status IN ('not_sent', 'sent', 'error')),
			email_attempts INT NOT NULL DEFAULT 0 CHECK(email_attempts >= 0),
			email_sent_at BIGINT,
			email_last_error TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE SET NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_company ON reports(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,

		// Create email_recipients table
		`CREATE TABLE IF NOT EXISTS email_recipients (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			UNIQUE (user_id, email),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		// Create device_tokens table for push notifications
		`CREATE TABLE IF NOT EXISTS device_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_device_tokens_user ON device_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	logger.Info("✓ Database migrations completed", zap.Int("statements", len(migrations)))
	return nil
}
