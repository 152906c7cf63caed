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

// CreateCompany inserts a new active company
func CreateCompany(ctx context.Context, db *sqlx.DB, name, city string) (*models.Company, error) {
	company := &models.Company{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		City:      strings.TrimSpace(city),
		Active:    true,
		CreatedAt: time.Now().Unix(),
	}

	query := `INSERT INTO companies (id, name, city, active, created_at)
	          VALUES (:id, :name, :city, :active, :created_at)`
	if _, err := db.NamedExecContext(ctx, query, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return company, nil
}

// GetCompany loads a company by id
func GetCompany(ctx context.Context, db *sqlx.DB, id string) (*models.Company, error) {
	var company models.Company
	err := db.GetContext(ctx, &company, `SELECT id, name, city, active, created_at FROM companies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

// ListUserCompanies returns the active companies the user belongs to, by name
func ListUserCompanies(ctx context.Context, db *sqlx.DB, userID string) ([]models.Company, error) {
	companies := []models.Company{}
	query := `SELECT c.id, c.name, c.city, c.active, c.created_at
	          FROM companies c
	          JOIN company_members m ON m.company_id = c.id
	          WHERE m.user_id = $1 AND c.active = TRUE
	          ORDER BY c.name ASC`
	if err := db.SelectContext(ctx, &companies, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user companies: %w", err)
	}
	return companies, nil
}

// IsCompanyMember reports whether the user is linked to the company
func IsCompanyMember(ctx context.Context, db *sqlx.DB, userID, companyID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM company_members WHERE user_id = $1 AND company_id = $2)`
	if err := db.GetContext(ctx, &exists, query, userID, companyID); err != nil {
		return false, fmt.Errorf("failed to check company membership: %w", err)
	}
	return exists, nil
}

// AddCompanyMember links a user to a company; linking twice is a no-op
func AddCompanyMember(ctx context.Context, db *sqlx.DB, companyID, userID string) error {
	query := `INSERT INTO company_members (user_id, company_id, linked_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, company_id) DO NOTHING`
	if _, err := db.ExecContext(ctx, query, userID, companyID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to add company member: %w", err)
	}
	return nil
}

// GetActiveCompanyID returns the selected company. A missing binding and a
// NULL binding both yield nil.
func GetActiveCompanyID(ctx context.Context, db *sqlx.DB, userID string) (*string, error) {
	var binding models.ActiveCompany
	err := db.GetContext(ctx, &binding, `SELECT user_id, company_id FROM active_companies WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active company: %w", err)
	}
	return binding.CompanyID, nil
}

// SetActiveCompany upserts the user's binding; nil clears the selection
func SetActiveCompany(ctx context.Context, db *sqlx.DB, userID string, companyID *string) error {
	query := `INSERT INTO active_companies (user_id, company_id, updated_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id) DO UPDATE SET company_id = EXCLUDED.company_id, updated_at = EXCLUDED.updated_at`
	if _, err := db.ExecContext(ctx, query, userID, companyID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to set active company: %w", err)
	}
	return nil
}
