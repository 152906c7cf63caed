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

const reportColumns = `id, user_id, company_id,
	ready_line, vip_line, overflow_kiosk, overflow_2, black_top, return_line, mecanico, gas_run,
	total_cleaned, forecasted_drops, service_date, start_time, end_time, notes, status,
	send_requested, email_status, email_attempts, email_sent_at, email_last_error,
	created_at, updated_at`

// ReportFilter narrows ListReports. Zero values mean no restriction.
type ReportFilter struct {
	UserID    string
	CompanyID *string
	Status    models.ReportStatus
	From      *time.Time // inclusive
	To        *time.Time // exclusive
	Limit     int
}

func (f ReportFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.CompanyID != nil {
		add("company_id = $%d", *f.CompanyID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != nil {
		add("created_at >= $%d", f.From.Unix())
	}
	if f.To != nil {
		add("created_at < $%d", f.To.Unix())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// CreateReport recalculates the total and inserts the report
func CreateReport(ctx context.Context, db *sqlx.DB, r *models.Report) error {
	now := time.Now().Unix()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Recalculate()

	query := `
		INSERT INTO reports (` + reportColumns + `) VALUES (
			:id, :user_id, :company_id,
			:ready_line, :vip_line, :overflow_kiosk, :overflow_2, :black_top, :return_line, :mecanico, :gas_run,
			:total_cleaned, :forecasted_drops, :service_date, :start_time, :end_time, :notes, :status,
			:send_requested, :email_status, :email_attempts, :email_sent_at, :email_last_error,
			:created_at, :updated_at
		)
	`
	if _, err := db.NamedExecContext(ctx, query, r); err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetReport loads a report owned by userID
func GetReport(ctx context.Context, db *sqlx.DB, id, userID string) (*models.Report, error) {
	var report models.Report
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 AND user_id = $2`
	err := db.GetContext(ctx, &report, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ListReports returns matching reports, newest first
func ListReports(ctx context.Context, db *sqlx.DB, filter ReportFilter) ([]models.Report, error) {
	where, args := filter.where()
	query := `SELECT ` + reportColumns + ` FROM reports` + where + ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	reports := []models.Report{}
	if err := db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// UpdateReport saves counts, metadata and lifecycle status. The total is
// recalculated first; delivery columns are left to UpdateDelivery.
func UpdateReport(ctx context.Context, db *sqlx.DB, r *models.Report) error {
	r.Recalculate()
	r.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE reports SET
			ready_line = :ready_line,
			vip_line = :vip_line,
			overflow_kiosk = :overflow_kiosk,
			overflow_2 = :overflow_2,
			black_top = :black_top,
			return_line = :return_line,
			mecanico = :mecanico,
			gas_run = :gas_run,
			total_cleaned = :total_cleaned,
			forecasted_drops = :forecasted_drops,
			service_date = :service_date,
			start_time = :start_time,
			end_time = :end_time,
			notes = :notes,
			status = :status,
			updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id
	`
	result, err := db.NamedExecContext(ctx, query, r)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return expectOneRow(result)
}

// UpdateDelivery writes the outcome of a dispatch attempt in a single statement
func UpdateDelivery(ctx context.Context, db *sqlx.DB, r *models.Report) error {
	r.UpdatedAt = time.Now().Unix()

	query := `
		UPDATE reports SET
			status = :status,
			send_requested = :send_requested,
			email_status = :email_status,
			email_attempts = :email_attempts,
			email_sent_at = :email_sent_at,
			email_last_error = :email_last_error,
			updated_at = :updated_at
		WHERE id = :id
	`
	result, err := db.NamedExecContext(ctx, query, r)
	if err != nil {
		return fmt.Errorf("failed to update report delivery: %w", err)
	}
	return expectOneRow(result)
}

// DeleteReport removes a report owned by userID
func DeleteReport(ctx context.Context, db *sqlx.DB, id, userID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return expectOneRow(result)
}
