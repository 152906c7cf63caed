package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrAlreadySent is returned when dispatch is requested for a delivered report
var ErrAlreadySent = errors.New("report already sent")

const noCompanyLabel = "No company"

// PreconditionError means dispatch was refused before reaching the mail
// server. The delivery state is left untouched.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// DeliveryNotifier is told about every recorded dispatch outcome
type DeliveryNotifier interface {
	NotifyDelivery(ctx context.Context, report *models.Report)
}

// DispatchService emails reports with their owner's SMTP account and records
// the outcome on the report
type DispatchService struct {
	db       *sqlx.DB
	mailer   Mailer
	notifier DeliveryNotifier
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatchService creates the dispatcher. notifier may be nil.
func NewDispatchService(db *sqlx.DB, mailer Mailer, notifier DeliveryNotifier, loc *time.Location, logger *zap.Logger) *DispatchService {
	if loc == nil {
		loc = time.UTC
	}
	return &DispatchService{
		db:       db,
		mailer:   mailer,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch sends the report to the owner's active recipients.
//
// Refusals (draft or cancelled report, already sent, missing SMTP settings,
// no active recipients) return an error and do not count as an attempt.
// Once the mailer is called the attempt is counted and the outcome is
// persisted, ignoring cancellation of ctx. A delivery failure is reported in
// the result, not as an error. A failure to persist the outcome is logged and
// the mailer's result is still returned.
func (s *DispatchService) Dispatch(ctx context.Context, report *models.Report) (SendResult, error) {
	if err := report.CanDispatch(); err != nil {
		return SendResult{}, err
	}
	if !report.CanResend() {
		return SendResult{}, ErrAlreadySent
	}

	owner, err := database.GetUserByID(ctx, s.db, report.UserID)
	if err != nil {
		return SendResult{}, fmt.Errorf("load report owner: %w", err)
	}
	creds := owner.Credentials()
	if !creds.Complete() {
		return SendResult{}, &PreconditionError{Message: "SMTP is not configured: set your SMTP email and password first"}
	}

	recipients, err := database.ListActiveRecipientAddresses(ctx, s.db, report.UserID)
	if err != nil {
		return SendResult{}, fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		return SendResult{}, &PreconditionError{Message: "no active recipients: add at least one recipient first"}
	}

	companyName := s.companyName(ctx, report.CompanyID)
	subject := ReportSubject(report, companyName, s.loc)
	body := ReportBody(report, owner, companyName, s.loc)

	// An attempt that reaches the mailer runs to completion and is recorded
	// even when the caller goes away
	ctx = context.WithoutCancel(ctx)

	report.EmailDelivery.BeginAttempt()
	result := s.mailer.Send(ctx, creds, recipients, subject, body)
	if result.Success {
		report.EmailDelivery.MarkSent(s.now())
		report.Status = models.ReportStatusSent
	} else {
		report.EmailDelivery.MarkFailed(result.Message)
		result.Message = report.EmailDelivery.LastError
	}

	if err := database.UpdateDelivery(ctx, s.db, report); err != nil {
		s.logger.Error("❌ Failed to record delivery outcome",
			zap.String("report_id", report.ID),
			zap.Bool("email_sent", result.Success),
			zap.Int("attempts", report.Attempts),
			zap.Error(err),
		)
	} else {
		s.logger.Info("📨 Report dispatch recorded",
			zap.String("report_id", report.ID),
			zap.String("email_status", string(report.EmailDelivery.Status)),
			zap.Int("attempts", report.Attempts),
			zap.Int("recipients", len(recipients)),
		)
	}

	if s.notifier != nil {
		s.notifier.NotifyDelivery(ctx, report)
	}
	return result, nil
}

// SendTestEmail sends a self-addressed message with the user's SMTP settings
func (s *DispatchService) SendTestEmail(ctx context.Context, user *models.User) SendResult {
	creds := user.Credentials()
	if !creds.Complete() {
		return SendResult{Success: false, Message: "SMTP is not configured: set your SMTP email and password first"}
	}

	subject := "Car Wash Report - SMTP test"
	body := fmt.Sprintf("Hello %s,\n\nYour SMTP settings work. Reports will be sent from %s.\n\nSent %s\n",
		user.Name, creds.LoginEmail, s.now().In(s.loc).Format("02/01/2006 15:04"))

	return s.mailer.Send(ctx, creds, []string{creds.LoginEmail}, subject, body)
}

func (s *DispatchService) companyName(ctx context.Context, companyID *string) string {
	if companyID == nil {
		return noCompanyLabel
	}
	company, err := database.GetCompany(ctx, s.db, *companyID)
	if err != nil {
		s.logger.Warn("⚠️  Company lookup failed for report email", zap.String("company_id", *companyID), zap.Error(err))
		return noCompanyLabel
	}
	return company.Name
}

// reportDate is the service date when set, otherwise the creation date
func reportDate(r *models.Report, loc *time.Location) string {
	if r.ServiceDate != nil {
		if d, err := time.Parse(dayLayout, *r.ServiceDate); err == nil {
			return d.Format("02/01/2006")
		}
	}
	return r.CreatedIn(loc).Format("02/01/2006")
}

// ReportSubject formats "Car Wash Report - <company> - <DD/MM/YYYY>"
func ReportSubject(r *models.Report, companyName string, loc *time.Location) string {
	if companyName == "" {
		companyName = noCompanyLabel
	}
	return fmt.Sprintf("Car Wash Report - %s - %s", companyName, reportDate(r, loc))
}

// ReportBody renders the plain-text email body
func ReportBody(r *models.Report, owner *models.User, companyName string, loc *time.Location) string {
	var b strings.Builder

	b.WriteString("Car Wash Report\n")
	b.WriteString("===============\n\n")
	fmt.Fprintf(&b, "Company: %s\n", companyName)
	fmt.Fprintf(&b, "Date: %s\n", reportDate(r, loc))
	if r.StartTime != nil || r.EndTime != nil {
		window := fmt.Sprintf("%s - %s", valueOr(r.StartTime, "?"), valueOr(r.EndTime, "?"))
		if d := r.DurationMinutes(); d != nil {
			window += fmt.Sprintf(" (%d min)", *d)
		}
		fmt.Fprintf(&b, "Service window: %s\n", window)
	}
	fmt.Fprintf(&b, "Submitted by: %s <%s>\n\n", owner.Name, owner.Email)

	b.WriteString("Vehicles cleaned per station\n")
	for _, f := range r.StationCounts.Fields() {
		fmt.Fprintf(&b, "  %-16s %d\n", f.Label+":", f.Count)
	}
	fmt.Fprintf(&b, "\nTotal cleaned: %d\n", r.TotalCleaned)
	fmt.Fprintf(&b, "Forecasted drops: %d\n", r.ForecastedDrops)

	if r.Notes != nil {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", *r.Notes)
	}
	return b.String()
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
