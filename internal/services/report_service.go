package services

import (
	"context"
	"errors"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Report event types published to live dashboards
const (
	EventReportCreated    = "report_created"
	EventReportUpdated    = "report_updated"
	EventReportDeleted    = "report_deleted"
	EventReportDispatched = "report_dispatched"
)

// EventPublisher fans report changes out to connected dashboards
type EventPublisher interface {
	PublishReportEvent(eventType string, report *models.Report)
}

// DashboardInvalidator drops cached dashboards that include the user's reports
type DashboardInvalidator interface {
	InvalidateDashboards(ctx context.Context, userID string)
}

// ReportService owns the report lifecycle: create, edit, cancel, delete and send
type ReportService struct {
	db         *sqlx.DB
	resolver   *CompanyResolver
	dispatcher *DispatchService
	events     EventPublisher
	cache      DashboardInvalidator
	logger     *zap.Logger
}

// NewReportService wires the lifecycle. events and cache may be nil.
func NewReportService(db *sqlx.DB, resolver *CompanyResolver, dispatcher *DispatchService, events EventPublisher, cache DashboardInvalidator, logger *zap.Logger) *ReportService {
	return &ReportService{
		db:         db,
		resolver:   resolver,
		dispatcher: dispatcher,
		events:     events,
		cache:      cache,
		logger:     logger,
	}
}

// Create validates and stores a new report. Without an explicit company the
// user's active company is used, if any. When send_email is set the report is
// dispatched right away; the returned result describes that attempt.
func (s *ReportService) Create(ctx context.Context, userID string, req *models.ReportRequest) (*models.Report, *SendResult, error) {
	report, err := req.ToReport(userID)
	if err != nil {
		return nil, nil, err
	}

	if report.CompanyID != nil {
		member, err := database.IsCompanyMember(ctx, s.db, userID, *report.CompanyID)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			return nil, nil, &models.ValidationError{Field: "company_id", Message: "you are not a member of this company"}
		}
	} else if companyID, ok := s.resolver.Resolve(ctx, userID); ok {
		report.CompanyID = &companyID
	}

	if err := database.CreateReport(ctx, s.db, report); err != nil {
		return nil, nil, err
	}
	s.logger.Info("📝 Report created",
		zap.String("report_id", report.ID),
		zap.String("user_id", userID),
		zap.Int("total_cleaned", report.TotalCleaned),
	)
	s.changed(ctx, EventReportCreated, report)

	if !report.SendRequested {
		return report, nil, nil
	}

	result, err := s.dispatch(ctx, report)
	if err != nil {
		// The report is stored; a refused or broken dispatch is reported
		// alongside it so the client can retry with the send endpoint.
		var pre *PreconditionError
		if !errors.As(err, &pre) {
			s.logger.Error("❌ Dispatch after create failed", zap.String("report_id", report.ID), zap.Error(err))
		}
		return report, &SendResult{Success: false, Message: err.Error()}, nil
	}
	return report, &result, nil
}

// Get loads one of the user's reports
func (s *ReportService) Get(ctx context.Context, userID, id string) (*models.Report, error) {
	return database.GetReport(ctx, s.db, id, userID)
}

// List returns the user's reports, newest first, optionally by status
func (s *ReportService) List(ctx context.Context, userID string, status models.ReportStatus) ([]models.Report, error) {
	return database.ListReports(ctx, s.db, database.ReportFilter{UserID: userID, Status: status})
}

// Update applies a partial edit and recalculates the total
func (s *ReportService) Update(ctx context.Context, userID, id string, req *models.UpdateReportRequest) (*models.Report, error) {
	report, err := database.GetReport(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(report); err != nil {
		return nil, err
	}
	if err := database.UpdateReport(ctx, s.db, report); err != nil {
		return nil, err
	}
	s.changed(ctx, EventReportUpdated, report)
	return report, nil
}

// Cancel withdraws a report. Cancelling twice is a no-op; delivered reports
// cannot be cancelled.
func (s *ReportService) Cancel(ctx context.Context, userID, id string) (*models.Report, error) {
	report, err := database.GetReport(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case report.Status == models.ReportStatusCancelled:
		return report, nil
	case report.Status == models.ReportStatusSent || report.EmailDelivery.Status == models.DeliveryStatusSent:
		return nil, &models.ValidationError{Field: "status", Message: "sent reports cannot be cancelled"}
	}

	report.Status = models.ReportStatusCancelled
	if err := database.UpdateReport(ctx, s.db, report); err != nil {
		return nil, err
	}
	s.changed(ctx, EventReportUpdated, report)
	return report, nil
}

// Delete removes one of the user's reports
func (s *ReportService) Delete(ctx context.Context, userID, id string) error {
	report, err := database.GetReport(ctx, s.db, id, userID)
	if err != nil {
		return err
	}
	if err := database.DeleteReport(ctx, s.db, id, userID); err != nil {
		return err
	}
	s.logger.Info("🗑️  Report deleted", zap.String("report_id", id), zap.String("user_id", userID))
	s.changed(ctx, EventReportDeleted, report)
	return nil
}

// Send dispatches (or re-dispatches after an error) one of the user's reports
func (s *ReportService) Send(ctx context.Context, userID, id string) (*models.Report, SendResult, error) {
	report, err := database.GetReport(ctx, s.db, id, userID)
	if err != nil {
		return nil, SendResult{}, err
	}
	result, err := s.dispatch(ctx, report)
	if err != nil {
		return nil, SendResult{}, err
	}
	return report, result, nil
}

func (s *ReportService) dispatch(ctx context.Context, report *models.Report) (SendResult, error) {
	result, err := s.dispatcher.Dispatch(ctx, report)
	if err != nil {
		return result, err
	}
	s.changed(context.WithoutCancel(ctx), EventReportDispatched, report)
	return result, nil
}

func (s *ReportService) changed(ctx context.Context, eventType string, report *models.Report) {
	if s.cache != nil {
		s.cache.InvalidateDashboards(ctx, report.UserID)
	}
	if s.events != nil {
		s.events.PublishReportEvent(eventType, report)
	}
}
