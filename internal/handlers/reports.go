package handlers

import (
	"fmt"
	"net/http"
	"time"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"
	"cartrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportWithDeliveryResponse is returned when a request may have emailed the report
type ReportWithDeliveryResponse struct {
	Report   models.ReportResponse `json:"report"`
	Delivery *services.SendResult  `json:"delivery,omitempty"`
}

func toReportResponses(reports []models.Report) []models.ReportResponse {
	responses := make([]models.ReportResponse, len(reports))
	for i := range reports {
		responses[i] = reports[i].ToReportResponse()
	}
	return responses
}

// ListReports returns the caller's reports, newest first, optionally by ?status=
func ListReports(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		status := models.ReportStatus(r.URL.Query().Get("status"))
		switch status {
		case "", models.ReportStatusDraft, models.ReportStatusCompleted, models.ReportStatusSent, models.ReportStatusCancelled:
		default:
			utils.RespondFieldError(w, "status", "status: unknown report status")
			return
		}

		reports, err := svc.List(r.Context(), claims.UserID, status)
		if err != nil {
			respondServiceError(w, logger, "list reports", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, toReportResponses(reports))
	}
}

// CreateReport stores a report and, when send_email is set, emails it
func CreateReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.ReportRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		report, delivery, err := svc.Create(r.Context(), claims.UserID, &req)
		if err != nil {
			respondServiceError(w, logger, "create report", err)
			return
		}

		utils.RespondJSON(w, http.StatusCreated, ReportWithDeliveryResponse{
			Report:   report.ToReportResponse(),
			Delivery: delivery,
		})
	}
}

func GetReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		report, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, logger, "load report", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, report.ToReportResponse())
	}
}

// UpdateReport applies a partial edit; totals are recalculated
func UpdateReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.UpdateReportRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		report, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), &req)
		if err != nil {
			respondServiceError(w, logger, "update report", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, report.ToReportResponse())
	}
}

func DeleteReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
			respondServiceError(w, logger, "delete report", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

// SendReport emails the report. A failed delivery is still a 200; the
// outcome is in the delivery block.
func SendReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		report, result, err := svc.Send(r.Context(), claims.UserID, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, logger, "send report", err)
			return
		}

		utils.RespondJSON(w, http.StatusOK, ReportWithDeliveryResponse{
			Report:   report.ToReportResponse(),
			Delivery: &result,
		})
	}
}

func CancelReport(svc *services.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		report, err := svc.Cancel(r.Context(), claims.UserID, chi.URLParam(r, "id"))
		if err != nil {
			respondServiceError(w, logger, "cancel report", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, report.ToReportResponse())
	}
}

// ExportReports streams the caller's reports as an XLSX workbook,
// optionally limited by ?from=&to= (YYYY-MM-DD, inclusive)
func ExportReports(db *sqlx.DB, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		window, _, err := parseWindow(r, loc)
		if err != nil {
			respondServiceError(w, logger, "export reports", err)
			return
		}

		filter := database.ReportFilter{UserID: claims.UserID}
		if !window.From.IsZero() {
			filter.From = &window.From
		}
		if !window.To.IsZero() {
			filter.To = &window.To
		}

		reports, err := database.ListReports(r.Context(), db, filter)
		if err != nil {
			respondServiceError(w, logger, "export reports", err)
			return
		}

		data, err := services.ExportReports(reports, loc)
		if err != nil {
			respondServiceError(w, logger, "export reports", err)
			return
		}

		filename := fmt.Sprintf("car-wash-reports-%s.xlsx", time.Now().In(loc).Format(dateLayout))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			logger.Warn("⚠️  Failed to write export", zap.Error(err))
		}
	}
}
