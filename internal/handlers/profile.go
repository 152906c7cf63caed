package handlers

import (
	"net/http"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"
	"cartrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// GetSMTPSettings returns the caller's SMTP settings without the secret
func GetSMTPSettings(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		user, err := database.GetUserByID(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "load smtp settings", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, user.ToSMTPSettingsResponse())
	}
}

// UpdateSMTPSettings stores new SMTP settings and recomputes is_email_configured
func UpdateSMTPSettings(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.SMTPSettingsRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		user, err := database.GetUserByID(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "load smtp settings", err)
			return
		}
		if err := req.Apply(user); err != nil {
			respondServiceError(w, logger, "update smtp settings", err)
			return
		}
		if err := database.UpdateSMTPSettings(r.Context(), db, user); err != nil {
			respondServiceError(w, logger, "update smtp settings", err)
			return
		}

		logger.Info("📧 SMTP settings updated",
			zap.String("user_id", user.ID),
			zap.Bool("is_email_configured", user.IsEmailConfigured),
		)
		utils.RespondJSON(w, http.StatusOK, user.ToSMTPSettingsResponse())
	}
}

// SendTestEmail sends a self-addressed message through the caller's SMTP account.
// Delivery failures are reported in the body with a 200.
func SendTestEmail(db *sqlx.DB, dispatcher *services.DispatchService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		user, err := database.GetUserByID(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "send test email", err)
			return
		}

		result := dispatcher.SendTestEmail(r.Context(), user)
		logger.Info("🧪 Test email",
			zap.String("user_id", user.ID),
			zap.Bool("success", result.Success),
			zap.String("message", result.Message),
		)
		utils.RespondJSON(w, http.StatusOK, result)
	}
}
