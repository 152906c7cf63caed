package handlers

import (
	"net/http"
	"strings"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ListRecipients returns the caller's recipients ordered by email
func ListRecipients(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		recipients, err := database.ListRecipients(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "list recipients", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, recipients)
	}
}

// CreateRecipient adds an address. An address the caller already has is a 409.
func CreateRecipient(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.CreateRecipientRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		email, err := models.NormalizeEmail(req.Email)
		if err != nil {
			utils.RespondFieldError(w, "email", "email: invalid email address")
			return
		}

		recipient := &models.EmailRecipient{
			UserID:   claims.UserID,
			Email:    email,
			Name:     strings.TrimSpace(req.Name),
			IsActive: true,
		}
		if req.IsActive != nil {
			recipient.IsActive = *req.IsActive
		}

		if err := database.CreateRecipient(r.Context(), db, recipient); err != nil {
			respondServiceError(w, logger, "create recipient", err)
			return
		}

		logger.Info("📇 Recipient added", zap.String("user_id", claims.UserID), zap.String("email", email))
		utils.RespondJSON(w, http.StatusCreated, recipient)
	}
}

// UpdateRecipient renames a recipient or toggles it active
func UpdateRecipient(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.UpdateRecipientRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		recipient, err := database.GetRecipient(r.Context(), db, chi.URLParam(r, "id"), claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "update recipient", err)
			return
		}
		if req.Name != nil {
			recipient.Name = strings.TrimSpace(*req.Name)
		}
		if req.IsActive != nil {
			recipient.IsActive = *req.IsActive
		}

		if err := database.UpdateRecipient(r.Context(), db, recipient); err != nil {
			respondServiceError(w, logger, "update recipient", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, recipient)
	}
}

func DeleteRecipient(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		if err := database.DeleteRecipient(r.Context(), db, chi.URLParam(r, "id"), claims.UserID); err != nil {
			respondServiceError(w, logger, "delete recipient", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
