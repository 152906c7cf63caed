package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/middleware"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"
	"cartrack-backend/pkg/utils"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// respondServiceError maps domain errors onto status codes; anything else is a 500
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, action string, err error) {
	var validationErr *models.ValidationError
	var preconditionErr *services.PreconditionError

	switch {
	case errors.As(err, &validationErr):
		utils.RespondFieldError(w, validationErr.Field, validationErr.Error())
	case errors.As(err, &preconditionErr):
		utils.RespondError(w, http.StatusBadRequest, preconditionErr.Message)
	case errors.Is(err, database.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrAlreadySent):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrDuplicateRecipient), errors.Is(err, database.ErrDuplicateEmail):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("❌ "+action+" failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// currentUser returns the authenticated claims or writes a 401
func currentUser(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return claims, ok
}

// parseWindow reads the optional from/to query dates. Both are inclusive
// calendar days in loc. The key identifies the window in cache keys.
func parseWindow(r *http.Request, loc *time.Location) (services.DashboardWindow, string, error) {
	var window services.DashboardWindow
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")

	if fromRaw != "" {
		from, err := time.ParseInLocation(dateLayout, fromRaw, loc)
		if err != nil {
			return window, "", &models.ValidationError{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		window.From = from
	}
	if toRaw != "" {
		to, err := time.ParseInLocation(dateLayout, toRaw, loc)
		if err != nil {
			return window, "", &models.ValidationError{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		window.To = to.AddDate(0, 0, 1)
	}
	if !window.From.IsZero() && !window.To.IsZero() && !window.From.Before(window.To) {
		return window, "", &models.ValidationError{Field: "to", Message: "must not be before from"}
	}

	if fromRaw == "" && toRaw == "" {
		return window, "all", nil
	}
	return window, fmt.Sprintf("%s_%s", fromRaw, toRaw), nil
}
