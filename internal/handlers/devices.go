package handlers

import (
	"net/http"
	"strings"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// RegisterDevice stores an FCM token so delivery outcomes can be pushed to the device
func RegisterDevice(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.RegisterDeviceRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Token = strings.TrimSpace(req.Token)
		req.DeviceType = strings.ToLower(strings.TrimSpace(req.DeviceType))
		if err := req.Validate(); err != nil {
			respondServiceError(w, logger, "register device", err)
			return
		}

		if err := database.UpsertDeviceToken(r.Context(), db, claims.UserID, req.Token, req.DeviceType); err != nil {
			respondServiceError(w, logger, "register device", err)
			return
		}

		logger.Info("📱 Device registered", zap.String("user_id", claims.UserID), zap.String("device_type", req.DeviceType))
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}
