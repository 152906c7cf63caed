package handlers

import (
	"errors"
	"net/http"
	"time"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/middleware"
	"cartrack-backend/internal/models"
	"cartrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK    bool                 `json:"ok"`
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"user,omitempty"`
}

func Login(db *sqlx.DB, jwtSecret string, ttl time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		logger.Info("🔐 Login attempt", zap.String("email", req.Email))

		// Find user by email
		user, err := database.GetUserByEmail(r.Context(), db, req.Email)
		if errors.Is(err, database.ErrNotFound) {
			logger.Info("❌ User not found", zap.String("email", req.Email))
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}
		if err != nil {
			respondServiceError(w, logger, "log in", err)
			return
		}

		// Verify password
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			logger.Info("❌ Invalid password", zap.String("email", req.Email))
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		tokenString, err := middleware.IssueToken(jwtSecret, middleware.UserClaims{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role,
		}, ttl)
		if err != nil {
			logger.Error("❌ Failed to create token", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		userResponse := user.ToUserResponse()
		logger.Info("✅ Login successful", zap.String("email", user.Email), zap.String("role", user.Role))

		utils.RespondJSON(w, http.StatusOK, LoginResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

// Me returns the authenticated user
func Me(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		user, err := database.GetUserByID(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "load user", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, user.ToUserResponse())
	}
}
