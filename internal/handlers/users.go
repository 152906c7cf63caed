package handlers

import (
	"net/http"
	"strings"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "user" or "admin"
}

type CreateUserResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

// CreateUser creates a new account
// Requires admin authentication
func CreateUser(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info("📥 REQUEST: POST /api/admin/users - Create new user")

		var req CreateUserRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// Validate required fields
		if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Email, password and name are required")
			return
		}
		email, err := models.NormalizeEmail(req.Email)
		if err != nil {
			utils.RespondFieldError(w, "email", "email: invalid email address")
			return
		}
		if req.Role == "" {
			req.Role = models.RoleUser
		}
		if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
			utils.RespondFieldError(w, "role", "Role must be 'user' or 'admin'")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("❌ Failed to hash password", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		user := &models.User{
			Email:    email,
			Password: string(hashedPassword),
			Name:     strings.TrimSpace(req.Name),
			Role:     req.Role,
		}
		if err := database.CreateUser(r.Context(), db, user); err != nil {
			respondServiceError(w, logger, "create user", err)
			return
		}

		logger.Info("✅ USER CREATED",
			zap.String("user_id", user.ID),
			zap.String("email", user.Email),
			zap.String("role", user.Role),
		)

		userResponse := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusCreated, CreateUserResponse{
			Success: true,
			User:    &userResponse,
			Message: "User created successfully",
		})
	}
}
