package handlers

import (
	"errors"
	"net/http"
	"strings"

	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// GetCompanies lists the companies the caller belongs to and the active one
func GetCompanies(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		companies, err := database.ListUserCompanies(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "list companies", err)
			return
		}
		activeID, err := database.GetActiveCompanyID(r.Context(), db, claims.UserID)
		if err != nil {
			respondServiceError(w, logger, "list companies", err)
			return
		}

		utils.RespondJSON(w, http.StatusOK, models.CompaniesResponse{
			Companies:       companies,
			ActiveCompanyID: activeID,
		})
	}
}

// SetActiveCompany selects one of the caller's companies, or clears the
// selection when company_id is null
func SetActiveCompany(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req models.SetActiveCompanyRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.CompanyID != nil {
			member, err := database.IsCompanyMember(r.Context(), db, claims.UserID, *req.CompanyID)
			if err != nil {
				respondServiceError(w, logger, "set active company", err)
				return
			}
			if !member {
				utils.RespondFieldError(w, "company_id", "company_id: you are not a member of this company")
				return
			}
		}

		if err := database.SetActiveCompany(r.Context(), db, claims.UserID, req.CompanyID); err != nil {
			respondServiceError(w, logger, "set active company", err)
			return
		}

		logger.Info("🏢 Active company changed",
			zap.String("user_id", claims.UserID),
			zap.Stringp("company_id", req.CompanyID),
		)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":           true,
			"active_company_id": req.CompanyID,
		})
	}
}

// CreateCompany creates a company
// Requires admin authentication
func CreateCompany(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateCompanyRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			utils.RespondFieldError(w, "name", "name: is required")
			return
		}

		company, err := database.CreateCompany(r.Context(), db, name, strings.TrimSpace(req.City))
		if err != nil {
			respondServiceError(w, logger, "create company", err)
			return
		}

		logger.Info("🏢 Company created", zap.String("company_id", company.ID), zap.String("name", company.Name))
		utils.RespondJSON(w, http.StatusCreated, company)
	}
}

// AddCompanyMember links a user to a company
// Requires admin authentication
func AddCompanyMember(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID := chi.URLParam(r, "id")

		var req models.AddMemberRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.UserID == "" {
			utils.RespondFieldError(w, "user_id", "user_id: is required")
			return
		}

		if _, err := database.GetCompany(r.Context(), db, companyID); err != nil {
			respondServiceError(w, logger, "add company member", err)
			return
		}
		if _, err := database.GetUserByID(r.Context(), db, req.UserID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				utils.RespondFieldError(w, "user_id", "user_id: user does not exist")
				return
			}
			respondServiceError(w, logger, "add company member", err)
			return
		}

		if err := database.AddCompanyMember(r.Context(), db, companyID, req.UserID); err != nil {
			respondServiceError(w, logger, "add company member", err)
			return
		}

		logger.Info("🔗 User linked to company", zap.String("company_id", companyID), zap.String("user_id", req.UserID))
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success":    true,
			"company_id": companyID,
			"user_id":    req.UserID,
		})
	}
}
