package handlers

import (
	"net/http"
	"time"

	"cartrack-backend/internal/cache"
	"cartrack-backend/internal/database"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"
	"cartrack-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// GetUserDashboard aggregates the caller's reports, scoped to the active
// company when one is selected. dashboards may be nil.
func GetUserDashboard(db *sqlx.DB, resolver *services.CompanyResolver, dashboards *cache.DashboardCache, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := currentUser(w, r)
		if !ok {
			return
		}

		window, windowKey, err := parseWindow(r, loc)
		if err != nil {
			respondServiceError(w, logger, "load dashboard", err)
			return
		}

		filter := database.ReportFilter{UserID: claims.UserID}
		companyKey := ""
		if companyID, ok := resolver.Resolve(r.Context(), claims.UserID); ok {
			filter.CompanyID = &companyID
			companyKey = companyID
		}

		key := cache.UserKey(claims.UserID, companyKey, windowKey)
		var dashboard models.UserDashboard
		if dashboards.Get(r.Context(), key, &dashboard) {
			utils.RespondJSON(w, http.StatusOK, dashboard)
			return
		}

		reports, err := database.ListReports(r.Context(), db, filter)
		if err != nil {
			respondServiceError(w, logger, "load dashboard", err)
			return
		}

		dashboard = services.BuildUserDashboard(reports, time.Now(), loc, window)
		dashboard.CompanyID = filter.CompanyID
		dashboards.Set(r.Context(), key, dashboard)
		utils.RespondJSON(w, http.StatusOK, dashboard)
	}
}

// GetAdminDashboard aggregates every report and ranks the "user" accounts
// Requires admin authentication
func GetAdminDashboard(db *sqlx.DB, dashboards *cache.DashboardCache, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		window, windowKey, err := parseWindow(r, loc)
		if err != nil {
			respondServiceError(w, logger, "load admin dashboard", err)
			return
		}

		key := cache.AdminKey(windowKey)
		var dashboard models.AdminDashboard
		if dashboards.Get(r.Context(), key, &dashboard) {
			utils.RespondJSON(w, http.StatusOK, dashboard)
			return
		}

		reports, err := database.ListReports(r.Context(), db, database.ReportFilter{})
		if err != nil {
			respondServiceError(w, logger, "load admin dashboard", err)
			return
		}
		users, err := database.ListUsers(r.Context(), db)
		if err != nil {
			respondServiceError(w, logger, "load admin dashboard", err)
			return
		}

		ranked := make([]models.User, 0, len(users))
		for _, u := range users {
			if u.Role == models.RoleUser {
				ranked = append(ranked, u)
			}
		}

		dashboard = services.BuildAdminDashboard(reports, ranked, time.Now(), loc, window)
		dashboards.Set(r.Context(), key, dashboard)
		utils.RespondJSON(w, http.StatusOK, dashboard)
	}
}
