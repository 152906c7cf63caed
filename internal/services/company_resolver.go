package services

import (
	"context"

	"cartrack-backend/internal/database"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// CompanyResolver maps a user to their selected company
type CompanyResolver struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCompanyResolver(db *sqlx.DB, logger *zap.Logger) *CompanyResolver {
	return &CompanyResolver{db: db, logger: logger}
}

// Resolve returns the user's active company. ok is false when no company is
// selected or the lookup fails; a failed lookup is logged and not surfaced.
func (r *CompanyResolver) Resolve(ctx context.Context, userID string) (companyID string, ok bool) {
	id, err := database.GetActiveCompanyID(ctx, r.db, userID)
	if err != nil {
		r.logger.Warn("⚠️  Active company lookup failed", zap.String("user_id", userID), zap.Error(err))
		return "", false
	}
	if id == nil || *id == "" {
		return "", false
	}
	return *id, true
}
