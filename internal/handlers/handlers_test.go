package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cartrack-backend/internal/middleware"
	"cartrack-backend/internal/models"
	"cartrack-backend/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var userRowColumns = []string{
	"id", "email", "password", "name", "role",
	"smtp_email", "smtp_password", "smtp_host", "smtp_port", "smtp_use_tls", "is_email_configured",
	"created_at", "updated_at",
}

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

// serve routes one request through chi so URL params resolve, as the caller
func serve(handler http.HandlerFunc, method, pattern, target string, body interface{}, user *middleware.UserClaims) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), *user))
	}

	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

var washer = &middleware.UserClaims{UserID: "user-1", Email: "washer@example.com", Role: models.RoleUser}

func TestCreateRecipient_Success(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO email_recipients`).WillReturnResult(sqlmock.NewResult(1, 1))

	rec := serve(CreateRecipient(db, zap.NewNop()), http.MethodPost, "/api/recipients", "/api/recipients",
		map[string]interface{}{"email": "  Boss@Example.COM ", "name": "Boss"}, washer)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "boss@example.com", out["email"])
	assert.Equal(t, true, out["is_active"])
	assert.Equal(t, "user-1", out["user_id"])
}

func TestCreateRecipient_DuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO email_recipients`).WillReturnError(&pq.Error{Code: "23505"})

	rec := serve(CreateRecipient(db, zap.NewNop()), http.MethodPost, "/api/recipients", "/api/recipients",
		map[string]interface{}{"email": "boss@example.com"}, washer)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestCreateRecipient_InvalidEmail(t *testing.T) {
	db, _ := setupMockDB(t)

	rec := serve(CreateRecipient(db, zap.NewNop()), http.MethodPost, "/api/recipients", "/api/recipients",
		map[string]interface{}{"email": "not-an-address"}, washer)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode(t, rec)["field"])
}

func TestCreateRecipient_Unauthenticated(t *testing.T) {
	db, _ := setupMockDB(t)

	rec := serve(CreateRecipient(db, zap.NewNop()), http.MethodPost, "/api/recipients", "/api/recipients",
		map[string]interface{}{"email": "boss@example.com"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteRecipient_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec(`DELETE FROM email_recipients WHERE id = \$1 AND user_id = \$2`).
		WithArgs("missing", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := serve(DeleteRecipient(db, zap.NewNop()), http.MethodDelete, "/api/recipients/{id}", "/api/recipients/missing", nil, washer)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("user123"), bcrypt.MinCost)
	require.NoError(t, err)

	userRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(userRowColumns).AddRow(
			"user-1", "washer@example.com", string(hash), "Washer", "user",
			"", "", "smtp-mail.outlook.com", 587, true, false, int64(1), int64(1),
		)
	}

	t.Run("valid credentials", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).WithArgs("washer@example.com").WillReturnRows(userRow())

		rec := serve(Login(db, "secret", time.Hour, zap.NewNop()), http.MethodPost, "/api/auth/login", "/api/auth/login",
			LoginRequest{Email: "Washer@Example.com", Password: "user123"}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, "user-1", resp.User.ID)

		claims, err := middleware.ParseToken("secret", resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "user", claims.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).WillReturnRows(userRow())

		rec := serve(Login(db, "secret", time.Hour, zap.NewNop()), http.MethodPost, "/api/auth/login", "/api/auth/login",
			LoginRequest{Email: "washer@example.com", Password: "nope"}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, false, decode(t, rec)["ok"])
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).WillReturnRows(sqlmock.NewRows(userRowColumns))

		rec := serve(Login(db, "secret", time.Hour, zap.NewNop()), http.MethodPost, "/api/auth/login", "/api/auth/login",
			LoginRequest{Email: "ghost@example.com", Password: "x"}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUpdateSMTPSettings_NeverReturnsSecret(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			"user-1", "washer@example.com", "hash", "Washer", "user",
			"", "", "smtp-mail.outlook.com", 587, true, false, int64(1), int64(1),
		))
	mock.ExpectExec(`UPDATE users SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := serve(UpdateSMTPSettings(db, zap.NewNop()), http.MethodPut, "/api/profile/smtp", "/api/profile/smtp",
		map[string]interface{}{"smtp_email": "Sender@Outlook.com", "smtp_password": "app-password"}, washer)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "sender@outlook.com", out["smtp_email"])
	assert.Equal(t, true, out["is_email_configured"])
	assert.Equal(t, true, out["has_password"])
	assert.NotContains(t, rec.Body.String(), "app-password")
}

func TestSetActiveCompany_RequiresMembership(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("user-1", "company-9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	rec := serve(SetActiveCompany(db, zap.NewNop()), http.MethodPut, "/api/companies/active", "/api/companies/active",
		map[string]interface{}{"company_id": "company-9"}, washer)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "company_id", decode(t, rec)["field"])
}

func TestSetActiveCompany_Clear(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectExec(`INSERT INTO active_companies`).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := serve(SetActiveCompany(db, zap.NewNop()), http.MethodPut, "/api/companies/active", "/api/companies/active",
		map[string]interface{}{"company_id": nil}, washer)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["active_company_id"])
}

func newReportService(db *sqlx.DB) *services.ReportService {
	logger := zap.NewNop()
	return services.NewReportService(db, services.NewCompanyResolver(db, logger), nil, nil, nil, logger)
}

func TestListReports_RejectsUnknownStatus(t *testing.T) {
	db, _ := setupMockDB(t)

	rec := serve(ListReports(newReportService(db), zap.NewNop()), http.MethodGet, "/api/reports", "/api/reports?status=archived", nil, washer)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReport_ValidationError(t *testing.T) {
	db, _ := setupMockDB(t)

	rec := serve(CreateReport(newReportService(db), zap.NewNop()), http.MethodPost, "/api/reports", "/api/reports",
		map[string]interface{}{"ready_line": -1}, washer)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ready_line", decode(t, rec)["field"])
}

func TestSendReport_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM reports WHERE id = \$1 AND user_id = \$2`).
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := serve(SendReport(newReportService(db), zap.NewNop()), http.MethodPost, "/api/reports/{id}/send", "/api/reports/missing/send", nil, washer)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAdminDashboard_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT .+ FROM reports ORDER BY created_at DESC, id ASC`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY`).WillReturnRows(sqlmock.NewRows(userRowColumns))

	admin := &middleware.UserClaims{UserID: "admin-1", Role: models.RoleAdmin}
	rec := serve(GetAdminDashboard(db, nil, time.UTC, zap.NewNop()), http.MethodGet, "/api/admin/dashboard", "/api/admin/dashboard", nil, admin)

	require.Equal(t, http.StatusOK, rec.Code)
	var dashboard models.AdminDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	assert.Equal(t, 0, dashboard.Count)
	assert.Len(t, dashboard.Daily, services.DailyWindowDays)
	assert.Contains(t, dashboard.EmailStatus, models.DeliveryStatusNotSent)
	assert.Equal(t, float64(0), dashboard.PerformancePct)
}

func TestGetUserDashboard_ScopedToActiveCompany(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT user_id, company_id FROM active_companies`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id"}).AddRow("user-1", "company-1"))
	mock.ExpectQuery(`SELECT .+ FROM reports WHERE user_id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "company-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resolver := services.NewCompanyResolver(db, zap.NewNop())
	user := &middleware.UserClaims{UserID: "user-1", Role: models.RoleUser}
	rec := serve(GetUserDashboard(db, resolver, nil, time.UTC, zap.NewNop()), http.MethodGet, "/api/dashboard", "/api/dashboard", nil, user)

	require.Equal(t, http.StatusOK, rec.Code)
	var dashboard models.UserDashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dashboard))
	require.NotNil(t, dashboard.CompanyID)
	assert.Equal(t, "company-1", *dashboard.CompanyID)
	assert.Len(t, dashboard.Daily, services.DailyWindowDays)
}

func TestGetUserDashboard_NoActiveCompany(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(`SELECT user_id, company_id FROM active_companies`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id"}))
	mock.ExpectQuery(`SELECT .+ FROM reports WHERE user_id = \$1 ORDER BY`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resolver := services.NewCompanyResolver(db, zap.NewNop())
	user := &middleware.UserClaims{UserID: "user-1", Role: models.RoleUser}
	rec := serve(GetUserDashboard(db, resolver, nil, time.UTC, zap.NewNop()), http.MethodGet, "/api/dashboard", "/api/dashboard", nil, user)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body, "company_id")
	assert.Nil(t, body["company_id"])
}

type fixedClientCount int

func (n fixedClientCount) GetClientCount() int { return int(n) }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(fixedClientCount(3))(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","websocket_clients":3}`, rec.Body.String())
}

func TestParseWindow(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?from=2026-10-01&to=2026-10-18", nil)
	window, key, err := parseWindow(req, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, loc), window.From)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, loc), window.To)
	assert.Equal(t, "2026-10-01_2026-10-18", key)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	window, key, err = parseWindow(req, loc)
	require.NoError(t, err)
	assert.True(t, window.From.IsZero())
	assert.True(t, window.To.IsZero())
	assert.Equal(t, "all", key)

	for _, query := range []string{"from=18/10/2026", "to=yesterday", "from=2026-10-18&to=2026-10-01"} {
		req = httptest.NewRequest(http.MethodGet, "/api/dashboard?"+query, nil)
		_, _, err = parseWindow(req, loc)
		assert.Error(t, err, query)
	}
}
