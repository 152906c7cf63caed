package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func protected(role string) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := GetUserFromContext(r)
		w.Write([]byte(claims.UserID))
	})
	var h http.Handler = final
	if role != "" {
		h = RequireRole(role)(h)
	}
	return Auth(testSecret, zap.NewNop())(h)
}

func request(t *testing.T, h http.Handler, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testSecret, UserClaims{UserID: "u1", Email: "a@b.com", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, UserClaims{UserID: "u1", Email: "a@b.com", Role: "admin"}, claims)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, err := IssueToken(testSecret, UserClaims{UserID: "u1", Role: "user"}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "u1",
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, signed)
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	token, err := IssueToken(testSecret, UserClaims{UserID: "u1", Role: "user"}, time.Hour)
	require.NoError(t, err)

	rec := request(t, protected(""), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	for _, header := range []string{"", "Bearer", "Token " + token, "Bearer garbage"} {
		rec := request(t, protected(""), header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.JSONEq(t, `{"success":false,"error":"Unauthorized"}`, rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	userToken, err := IssueToken(testSecret, UserClaims{UserID: "u1", Role: "user"}, time.Hour)
	require.NoError(t, err)
	adminToken, err := IssueToken(testSecret, UserClaims{UserID: "a1", Role: "admin"}, time.Hour)
	require.NoError(t, err)

	rec := request(t, protected("admin"), "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(t, protected("admin"), "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", rec.Body.String())
}
