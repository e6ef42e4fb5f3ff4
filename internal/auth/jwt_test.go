package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return i
}

func TestGenerateAndValidate(t *testing.T) {
	i := newIssuer(t)
	tok, err := i.Generate(models.User{ID: "u1", Username: "ann", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := i.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ann", claims.Username)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateRejects(t *testing.T) {
	i := newIssuer(t)
	user := models.User{ID: "u1", Username: "ann", Role: models.RoleUser}

	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Generate(user)
	require.NoError(t, err)
	_, err = i.Validate(forged)
	assert.Error(t, err)

	expiredIssuer := newIssuer(t)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.Generate(user)
	require.NoError(t, err)
	_, err = i.Validate(expired)
	assert.Error(t, err)

	_, err = i.Validate("not-a-token")
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = i.Validate(unsigned)
	assert.Error(t, err)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.Header.Set(TokenHeader, "xyz")
	assert.Equal(t, "xyz", TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	i := newIssuer(t)
	var seen *Claims
	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"msg":"No token, authorization denied"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TokenHeader, "garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"msg":"Token is not valid"}`, rec.Body.String())

	tok, err := i.Generate(models.User{ID: "u1", Username: "ann", Role: models.RoleUser})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TokenHeader, tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u1", Role: models.RoleUser}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"msg":"Admin access required"}`, rec.Body.String())

	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u2", Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryToken(t *testing.T) {
	var got string
	h := QueryToken("token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TokenFromRequest(r)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil))
	assert.Equal(t, "abc", got)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	req.Header.Set("Authorization", "Bearer header-wins")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "header-wins", got)
}
