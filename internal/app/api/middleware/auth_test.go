package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	"github.com/crownline/pageant/pkg/types"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newAuthRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	r.GET("/secure", handlers...)
	return r
}

func TestAuthMiddleware_MissingTokenIsUnauthorized(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing bearer token")
}

func TestAuthMiddleware_WrongSecretIsUnauthorized(t *testing.T) {
	r := newAuthRouter()

	token := signToken(t, "someone-elses-secret", jwt.MapClaims{"user_id": "u-1", "role": "user"})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "invalid token")
}

func TestAuthMiddleware_MissingUserIDClaimIsUnauthorized(t *testing.T) {
	r := newAuthRouter()

	token := signToken(t, testSecret, jwt.MapClaims{"role": "user"})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing user_id claim")
}

func TestAuthMiddleware_ValidTokenSetsUserID(t *testing.T) {
	r := newAuthRouter()

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-42", "role": "user"})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "u-42")
}

func TestRequireRole_RejectsNonAdmin(t *testing.T) {
	r := newAuthRouter(RequireRole(types.RoleAdmin))

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-42", "role": "user"})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "insufficient role")
}

func TestRequireRole_AllowsAdmin(t *testing.T) {
	r := newAuthRouter(RequireRole(types.RoleAdmin))

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-1", "role": "admin"})
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
