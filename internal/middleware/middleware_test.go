package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   c.GetString("user_id"),
			"tenant_id": c.GetString("tenant_id"),
		})
	})
	r.GET("/admin", JWTAuth(testSecret), RequirePermission("wms:execute"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_SetsTenant(t *testing.T) {
	r := newAuthRouter()
	token := signToken(t, jwt.MapClaims{
		"uid": "u1",
		"tid": "tenant-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := doGet(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"tenant-1"`)
	assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestJWTAuth_MissingToken(t *testing.T) {
	w := doGet(newAuthRouter(), "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_MissingTenant(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"uid": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	w := doGet(newAuthRouter(), "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestJWTAuth_Expired(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"uid": "u1",
		"tid": "tenant-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	w := doGet(newAuthRouter(), "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission(t *testing.T) {
	r := newAuthRouter()
	denied := signToken(t, jwt.MapClaims{"uid": "u1", "tid": "t1", "perms": []string{"wms:read"}})
	allowed := signToken(t, jwt.MapClaims{"uid": "u1", "tid": "t1", "perms": []string{"*"}})

	assert.Equal(t, http.StatusForbidden, doGet(r, "/admin", denied).Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/admin", allowed).Code)
}

func TestRequestID_Echo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}
