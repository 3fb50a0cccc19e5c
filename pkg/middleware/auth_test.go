package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/stretchr/testify/assert"
)

const testJWTSecret = "test-secret-key-for-testing-only"

func generateTestToken(role models.UserRole, expiresIn time.Duration, secret string) string {
	claims := Claims{
		UserID: uuid.New(),
		Email:  "ops@example.com",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(secret))
	return tokenString
}

func setupAdminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())

	admin := router.Group("/admin")
	admin.Use(AuthMiddleware(testJWTSecret), RequireAdmin())
	admin.DELETE("/cache", func(c *gin.Context) {
		_, err := GetUserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAdminRouter()

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"expired token", "Bearer " + generateTestToken(models.RoleAdmin, -time.Hour, testJWTSecret), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + generateTestToken(models.RoleAdmin, time.Hour, "other"), http.StatusUnauthorized},
		{"customer role", "Bearer " + generateTestToken(models.RoleCustomer, time.Hour, testJWTSecret), http.StatusForbidden},
		{"admin role", "Bearer " + generateTestToken(models.RoleAdmin, time.Hour, testJWTSecret), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestCorrelationID_PropagatesToRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())

	var fromLogger, fromGin string
	router.GET("/ping", func(c *gin.Context) {
		fromLogger = logger.CorrelationIDFromContext(c.Request.Context())
		fromGin = GetCorrelationID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", fromLogger)
	assert.Equal(t, "req-42", fromGin)
	assert.Equal(t, "req-42", w.Header().Get(CorrelationIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	_, err := uuid.Parse(w.Header().Get(CorrelationIDHeader))
	assert.NoError(t, err)
}

func TestRecovery_ReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}
