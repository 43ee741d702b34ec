package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healwise-server/internal/config"
	"healwise-server/internal/models"
	"healwise-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret-for-tests",
		JWTRefreshSecret:          "refresh-secret-for-tests",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 168,
	}
}

func authTestRouter(cfg *config.Config, roles ...models.Role) *gin.Engine {
	router := gin.New()
	group := router.Group("/", AuthMiddleware(cfg))
	if len(roles) > 0 {
		group.Use(RoleAuthMiddleware(roles...))
	}
	group.GET("/protected", func(c *gin.Context) {
		userID, _ := GetUserIDFromContext(c)
		role, _ := GetUserRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userID": userID, "role": role})
	})
	return router
}

func bearerFor(t *testing.T, cfg *config.Config, role models.Role) string {
	t.Helper()
	user := &models.User{
		BaseModel: models.BaseModel{ID: "8a1b4c2d-0f3e-4a5b-8c7d-9e0f1a2b3c4d"},
		Role:      role,
	}
	access, _, err := utils.GenerateTokens(user, cfg)
	require.NoError(t, err)
	return "Bearer " + access
}

func TestAuthMiddleware(t *testing.T) {
	cfg := authTestConfig()
	router := authTestRouter(cfg)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token passes identity through", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", bearerFor(t, cfg, models.RolePatient))
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "8a1b4c2d-0f3e-4a5b-8c7d-9e0f1a2b3c4d")
		assert.Contains(t, w.Body.String(), string(models.RolePatient))
	})
}

func TestRoleAuthMiddleware(t *testing.T) {
	cfg := authTestConfig()
	router := authTestRouter(cfg, models.RoleAdmin, models.RoleDoctor)

	t.Run("allowed role", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", bearerFor(t, cfg, models.RoleDoctor))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forbidden role", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", bearerFor(t, cfg, models.RolePatient))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
