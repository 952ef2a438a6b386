package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tradie_legal_go/db"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMiddlewareTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&models.User{}, &models.Session{}, &models.Case{}))

	// Set the global DB variable used by middleware
	db.DB = testDB
	return testDB
}

func createMiddlewareUser(t *testing.T, testDB *gorm.DB, email, role string, active bool) *models.User {
	user := &models.User{
		FullName: "Test User",
		Email:    email,
		Password: "hashed",
		Role:     role,
		IsActive: active,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func authedContext(e *echo.Echo, token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "success")
}

func TestRequireAuth(t *testing.T) {
	testDB := setupMiddlewareTestDB(t)
	e := echo.New()

	user := createMiddlewareUser(t, testDB, "dave@example.com", models.RoleClient, true)
	session, err := services.CreateSession(testDB, user.ID, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	handler := RequireAuth()(okHandler)

	t.Run("ValidToken", func(t *testing.T) {
		c, rec := authedContext(e, session.Token)
		require.NoError(t, handler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, GetCurrentUser(c))
		assert.Equal(t, user.ID, GetCurrentUser(c).ID)
		require.NotNil(t, GetCurrentSession(c))
		assert.Equal(t, session.ID, GetCurrentSession(c).ID)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		c, _ := authedContext(e, "")
		err := handler(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		c, _ := authedContext(e, "not-a-real-token")
		err := handler(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
		req.Header.Set(echo.HeaderAuthorization, session.Token) // no Bearer prefix
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		disabled := createMiddlewareUser(t, testDB, "gone@example.com", models.RoleClient, false)
		disabledSession, err := services.CreateSession(testDB, disabled.ID, "", "")
		require.NoError(t, err)

		c, _ := authedContext(e, disabledSession.Token)
		handlerErr := handler(c)
		require.Error(t, handlerErr)
		httpErr, ok := handlerErr.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	testDB := setupMiddlewareTestDB(t)
	e := echo.New()

	admin := createMiddlewareUser(t, testDB, "admin@example.com", models.RoleAdmin, true)
	client := createMiddlewareUser(t, testDB, "client@example.com", models.RoleClient, true)

	handler := RequireRole(models.RoleAdmin)(okHandler)

	t.Run("AdminAllowed", func(t *testing.T) {
		c, rec := authedContext(e, "")
		c.Set(ContextKeyUser, admin)
		require.NoError(t, handler(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ClientForbidden", func(t *testing.T) {
		c, _ := authedContext(e, "")
		c.Set(ContextKeyUser, client)
		err := handler(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		c, _ := authedContext(e, "")
		err := handler(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	})
}

func TestGetOwnerScopedQuery(t *testing.T) {
	testDB := setupMiddlewareTestDB(t)
	e := echo.New()

	admin := createMiddlewareUser(t, testDB, "admin@example.com", models.RoleAdmin, true)
	owner := createMiddlewareUser(t, testDB, "owner@example.com", models.RoleClient, true)
	other := createMiddlewareUser(t, testDB, "other@example.com", models.RoleClient, true)

	for i, userID := range []string{owner.ID, other.ID} {
		require.NoError(t, testDB.Create(&models.Case{
			UserID:     userID,
			CaseNumber: "TS-2026-0000" + string(rune('1'+i)),
			Title:      "dispute",
			IssueType:  models.IssueTypePaymentDispute,
			State:      "NSW",
			Status:     models.CaseStatusActive,
		}).Error)
	}

	countFor := func(user *models.User) int64 {
		c, _ := authedContext(e, "")
		if user != nil {
			c.Set(ContextKeyUser, user)
		}
		var count int64
		require.NoError(t, GetOwnerScopedQuery(c, testDB.Model(&models.Case{})).Count(&count).Error)
		return count
	}

	assert.Equal(t, int64(2), countFor(admin))
	assert.Equal(t, int64(1), countFor(owner))
	assert.Equal(t, int64(0), countFor(nil))
}
