package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"tradie_legal_go/config"
	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Initialize Storage for tests if not already set
	if services.Storage == nil {
		services.Storage = services.NewLocalStorage("tmp/test_uploads")
	}

	require.NoError(t, testDB.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Subscription{},
		&models.Application{},
		&models.Case{},
		&models.CaseDocument{},
		&models.GeneratedDocument{},
		&models.Contract{},
		&models.TimelineEntry{},
		&models.Notification{},
		&models.OutboxTask{},
	))

	// Set global DB
	db.DB = testDB

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment:   "test",
		EmailTestMode: true,
	})

	return e, c, rec
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func createHandlerUser(t *testing.T, testDB *gorm.DB, email, role string) *models.User {
	hash, err := services.HashPassword("correct-horse-1")
	require.NoError(t, err)

	user := &models.User{
		FullName: "Dave Builder",
		Email:    email,
		Password: hash,
		Trade:    "carpentry",
		State:    "QLD",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func asUser(c echo.Context, user *models.User) {
	c.Set(middleware.ContextKeyUser, user)
}

func httpCode(t *testing.T, err error) int {
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return httpErr.Code
}

func createHandlerCase(t *testing.T, testDB *gorm.DB, userID, caseNumber string) *models.Case {
	caseRecord := &models.Case{
		UserID:     userID,
		CaseNumber: caseNumber,
		Title:      "carpentry dispute - QLD",
		IssueType:  models.IssueTypePaymentDispute,
		State:      "QLD",
		Status:     models.CaseStatusActive,
		Progress:   models.ProgressCreated,
	}
	require.NoError(t, testDB.Create(caseRecord).Error)
	return caseRecord
}
