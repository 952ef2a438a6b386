package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SubmitApplicationHandler accepts the public enquiry form
// POST /api/applications
func SubmitApplicationHandler(c echo.Context) error {
	var input services.ApplicationInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.FullName == "" || input.Email == "" || input.Trade == "" || input.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name, email, trade and description are required")
	}
	if !models.IsValidAustralianState(input.State) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid state code")
	}
	if !models.IsValidIssueType(input.IssueType) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid issue type")
	}
	if input.ClaimedAmount != nil && *input.ClaimedAmount < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Claimed amount cannot be negative")
	}

	app, err := services.SubmitApplication(db.DB, input)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, app)
}

// GetApplicationHandler returns one application. Clients only see their own.
// GET /api/applications/:id
func GetApplicationHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var app models.Application
	if err := db.DB.First(&app, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Application not found")
		}
		return serviceError(err)
	}

	if !user.IsAdmin() && (app.UserID == nil || *app.UserID != user.ID) {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	return c.JSON(http.StatusOK, app)
}

// ListMyApplicationsHandler lists the caller's applications
// GET /api/applications
func ListMyApplicationsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var apps []models.Application
	if err := db.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, apps)
}

// CompleteIntakeHandler stores the detailed intake form and advances the
// application to pdf_generation
// POST /api/applications/:id/intake
func CompleteIntakeHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	applicationID := c.Param("id")

	var app models.Application
	if err := db.DB.First(&app, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Application not found")
		}
		return serviceError(err)
	}
	if !user.IsAdmin() && (app.UserID == nil || *app.UserID != user.ID) {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}

	// The intake payload is stored as submitted; validate it is JSON
	body := make(map[string]interface{})
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Intake data must be a JSON object")
	}
	if len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Intake data is required")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Intake data must be a JSON object")
	}

	updated, err := services.CompleteIntake(db.DB, applicationID, string(raw))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, updated)
}
