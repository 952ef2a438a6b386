package handlers

import (
	"fmt"
	"net/http"
	"time"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
)

type reviewApplicationRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
	Note     string `json:"note"`
}

// ListApplicationsHandler lists applications for the admin queue, optionally
// filtered by workflow stage
// GET /api/admin/applications
func ListApplicationsHandler(c echo.Context) error {
	query := db.DB.Model(&models.Application{}).Order("created_at DESC")

	if stage := c.QueryParam("stage"); stage != "" {
		if !models.IsValidWorkflowStage(stage) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid workflow stage")
		}
		query = query.Where("workflow_stage = ?", stage)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, apps)
}

// ReviewApplicationHandler records the admin decision on an application
// POST /api/admin/applications/:id/review
func ReviewApplicationHandler(c echo.Context) error {
	admin := middleware.GetCurrentUser(c)

	var req reviewApplicationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	var approve bool
	switch req.Decision {
	case "approve":
		approve = true
	case "reject":
		if req.Note == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "A rejection note is required")
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Decision must be approve or reject")
	}

	app, err := services.ReviewApplication(db.DB, c.Param("id"), admin.ID, approve, req.Note)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, app)
}

// ExportApplicationsHandler streams an Excel export of applications
// GET /api/admin/applications/export
func ExportApplicationsHandler(c echo.Context) error {
	filter := services.ApplicationReportFilter{
		WorkflowStage: c.QueryParam("stage"),
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		filter.From = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Second)
		filter.To = &end
	}

	buf, err := services.GenerateApplicationsReport(db.DB, filter)
	if err != nil {
		return serviceError(err)
	}

	filename := fmt.Sprintf("applications_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
