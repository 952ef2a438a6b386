package handlers

import (
	"errors"
	"net/http"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type createCaseRequest struct {
	Title         string   `json:"title"`
	IssueType     string   `json:"issue_type"`
	State         string   `json:"state"`
	ClaimedAmount *float64 `json:"claimed_amount"`
}

type generateDocumentRequest struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// loadOwnedCase fetches a case the caller may access, or an HTTP error
func loadOwnedCase(c echo.Context, caseID string) (*models.Case, error) {
	user := middleware.GetCurrentUser(c)

	var caseRecord models.Case
	if err := db.DB.First(&caseRecord, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Case not found")
		}
		return nil, serviceError(err)
	}
	if !user.IsAdmin() && caseRecord.UserID != user.ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}
	return &caseRecord, nil
}

// CreateCaseHandler opens a self-serve case, subject to the entitlement
// gate. The gate check and the insert share a transaction so two
// simultaneous requests cannot both squeeze under the free-tier limit.
// POST /api/cases
func CreateCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title is required")
	}
	if !models.IsValidIssueType(req.IssueType) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid issue type")
	}
	if !models.IsValidAustralianState(req.State) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid state code")
	}

	var caseRecord *models.Case
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := services.CanCreate(tx, user.ID, services.EntityTypeCase); err != nil {
			return err
		}

		caseNumber, err := services.NextCaseNumber(tx)
		if err != nil {
			return err
		}

		caseRecord = &models.Case{
			UserID:        user.ID,
			CaseNumber:    caseNumber,
			Title:         req.Title,
			IssueType:     req.IssueType,
			State:         req.State,
			Status:        models.CaseStatusActive,
			Progress:      models.ProgressCreated,
			ClaimedAmount: req.ClaimedAmount,
		}
		return tx.Create(caseRecord).Error
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, caseRecord)
}

// ListCasesHandler lists the caller's cases (all cases for admins)
// GET /api/cases
func ListCasesHandler(c echo.Context) error {
	var cases []models.Case
	query := middleware.GetOwnerScopedQuery(c, db.DB.Model(&models.Case{}))
	if err := query.Order("created_at DESC").Find(&cases).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, cases)
}

// GetCaseHandler returns a case with its timeline and released documents
// GET /api/cases/:id
func GetCaseHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	if err := db.DB.Preload("TimelineEntries", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("due_at ASC, created_at ASC")
	}).Preload("Documents").First(caseRecord, "id = ?", caseRecord.ID).Error; err != nil {
		return serviceError(err)
	}

	// Clients only see released deliverables; admins see every state
	docQuery := db.DB.Where("case_id = ?", caseRecord.ID)
	if !user.IsAdmin() {
		docQuery = docQuery.Where("status = ?", models.GeneratedDocStatusSent)
	}
	if err := docQuery.Order("created_at DESC").
		Find(&caseRecord.GeneratedDocuments).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, caseRecord)
}

// UpdateCaseStatusHandler moves a case between active, on_hold and resolved
// PUT /api/cases/:id/status
func UpdateCaseStatusHandler(c echo.Context) error {
	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if !models.IsValidCaseStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid case status")
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Status == models.CaseStatusResolved {
		updates["resolved_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}
	if err := db.DB.Model(caseRecord).Updates(updates).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, caseRecord)
}

// GenerateDocumentHandler queues AI drafting of a new deliverable (admin)
// POST /api/admin/cases/:id/documents
func GenerateDocumentHandler(c echo.Context) error {
	var req generateDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	switch req.Type {
	case models.GeneratedDocTypeStrategyLetter, models.GeneratedDocTypeDemandLetter, models.GeneratedDocTypeAdjudication:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid document type")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title is required")
	}

	doc, err := services.StartDocumentGeneration(db.DB, c.Param("id"), req.Type, req.Title)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusAccepted, doc)
}
