package handlers

import (
	"net/http"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
)

type reviewDocumentRequest struct {
	Status string `json:"status"` // approved, rejected or pending_review
	Note   string `json:"note"`
}

type updateDocumentRequest struct {
	Content string `json:"content"`
}

// ListReviewQueueHandler lists generated documents awaiting admin review
// GET /api/admin/documents
func ListReviewQueueHandler(c echo.Context) error {
	query := db.DB.Model(&models.GeneratedDocument{}).Order("created_at ASC")

	status := c.QueryParam("status")
	if status == "" {
		query = query.Where("status IN (?)", []string{
			models.GeneratedDocStatusDraft, models.GeneratedDocStatusPendingReview,
		})
	} else {
		if !models.IsValidGeneratedDocStatus(status) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid document status")
		}
		query = query.Where("status = ?", status)
	}

	var docs []models.GeneratedDocument
	if err := query.Preload("Case").Find(&docs).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, docs)
}

// ReviewDocumentHandler applies the admin decision to a draft document
// PUT /api/admin/documents/:id/review
func ReviewDocumentHandler(c echo.Context) error {
	admin := middleware.GetCurrentUser(c)

	var req reviewDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	doc, err := services.ReviewGeneratedDocument(db.DB, c.Param("id"), admin.ID, req.Status, req.Note)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, doc)
}

// UpdateDocumentContentHandler edits a document body. Editing a sent
// document marks its PDF artifact stale and queues a re-render.
// PUT /api/admin/documents/:id
func UpdateDocumentContentHandler(c echo.Context) error {
	var req updateDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Content is required")
	}

	doc, err := services.UpdateGeneratedDocumentContent(db.DB,
		c.Param("id"), services.SanitizeDocumentHTML(req.Content))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, doc)
}

// SendDocumentHandler releases an approved document to the case owner
// POST /api/admin/documents/:id/send
func SendDocumentHandler(c echo.Context) error {
	doc, err := services.SendGeneratedDocument(db.DB, c.Param("id"))
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, doc)
}
