package handlers

import (
	"context"
	"errors"
	"net/http"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// loadVisibleDocument fetches a generated document the caller may access.
// Clients only see released (sent) documents on their own cases.
func loadVisibleDocument(c echo.Context, documentID string) (*models.GeneratedDocument, *models.Case, error) {
	user := middleware.GetCurrentUser(c)

	var doc models.GeneratedDocument
	if err := db.DB.First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, echo.NewHTTPError(http.StatusNotFound, "Document not found")
		}
		return nil, nil, serviceError(err)
	}

	var caseRecord models.Case
	if err := db.DB.First(&caseRecord, "id = ?", doc.CaseID).Error; err != nil {
		return nil, nil, serviceError(err)
	}

	if !user.IsAdmin() {
		if caseRecord.UserID != user.ID {
			return nil, nil, echo.NewHTTPError(http.StatusForbidden, "Access denied")
		}
		if !doc.VisibleToOwner() {
			// Unreleased documents are invisible to clients, not forbidden
			return nil, nil, echo.NewHTTPError(http.StatusNotFound, "Document not found")
		}
	}

	return &doc, &caseRecord, nil
}

// GetGeneratedDocumentHandler returns one generated document
// GET /api/documents/:id
func GetGeneratedDocumentHandler(c echo.Context) error {
	doc, _, err := loadVisibleDocument(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadDocumentPDFHandler serves the rendered PDF artifact. A stale or
// missing artifact is re-rendered on the fly.
// GET /api/documents/:id/pdf
func DownloadDocumentPDFHandler(c echo.Context) error {
	doc, caseRecord, err := loadVisibleDocument(c, c.Param("id"))
	if err != nil {
		return err
	}

	if doc.ArtifactKey != "" && !doc.ArtifactStale {
		reader, contentType, err := services.Storage.Get(context.Background(), doc.ArtifactKey)
		if err == nil {
			defer reader.Close()
			c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.Title+`.pdf"`)
			return c.Stream(http.StatusOK, contentType, reader)
		}
		// Fall through to a fresh render if the stored artifact is unreadable
	}

	pdf, err := services.RenderDocumentPDF(doc.Title, caseRecord.CaseNumber, doc.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render document")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.Title+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
