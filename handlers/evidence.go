package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// MaxEvidenceSize caps evidence uploads at 25 MB
const MaxEvidenceSize = 25 << 20

// UploadEvidenceHandler attaches an evidence file to a case
// POST /api/cases/:id/evidence
func UploadEvidenceHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	category := c.FormValue("category")
	if category == "" {
		category = models.DocumentCategoryOther
	}
	if !models.IsValidDocumentCategory(category) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid evidence category")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}
	if file.Size > MaxEvidenceSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File exceeds the 25MB limit")
	}

	key := services.GenerateEvidenceKey(caseRecord.UserID, caseRecord.ID, file.Filename)
	uploadResult, err := services.Storage.Upload(context.Background(), file, key)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Upload failed")
	}

	doc := models.CaseDocument{
		CaseID:           caseRecord.ID,
		UserID:           user.ID,
		Category:         category,
		FileName:         uploadResult.FileName,
		FileOriginalName: file.Filename,
		StorageKey:       uploadResult.Key,
		FileSize:         uploadResult.FileSize,
		MimeType:         uploadResult.MimeType,
	}
	if err := db.DB.Create(&doc).Error; err != nil {
		services.Storage.Delete(context.Background(), uploadResult.Key)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save document record")
	}

	return c.JSON(http.StatusCreated, doc)
}

// ListEvidenceHandler lists evidence attached to a case
// GET /api/cases/:id/evidence
func ListEvidenceHandler(c echo.Context) error {
	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	query := db.DB.Where("case_id = ?", caseRecord.ID)
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var docs []models.CaseDocument
	if err := query.Order("created_at DESC").Find(&docs).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, docs)
}

// DownloadEvidenceHandler serves an evidence file
// GET /api/cases/:id/evidence/:did
func DownloadEvidenceHandler(c echo.Context) error {
	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	var doc models.CaseDocument
	if err := db.DB.Where("id = ? AND case_id = ?", c.Param("did"), caseRecord.ID).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Document not found")
		}
		return serviceError(err)
	}

	// R2 serves via short-lived signed URL; local streams directly
	if _, ok := services.Storage.(*services.R2Storage); ok {
		url, err := services.Storage.GetSignedURL(context.Background(), doc.StorageKey, 15*time.Minute)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get download URL")
		}
		return c.Redirect(http.StatusTemporaryRedirect, url)
	}

	reader, contentType, err := services.Storage.Get(context.Background(), doc.StorageKey)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.FileOriginalName+`"`)
	return c.Stream(http.StatusOK, contentType, reader)
}

// DeleteEvidenceHandler removes an evidence file
// DELETE /api/cases/:id/evidence/:did
func DeleteEvidenceHandler(c echo.Context) error {
	caseRecord, err := loadOwnedCase(c, c.Param("id"))
	if err != nil {
		return err
	}

	var doc models.CaseDocument
	if err := db.DB.Where("id = ? AND case_id = ?", c.Param("did"), caseRecord.ID).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Document not found")
		}
		return serviceError(err)
	}

	services.Storage.Delete(context.Background(), doc.StorageKey)

	if err := db.DB.Delete(&doc).Error; err != nil {
		return serviceError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
