package handlers

import (
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

type contractRequest struct {
	Title      string   `json:"title"`
	ClientName string   `json:"client_name"`
	JobAddress string   `json:"job_address"`
	Value      *float64 `json:"value"`
	Content    string   `json:"content"`
}

func loadOwnedContract(c echo.Context, contractID string) (*models.Contract, error) {
	user := middleware.GetCurrentUser(c)

	var contract models.Contract
	if err := db.DB.First(&contract, "id = ?", contractID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Contract not found")
		}
		return nil, serviceError(err)
	}
	if !user.IsAdmin() && contract.UserID != user.ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}
	return &contract, nil
}

// CreateContractHandler creates a work contract, subject to the same
// entitlement gate as cases
// POST /api/contracts
func CreateContractHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req contractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" || req.ClientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title and client name are required")
	}

	var contract *models.Contract
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := services.CanCreate(tx, user.ID, services.EntityTypeContract); err != nil {
			return err
		}

		contract = &models.Contract{
			UserID:     user.ID,
			Title:      req.Title,
			ClientName: req.ClientName,
			JobAddress: req.JobAddress,
			Value:      req.Value,
			Status:     models.ContractStatusDraft,
			Version:    1,
			Content:    services.SanitizeDocumentHTML(req.Content),
		}
		return tx.Create(contract).Error
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, contract)
}

// ListContractsHandler lists the caller's contracts
// GET /api/contracts
func ListContractsHandler(c echo.Context) error {
	var contracts []models.Contract
	query := middleware.GetOwnerScopedQuery(c, db.DB.Model(&models.Contract{}))
	if err := query.Order("created_at DESC").Find(&contracts).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, contracts)
}

// GetContractHandler returns one contract with its timeline
// GET /api/contracts/:id
func GetContractHandler(c echo.Context) error {
	contract, err := loadOwnedContract(c, c.Param("id"))
	if err != nil {
		return err
	}

	if err := db.DB.Preload("TimelineEntries").
		First(contract, "id = ?", contract.ID).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, contract)
}

// UpdateContractHandler edits a draft or final contract, bumping its
// version. Signed contracts are immutable.
// PUT /api/contracts/:id
func UpdateContractHandler(c echo.Context) error {
	contract, err := loadOwnedContract(c, c.Param("id"))
	if err != nil {
		return err
	}
	if contract.IsSigned() {
		return echo.NewHTTPError(http.StatusConflict, "Signed contracts cannot be edited")
	}

	var req contractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updates := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.ClientName != "" {
		updates["client_name"] = req.ClientName
	}
	if req.JobAddress != "" {
		updates["job_address"] = req.JobAddress
	}
	if req.Value != nil {
		updates["value"] = *req.Value
	}
	if req.Content != "" {
		updates["content"] = services.SanitizeDocumentHTML(req.Content)
	}

	// Guard the edit on status so a concurrent sign wins cleanly
	result := db.DB.Model(&models.Contract{}).
		Where("id = ? AND status IN (?)", contract.ID,
			[]string{models.ContractStatusDraft, models.ContractStatusFinal}).
		Updates(updates)
	if result.Error != nil {
		return serviceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "Signed contracts cannot be edited")
	}

	if err := db.DB.First(contract, "id = ?", contract.ID).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, contract)
}

// FinalizeContractHandler moves a draft contract to final
// POST /api/contracts/:id/finalize
func FinalizeContractHandler(c echo.Context) error {
	contract, err := loadOwnedContract(c, c.Param("id"))
	if err != nil {
		return err
	}

	result := db.DB.Model(&models.Contract{}).
		Where("id = ? AND status = ?", contract.ID, models.ContractStatusDraft).
		Update("status", models.ContractStatusFinal)
	if result.Error != nil {
		return serviceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "Only draft contracts can be finalized")
	}

	if err := db.DB.First(contract, "id = ?", contract.ID).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, contract)
}

// SignContractHandler marks a final contract as signed
// POST /api/contracts/:id/sign
func SignContractHandler(c echo.Context) error {
	contract, err := loadOwnedContract(c, c.Param("id"))
	if err != nil {
		return err
	}

	now := time.Now()
	result := db.DB.Model(&models.Contract{}).
		Where("id = ? AND status = ?", contract.ID, models.ContractStatusFinal).
		Updates(map[string]interface{}{
			"status":    models.ContractStatusSigned,
			"signed_at": now,
		})
	if result.Error != nil {
		return serviceError(result.Error)
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "Only final contracts can be signed")
	}

	if err := db.DB.First(contract, "id = ?", contract.ID).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, contract)
}

// DownloadContractPDFHandler renders the contract body as a PDF
// GET /api/contracts/:id/pdf
func DownloadContractPDFHandler(c echo.Context) error {
	contract, err := loadOwnedContract(c, c.Param("id"))
	if err != nil {
		return err
	}

	pdf, err := services.RenderDocumentPDF(contract.Title, contract.ClientName, contract.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render contract")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+contract.Title+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
