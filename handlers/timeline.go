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

type timelineEntryRequest struct {
	CaseID      *string    `json:"case_id"`
	ContractID  *string    `json:"contract_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"due_at"`
}

func loadOwnedTimelineEntry(c echo.Context, entryID string) (*models.TimelineEntry, error) {
	user := middleware.GetCurrentUser(c)

	var entry models.TimelineEntry
	if err := db.DB.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Timeline entry not found")
		}
		return nil, serviceError(err)
	}
	if !user.IsAdmin() && entry.UserID != user.ID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}
	return &entry, nil
}

// CreateTimelineEntryHandler adds a milestone, deadline or note to a case
// or contract
// POST /api/timeline
func CreateTimelineEntryHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var req timelineEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Title is required")
	}
	if req.Type == "" {
		req.Type = models.TimelineTypeNote
	}
	if !models.IsValidTimelineType(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid entry type")
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(req.Priority) {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid priority")
	}
	if (req.CaseID == nil) == (req.ContractID == nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "Exactly one of case_id or contract_id is required")
	}
	if req.Type == models.TimelineTypeDeadline && req.DueAt == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Deadlines require a due date")
	}

	// Ownership of the parent record
	if req.CaseID != nil {
		if _, err := loadOwnedCase(c, *req.CaseID); err != nil {
			return err
		}
	} else {
		if _, err := loadOwnedContract(c, *req.ContractID); err != nil {
			return err
		}
	}

	entry := models.TimelineEntry{
		UserID:      user.ID,
		CaseID:      req.CaseID,
		ContractID:  req.ContractID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.TimelineStatusPending,
		DueAt:       req.DueAt,
	}
	if err := db.DB.Create(&entry).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// ListTimelineEntriesHandler lists the caller's entries, optionally
// filtered to upcoming deadlines
// GET /api/timeline
func ListTimelineEntriesHandler(c echo.Context) error {
	query := middleware.GetOwnerScopedQuery(c, db.DB.Model(&models.TimelineEntry{}))

	if caseID := c.QueryParam("case_id"); caseID != "" {
		query = query.Where("case_id = ?", caseID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if c.QueryParam("upcoming") == "true" {
		query = query.Where("due_at IS NOT NULL AND due_at >= ?", time.Now()).
			Where("status = ?", models.TimelineStatusPending)
	}

	var entries []models.TimelineEntry
	if err := query.Order("due_at ASC, created_at DESC").Find(&entries).Error; err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, entries)
}

// UpdateTimelineEntryHandler edits a user-authored entry
// PUT /api/timeline/:id
func UpdateTimelineEntryHandler(c echo.Context) error {
	entry, err := loadOwnedTimelineEntry(c, c.Param("id"))
	if err != nil {
		return err
	}
	if entry.SystemAuthored {
		return echo.NewHTTPError(http.StatusForbidden, "System entries cannot be edited")
	}

	var req timelineEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Priority != "" {
		if !models.IsValidPriority(req.Priority) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid priority")
		}
		updates["priority"] = req.Priority
	}
	if req.DueAt != nil {
		updates["due_at"] = *req.DueAt
		// A moved due date re-arms the reminder
		updates["reminder_sent_at"] = nil
		if entry.Status == models.TimelineStatusOverdue && req.DueAt.After(time.Now()) {
			updates["status"] = models.TimelineStatusPending
		}
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, entry)
	}

	if err := db.DB.Model(entry).Updates(updates).Error; err != nil {
		return serviceError(err)
	}
	if err := db.DB.First(entry, "id = ?", entry.ID).Error; err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

// CompleteTimelineEntryHandler marks an entry done
// POST /api/timeline/:id/complete
func CompleteTimelineEntryHandler(c echo.Context) error {
	entry, err := loadOwnedTimelineEntry(c, c.Param("id"))
	if err != nil {
		return err
	}

	now := time.Now()
	if err := db.DB.Model(entry).Updates(map[string]interface{}{
		"status":       models.TimelineStatusCompleted,
		"completed_at": now,
	}).Error; err != nil {
		return serviceError(err)
	}

	entry.Status = models.TimelineStatusCompleted
	entry.CompletedAt = &now
	return c.JSON(http.StatusOK, entry)
}

// DeleteTimelineEntryHandler removes a user-authored entry
// DELETE /api/timeline/:id
func DeleteTimelineEntryHandler(c echo.Context) error {
	entry, err := loadOwnedTimelineEntry(c, c.Param("id"))
	if err != nil {
		return err
	}
	if entry.SystemAuthored {
		return echo.NewHTTPError(http.StatusForbidden, "System entries cannot be deleted")
	}

	if err := db.DB.Delete(entry).Error; err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DownloadTimelineICSHandler exports an entry as a calendar event
// GET /api/timeline/:id/ics
func DownloadTimelineICSHandler(c echo.Context) error {
	entry, err := loadOwnedTimelineEntry(c, c.Param("id"))
	if err != nil {
		return err
	}

	caseNumber := ""
	if entry.CaseID != nil {
		var caseRecord models.Case
		if err := db.DB.Select("case_number").First(&caseRecord, "id = ?", *entry.CaseID).Error; err == nil {
			caseNumber = caseRecord.CaseNumber
		}
	}

	ics, err := services.GenerateTimelineICS(entry, caseNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="deadline.ics"`)
	return c.Blob(http.StatusOK, "text/calendar", ics)
}
