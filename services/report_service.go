package services

import (
	"bytes"
	"fmt"
	"time"

	"tradie_legal_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ApplicationReportFilter narrows the export to a stage and/or date range.
// Zero values mean no filtering.
type ApplicationReportFilter struct {
	WorkflowStage string
	From          *time.Time
	To            *time.Time
}

// GenerateApplicationsReport builds an Excel workbook of applications for
// admin review. One row per application, newest first.
func GenerateApplicationsReport(dbConn *gorm.DB, filter ApplicationReportFilter) (*bytes.Buffer, error) {
	query := dbConn.Model(&models.Application{}).Order("created_at DESC")
	if filter.WorkflowStage != "" {
		query = query.Where("workflow_stage = ?", filter.WorkflowStage)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var applications []models.Application
	if err := query.Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to load applications: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Applications"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Submitted",      // A
		"Full Name",      // B
		"Email",          // C
		"Phone",          // D
		"Trade",          // E
		"State",          // F
		"Issue Type",     // G
		"Claimed Amount", // H
		"Stage",          // I
		"Status",         // J
		"Payment",        // K
		"Intake Done",    // L
		"Case ID",        // M
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "M1", headerStyle)
	f.SetColWidth(sheet, "A", "C", 24)
	f.SetColWidth(sheet, "D", "M", 16)

	for i, app := range applications {
		row := i + 2

		claimed := ""
		if app.ClaimedAmount != nil {
			claimed = fmt.Sprintf("%.2f", *app.ClaimedAmount)
		}

		intakeDone := "no"
		if app.IntakeCompleted {
			intakeDone = "yes"
		}

		caseID := ""
		if app.CaseID != nil {
			caseID = *app.CaseID
		}

		values := []interface{}{
			app.CreatedAt.Format("2006-01-02 15:04"),
			app.FullName,
			app.Email,
			app.Phone,
			app.Trade,
			app.State,
			app.IssueType,
			claimed,
			app.WorkflowStage,
			app.Status,
			app.PaymentStatus,
			intakeDone,
			caseID,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}

	return buf, nil
}
