package services

import (
	"testing"
	"time"

	"tradie_legal_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Application{}))
	return db
}

func seedReportApplications(t *testing.T, db *gorm.DB) {
	amount := 15000.0
	apps := []*models.Application{
		{FullName: "Dave Builder", Email: "dave@example.com", Trade: "carpentry", State: "QLD",
			IssueType: models.IssueTypePaymentDispute, Description: "Unpaid deck",
			Status: models.ApplicationStatusApproved, WorkflowStage: models.StagePaymentPending,
			PaymentStatus: models.PaymentStatusUnpaid, ClaimedAmount: &amount},
		{FullName: "Shazza Sparks", Email: "shazza@example.com", Trade: "electrical", State: "WA",
			IssueType: models.IssueTypeDefectClaim, Description: "Alleged defect",
			Status: models.ApplicationStatusPending, WorkflowStage: models.StageSubmitted,
			PaymentStatus: models.PaymentStatusUnpaid},
	}
	for _, app := range apps {
		require.NoError(t, db.Create(app).Error)
	}
}

func TestGenerateApplicationsReport(t *testing.T) {
	db := setupReportTestDB(t)
	seedReportApplications(t, db)

	buf, err := GenerateApplicationsReport(db, ApplicationReportFilter{})
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 applications

	assert.Equal(t, "Submitted", rows[0][0])
	assert.Equal(t, "Full Name", rows[0][1])
	assert.Equal(t, "Case ID", rows[0][12])

	names := []string{rows[1][1], rows[2][1]}
	assert.Contains(t, names, "Dave Builder")
	assert.Contains(t, names, "Shazza Sparks")
}

func TestGenerateApplicationsReportFiltersByStage(t *testing.T) {
	db := setupReportTestDB(t)
	seedReportApplications(t, db)

	buf, err := GenerateApplicationsReport(db, ApplicationReportFilter{
		WorkflowStage: models.StageSubmitted,
	})
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Applications")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Shazza Sparks", rows[1][1])
}

func TestGenerateApplicationsReportFiltersByDateRange(t *testing.T) {
	db := setupReportTestDB(t)
	seedReportApplications(t, db)

	// A window entirely in the past excludes everything
	from := time.Now().Add(-48 * time.Hour)
	to := time.Now().Add(-24 * time.Hour)
	buf, err := GenerateApplicationsReport(db, ApplicationReportFilter{From: &from, To: &to})
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows("Applications")
	require.NoError(t, err)
	assert.Len(t, rows, 1) // header only
}
