package services

import (
	"tradie_legal_go/models"

	"gorm.io/gorm"
)

// ApplicationInput carries the public intake form fields
type ApplicationInput struct {
	FullName      string   `json:"full_name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Trade         string   `json:"trade"`
	State         string   `json:"state"`
	IssueType     string   `json:"issue_type"`
	Description   string   `json:"description"`
	ClaimedAmount *float64 `json:"claimed_amount"`
}

// SubmitApplication creates a new application at the submitted stage and
// queues the AI triage task. If the submitter already has an account the
// application is linked to it.
func SubmitApplication(database *gorm.DB, input ApplicationInput) (*models.Application, error) {
	app := &models.Application{
		FullName:      input.FullName,
		Email:         input.Email,
		Phone:         input.Phone,
		Trade:         input.Trade,
		State:         input.State,
		IssueType:     input.IssueType,
		Description:   input.Description,
		ClaimedAmount: input.ClaimedAmount,
		Status:        models.ApplicationStatusPending,
		WorkflowStage: models.StageSubmitted,
		PaymentStatus: models.PaymentStatusUnpaid,
	}

	err := database.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		if err := tx.Where("email = ?", input.Email).First(&existing).Error; err == nil {
			app.UserID = &existing.ID
		}

		if err := tx.Create(app).Error; err != nil {
			return err
		}

		if err := EnqueueTask(tx, models.TaskKindSendEmail, app.ID+":"+models.StageSubmitted, EmailTaskPayload{
			Template: EmailTemplateApplicationReceived,
			To:       app.Email,
			Vars:     map[string]string{"Name": app.FullName},
		}); err != nil {
			return err
		}

		return EnqueueTask(tx, models.TaskKindTriageApplication, "triage:"+app.ID, CaseTaskPayload{
			ApplicationID: app.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	return app, nil
}
