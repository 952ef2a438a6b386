package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"tradie_legal_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Workflow error types
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrCaseNotFound        = errors.New("case not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidTransition   = errors.New("invalid workflow transition")
)

// Triggers that advance an application through the pipeline
const (
	TriggerAIReview           = "ai_review"
	TriggerApprove            = "approve"
	TriggerReject             = "reject"
	TriggerPaymentCompleted   = "payment_completed"
	TriggerIntakeSubmitted    = "intake_submitted"
	TriggerGenerationComplete = "generation_complete"
)

type transition struct {
	from []string
	to   string
}

// transitions defines the only allowed edges. Anything else fails with
// ErrInvalidTransition.
var transitions = map[string]transition{
	TriggerAIReview: {
		from: []string{models.StageSubmitted},
		to:   models.StageAIReviewed,
	},
	TriggerApprove: {
		from: []string{models.StageSubmitted, models.StageAIReviewed},
		to:   models.StagePaymentPending,
	},
	TriggerPaymentCompleted: {
		from: []string{models.StagePaymentPending},
		to:   models.StageIntakePending,
	},
	TriggerIntakeSubmitted: {
		from: []string{models.StageIntakePending},
		to:   models.StagePDFGeneration,
	},
	TriggerGenerationComplete: {
		from: []string{models.StagePDFGeneration},
		to:   models.StageDashboardAccess,
	},
	TriggerReject: {
		from: []string{models.StageSubmitted, models.StageAIReviewed, models.StagePaymentPending},
		to:   models.StageRejected,
	},
}

// EmailTaskPayload is the outbox payload for send_email tasks
type EmailTaskPayload struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Vars     map[string]string `json:"vars,omitempty"`
}

// CaseTaskPayload is the outbox payload for AI generation and artifact tasks
type CaseTaskPayload struct {
	ApplicationID string `json:"application_id,omitempty"`
	CaseID        string `json:"case_id,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
}

// EnqueueTask writes a durable outbox task inside the caller's transaction.
// Conflicting dedup keys are silently skipped so a replayed transition
// cannot queue the same side effect twice.
func EnqueueTask(tx *gorm.DB, kind, dedupKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := &models.OutboxTask{
		Kind:      kind,
		DedupKey:  dedupKey,
		Payload:   string(body),
		Status:    models.TaskStatusPending,
		NextRunAt: time.Now(),
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(task).Error
}

// AdvanceApplication validates that the trigger is allowed from the
// application's current stage, applies the new stage and enqueues the side
// effect for that stage. Re-invoking with a trigger whose target stage is
// already held is a no-op success. The stage write and the side-effect
// enqueue commit in one transaction.
func AdvanceApplication(database *gorm.DB, applicationID, trigger string) (*models.Application, error) {
	tr, ok := transitions[trigger]
	if !ok {
		return nil, ErrInvalidTransition
	}

	var app models.Application
	err := database.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}

		// Idempotent per stage: already at the target, nothing to do.
		if app.WorkflowStage == tr.to {
			return nil
		}

		allowed := false
		for _, from := range tr.from {
			if app.WorkflowStage == from {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInvalidTransition
		}

		// Dashboard access is gated on intake and payment having completed.
		if tr.to == models.StageDashboardAccess {
			if !app.IntakeCompleted || app.PaymentStatus != models.PaymentStatusCompleted {
				return ErrInvalidTransition
			}
		}

		updates := map[string]interface{}{"workflow_stage": tr.to}
		switch tr.to {
		case models.StagePaymentPending:
			updates["status"] = models.ApplicationStatusApproved
		case models.StageRejected:
			updates["status"] = models.ApplicationStatusRejected
		}
		if err := tx.Model(&app).Updates(updates).Error; err != nil {
			return err
		}
		app.WorkflowStage = tr.to

		if err := enqueueStageSideEffect(tx, &app); err != nil {
			return err
		}

		// Reaching dashboard access provisions the paid case.
		if tr.to == models.StageDashboardAccess && app.CaseID == nil {
			provisioned, err := provisionCase(tx, &app)
			if err != nil {
				return err
			}
			app.CaseID = &provisioned.ID
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &app, nil
}

// enqueueStageSideEffect queues exactly one side effect appropriate to the
// stage just entered, keyed on "<application_id>:<stage>".
func enqueueStageSideEffect(tx *gorm.DB, app *models.Application) error {
	dedup := app.ID + ":" + app.WorkflowStage

	switch app.WorkflowStage {
	case models.StageAIReviewed:
		// Triage summary is stored by the submission task; no side effect here.
		return nil
	case models.StagePaymentPending:
		return EnqueueTask(tx, models.TaskKindSendEmail, dedup, EmailTaskPayload{
			Template: EmailTemplateApplicationApproved,
			To:       app.Email,
			Vars:     map[string]string{"Name": app.FullName},
		})
	case models.StageIntakePending:
		return EnqueueTask(tx, models.TaskKindSendEmail, dedup, EmailTaskPayload{
			Template: EmailTemplateIntakeInvite,
			To:       app.Email,
			Vars:     map[string]string{"Name": app.FullName},
		})
	case models.StagePDFGeneration:
		return EnqueueTask(tx, models.TaskKindGenerateStrategy, dedup, CaseTaskPayload{
			ApplicationID: app.ID,
		})
	case models.StageDashboardAccess:
		if err := EnqueueTask(tx, models.TaskKindSendEmail, dedup, EmailTaskPayload{
			Template: EmailTemplateDashboardReady,
			To:       app.Email,
			Vars:     map[string]string{"Name": app.FullName},
		}); err != nil {
			return err
		}
		if app.UserID != nil {
			return tx.Create(&models.Notification{
				UserID:   *app.UserID,
				Type:     models.NotificationTypeWorkflow,
				Title:    "Your strategy pack is on its way",
				Message:  "Your case has been opened and your documents are being prepared.",
				Priority: models.PriorityHigh,
			}).Error
		}
		return nil
	case models.StageRejected:
		return EnqueueTask(tx, models.TaskKindSendEmail, dedup, EmailTaskPayload{
			Template: EmailTemplateApplicationRejected,
			To:       app.Email,
			Vars:     map[string]string{"Name": app.FullName, "Note": app.RejectionNote},
		})
	}
	return nil
}

// provisionCase creates the paid case from an application that reached
// dashboard access, copying the AI content produced during generation.
func provisionCase(tx *gorm.DB, app *models.Application) (*models.Case, error) {
	if app.UserID == nil {
		return nil, fmt.Errorf("application %s has no linked user", app.ID)
	}

	caseNumber, err := NextCaseNumber(tx)
	if err != nil {
		return nil, err
	}

	caseRecord := &models.Case{
		UserID:        *app.UserID,
		ApplicationID: &app.ID,
		CaseNumber:    caseNumber,
		Title:         fmt.Sprintf("%s dispute - %s", app.Trade, app.State),
		IssueType:     app.IssueType,
		State:         app.State,
		Status:        models.CaseStatusActive,
		Progress:      models.ProgressCreated,
		ClaimedAmount: app.ClaimedAmount,
	}
	if err := tx.Create(caseRecord).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.Application{}).
		Where("id = ?", app.ID).
		Update("case_id", caseRecord.ID).Error; err != nil {
		return nil, err
	}

	entry := &models.TimelineEntry{
		UserID:         *app.UserID,
		CaseID:         &caseRecord.ID,
		Type:           models.TimelineTypeMilestone,
		Title:          "Case opened",
		Description:    "Your application was approved and your case is now active.",
		Priority:       models.PriorityMedium,
		Status:         models.TimelineStatusCompleted,
		SystemAuthored: true,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}

	return caseRecord, nil
}

// ReviewApplication records the admin decision and advances the workflow.
// approve moves submitted/ai_reviewed applications to payment_pending;
// reject is terminal and only allowed before payment.
func ReviewApplication(database *gorm.DB, applicationID, reviewerID string, approve bool, note string) (*models.Application, error) {
	trigger := TriggerApprove
	if !approve {
		trigger = TriggerReject
	}

	// The review stamp and the stage transition commit together: a decision
	// that fails the transition check leaves the application untouched.
	var app *models.Application
	err := database.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"reviewed_by_id": reviewerID,
			"reviewed_at":    time.Now(),
		}
		if !approve {
			updates["rejection_note"] = note
		}

		result := tx.Model(&models.Application{}).
			Where("id = ?", applicationID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrApplicationNotFound
		}

		advanced, err := AdvanceApplication(tx, applicationID, trigger)
		if err != nil {
			return err
		}
		app = advanced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// CompleteIntake stores the intake payload and advances to pdf_generation.
// Only valid once payment has completed (stage intake_pending).
func CompleteIntake(database *gorm.DB, applicationID string, intakeData string) (*models.Application, error) {
	var app models.Application
	if err := database.First(&app, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}

	if app.WorkflowStage != models.StageIntakePending {
		return nil, ErrInvalidTransition
	}

	if err := database.Model(&app).Updates(map[string]interface{}{
		"intake_data":      intakeData,
		"intake_completed": true,
	}).Error; err != nil {
		return nil, err
	}

	return AdvanceApplication(database, applicationID, TriggerIntakeSubmitted)
}

// MarkPaymentCompleted records the webhook-confirmed payment and advances
// payment_pending -> intake_pending. The webhook is the sole trigger for
// this edge.
func MarkPaymentCompleted(database *gorm.DB, applicationID string) (*models.Application, error) {
	var app *models.Application
	err := database.Transaction(func(tx *gorm.DB) error {
		var current models.Application
		if err := tx.First(&current, "id = ?", applicationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrApplicationNotFound
			}
			return err
		}

		// The payment flag is only written on the legal edge; an out-of-order
		// webhook for an application not yet awaiting payment leaves the row
		// untouched so Stripe retries the delivery later.
		if current.PaymentStatus != models.PaymentStatusCompleted {
			if current.WorkflowStage != models.StagePaymentPending {
				return ErrInvalidTransition
			}
			if err := tx.Model(&current).
				Update("payment_status", models.PaymentStatusCompleted).Error; err != nil {
				return err
			}
		}

		advanced, err := AdvanceApplication(tx, applicationID, TriggerPaymentCompleted)
		if err != nil {
			return err
		}
		app = advanced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// bumpCaseProgress raises a case's progress gauge to at least target.
// Progress never decreases.
func bumpCaseProgress(tx *gorm.DB, caseID string, target int) error {
	return tx.Model(&models.Case{}).
		Where("id = ? AND progress < ?", caseID, target).
		Update("progress", target).Error
}

// StartDocumentGeneration creates a draft deliverable for a case, moves
// progress to the generation milestone and queues the AI drafting task.
func StartDocumentGeneration(database *gorm.DB, caseID, docType, title string) (*models.GeneratedDocument, error) {
	var doc *models.GeneratedDocument
	err := database.Transaction(func(tx *gorm.DB) error {
		var caseRecord models.Case
		if err := tx.First(&caseRecord, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCaseNotFound
			}
			return err
		}

		doc = &models.GeneratedDocument{
			CaseID: caseID,
			Type:   docType,
			Title:  title,
			Status: models.GeneratedDocStatusDraft,
		}
		if err := tx.Create(doc).Error; err != nil {
			return err
		}

		if err := bumpCaseProgress(tx, caseID, models.ProgressGenerationStart); err != nil {
			return err
		}

		return EnqueueTask(tx, models.TaskKindGenerateStrategy, "doc:"+doc.ID, CaseTaskPayload{
			CaseID:     caseID,
			DocumentID: doc.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ReviewGeneratedDocument applies the admin review decision to a draft or
// pending_review document. Sent documents are immutable.
func ReviewGeneratedDocument(database *gorm.DB, documentID, reviewerID, status, note string) (*models.GeneratedDocument, error) {
	switch status {
	case models.GeneratedDocStatusApproved, models.GeneratedDocStatusRejected, models.GeneratedDocStatusPendingReview:
	default:
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	result := database.Model(&models.GeneratedDocument{}).
		Where("id = ? AND status IN (?, ?)", documentID,
			models.GeneratedDocStatusDraft, models.GeneratedDocStatusPendingReview).
		Updates(map[string]interface{}{
			"status":         status,
			"reviewed_by_id": reviewerID,
			"reviewed_at":    now,
			"review_note":    note,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var doc models.GeneratedDocument
		if err := database.First(&doc, "id = ?", documentID).Error; err != nil {
			return nil, ErrDocumentNotFound
		}
		return nil, ErrInvalidTransition
	}

	var doc models.GeneratedDocument
	if err := database.First(&doc, "id = ?", documentID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// SendGeneratedDocument releases an approved document to the case owner.
// The status flip is a compare-and-set so two concurrent sends cannot both
// win; the loser gets ErrInvalidTransition. Entering sent bumps case
// progress to the send milestone (clamped, never down), creates one
// notification and queues the client email - all in one transaction.
func SendGeneratedDocument(database *gorm.DB, documentID string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	err := database.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&models.GeneratedDocument{}).
			Where("id = ? AND status = ?", documentID, models.GeneratedDocStatusApproved).
			Updates(map[string]interface{}{
				"status":  models.GeneratedDocStatusSent,
				"sent_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		doc.Status = models.GeneratedDocStatusSent
		doc.SentAt = &now

		if err := bumpCaseProgress(tx, doc.CaseID, models.ProgressDocumentSent); err != nil {
			return err
		}

		var caseRecord models.Case
		if err := tx.First(&caseRecord, "id = ?", doc.CaseID).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.Notification{
			UserID:   caseRecord.UserID,
			CaseID:   &caseRecord.ID,
			Type:     models.NotificationTypeDocumentReady,
			Title:    "A document is ready for you",
			Message:  fmt.Sprintf("%s has been reviewed and released on case %s.", doc.Title, caseRecord.CaseNumber),
			Priority: models.PriorityHigh,
			LinkURL:  "/cases/" + caseRecord.ID,
		}).Error; err != nil {
			return err
		}

		var owner models.User
		if err := tx.First(&owner, "id = ?", caseRecord.UserID).Error; err != nil {
			return err
		}

		return EnqueueTask(tx, models.TaskKindSendEmail, "doc-sent:"+doc.ID, EmailTaskPayload{
			Template: EmailTemplateDocumentSent,
			To:       owner.Email,
			Vars: map[string]string{
				"Name":       owner.FullName,
				"Document":   doc.Title,
				"CaseNumber": caseRecord.CaseNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateGeneratedDocumentContent edits the document body. Sent documents
// stay sent, but their rendered artifact goes stale and a re-render task
// is queued.
func UpdateGeneratedDocumentContent(database *gorm.DB, documentID, content string) (*models.GeneratedDocument, error) {
	var doc models.GeneratedDocument
	err := database.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, "id = ?", documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}

		updates := map[string]interface{}{"content": content}
		if doc.IsSent() {
			updates["artifact_stale"] = true
		}
		if err := tx.Model(&doc).Updates(updates).Error; err != nil {
			return err
		}
		doc.Content = content

		if doc.IsSent() {
			return EnqueueTask(tx, models.TaskKindRenderArtifact,
				fmt.Sprintf("render:%s:%d", doc.ID, time.Now().UnixNano()),
				CaseTaskPayload{CaseID: doc.CaseID, DocumentID: doc.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
