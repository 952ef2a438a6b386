package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"tradie_legal_go/config"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// TaskLockTTL is how long a claimed task stays locked before another
	// worker may reclaim it (crashed-worker recovery)
	TaskLockTTL = 5 * time.Minute
	// MaxTaskAttempts moves a task to dead after this many failures
	MaxTaskAttempts = 10
	// BaseRetryDelay is the first retry delay; doubles per attempt
	BaseRetryDelay = 5 * time.Second
	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay = 10 * time.Minute
	// ClaimBatchSize limits how many tasks one drain pass claims
	ClaimBatchSize = 10
)

// OutboxWorker drains pending outbox tasks. Tasks are claimed with a lock
// stamp so multiple worker processes never run the same task twice.
type OutboxWorker struct {
	db       *gorm.DB
	cfg      *config.Config
	ai       services.AIGenerator
	workerID string
}

// NewOutboxWorker creates a worker with a unique claim identity
func NewOutboxWorker(db *gorm.DB, cfg *config.Config, ai services.AIGenerator) *OutboxWorker {
	return &OutboxWorker{
		db:       db,
		cfg:      cfg,
		ai:       ai,
		workerID: uuid.New().String(),
	}
}

// DrainOnce claims and processes one batch of due tasks. Returns the number
// of tasks processed (successfully or not).
func (w *OutboxWorker) DrainOnce(ctx context.Context) int {
	tasks, err := w.claimDueTasks()
	if err != nil {
		log.Printf("Failed to claim outbox tasks: %v", err)
		return 0
	}

	for i := range tasks {
		task := &tasks[i]
		if err := w.process(ctx, task); err != nil {
			w.markFailed(task, err)
		} else {
			w.markProcessed(task)
		}
	}

	return len(tasks)
}

// claimDueTasks selects due pending tasks whose lock is free or stale and
// stamps them with this worker's identity, all inside one transaction.
func (w *OutboxWorker) claimDueTasks() ([]models.OutboxTask, error) {
	var claimed []models.OutboxTask

	err := w.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		staleBefore := now.Add(-TaskLockTTL)

		var tasks []models.OutboxTask
		if err := tx.
			Where("status = ?", models.TaskStatusPending).
			Where("next_run_at <= ?", now).
			Where("locked_at IS NULL OR locked_at < ?", staleBefore).
			Order("next_run_at ASC").
			Limit(ClaimBatchSize).
			Find(&tasks).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}

		if err := tx.Model(&models.OutboxTask{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"locked_at": now,
				"locked_by": w.workerID,
			}).Error; err != nil {
			return err
		}

		claimed = tasks
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (w *OutboxWorker) process(ctx context.Context, task *models.OutboxTask) error {
	switch task.Kind {
	case models.TaskKindSendEmail:
		return w.handleSendEmail(task)
	case models.TaskKindTriageApplication:
		return w.handleTriageApplication(ctx, task)
	case models.TaskKindGenerateStrategy:
		return w.handleGenerateStrategy(ctx, task)
	case models.TaskKindRenderArtifact:
		return w.handleRenderArtifact(ctx, task)
	default:
		return fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (w *OutboxWorker) handleSendEmail(task *models.OutboxTask) error {
	var payload services.EmailTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad send_email payload: %w", err)
	}

	email := services.BuildTemplateEmail(payload.Template, payload.To, payload.Vars)
	return services.SendEmail(w.cfg, email)
}

// handleTriageApplication runs the AI triage on a freshly submitted
// application and advances it to ai_reviewed. When the AI provider is not
// configured the placeholder summary is stored and the pipeline still moves.
func (w *OutboxWorker) handleTriageApplication(ctx context.Context, task *models.OutboxTask) error {
	var payload services.CaseTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad triage payload: %w", err)
	}

	var app models.Application
	if err := w.db.First(&app, "id = ?", payload.ApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Application deleted; nothing left to triage
			return nil
		}
		return err
	}

	summary, err := w.ai.TriageApplication(ctx, services.CaseFacts{
		Trade:         app.Trade,
		State:         app.State,
		IssueType:     app.IssueType,
		Description:   app.Description,
		ClaimedAmount: app.ClaimedAmount,
	})
	if err != nil && !errors.Is(err, services.ErrUpstreamUnavailable) {
		return err
	}

	if err := w.db.Model(&app).Update("ai_triage_summary", summary).Error; err != nil {
		return err
	}

	if _, err := services.AdvanceApplication(w.db, app.ID, services.TriggerAIReview); err != nil {
		// The admin may have already decided before triage finished
		if errors.Is(err, services.ErrInvalidTransition) {
			return nil
		}
		return err
	}
	return nil
}

// handleGenerateStrategy produces AI strategy content. Application-level
// tasks (queued on entering pdf_generation) complete the pipeline: generate,
// advance to dashboard_access (provisioning the case), store the analysis
// on the case and leave a strategy letter awaiting admin review.
// Document-level tasks (queued by StartDocumentGeneration) draft the body
// of an existing document.
func (w *OutboxWorker) handleGenerateStrategy(ctx context.Context, task *models.OutboxTask) error {
	var payload services.CaseTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad generate_strategy payload: %w", err)
	}

	if payload.DocumentID != "" {
		return w.generateDocumentDraft(ctx, payload)
	}
	return w.generateStrategyPack(ctx, payload.ApplicationID)
}

func (w *OutboxWorker) generateStrategyPack(ctx context.Context, applicationID string) error {
	var app models.Application
	if err := w.db.First(&app, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	intakeData := ""
	if app.IntakeData != nil {
		intakeData = *app.IntakeData
	}

	result, err := w.ai.GenerateStrategy(ctx, services.CaseFacts{
		Trade:         app.Trade,
		State:         app.State,
		IssueType:     app.IssueType,
		Description:   app.Description,
		ClaimedAmount: app.ClaimedAmount,
		IntakeData:    intakeData,
	})
	if err != nil && !errors.Is(err, services.ErrUpstreamUnavailable) {
		return err
	}

	advanced, err := services.AdvanceApplication(w.db, app.ID, services.TriggerGenerationComplete)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) && app.CaseID != nil {
			// Already past generation; fall through with the known case
			advanced = &app
		} else {
			return err
		}
	}
	if advanced.CaseID == nil {
		return fmt.Errorf("application %s advanced without a provisioned case", app.ID)
	}

	analysisJSON, err := json.Marshal(result.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy analysis: %w", err)
	}

	return w.db.Transaction(func(tx *gorm.DB) error {
		var caseRecord models.Case
		if err := tx.First(&caseRecord, "id = ?", *advanced.CaseID).Error; err != nil {
			return err
		}

		if err := tx.Model(&caseRecord).Updates(map[string]interface{}{
			"ai_analysis":   string(analysisJSON),
			"strategy_pack": result.StrategyHTML,
		}).Error; err != nil {
			return err
		}

		// One strategy letter per case; reruns must not create duplicates
		var existing int64
		if err := tx.Model(&models.GeneratedDocument{}).
			Where("case_id = ? AND type = ?", caseRecord.ID, models.GeneratedDocTypeStrategyLetter).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		return tx.Create(&models.GeneratedDocument{
			CaseID:  caseRecord.ID,
			Type:    models.GeneratedDocTypeStrategyLetter,
			Title:   "Legal Strategy Letter",
			Status:  models.GeneratedDocStatusPendingReview,
			Content: services.SanitizeDocumentHTML(result.StrategyHTML),
		}).Error
	})
}

func (w *OutboxWorker) generateDocumentDraft(ctx context.Context, payload services.CaseTaskPayload) error {
	var doc models.GeneratedDocument
	if err := w.db.First(&doc, "id = ?", payload.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if doc.Status != models.GeneratedDocStatusDraft {
		// Already drafted and reviewed; do not overwrite
		return nil
	}

	var caseRecord models.Case
	if err := w.db.First(&caseRecord, "id = ?", doc.CaseID).Error; err != nil {
		return err
	}

	facts := services.CaseFacts{
		State:         caseRecord.State,
		IssueType:     caseRecord.IssueType,
		Description:   caseRecord.Title,
		ClaimedAmount: caseRecord.ClaimedAmount,
	}
	if caseRecord.ApplicationID != nil {
		var app models.Application
		if err := w.db.First(&app, "id = ?", *caseRecord.ApplicationID).Error; err == nil {
			facts.Trade = app.Trade
			facts.Description = app.Description
			if app.IntakeData != nil {
				facts.IntakeData = *app.IntakeData
			}
		}
	}

	result, err := w.ai.GenerateStrategy(ctx, facts)
	if err != nil && !errors.Is(err, services.ErrUpstreamUnavailable) {
		return err
	}

	return w.db.Model(&doc).Updates(map[string]interface{}{
		"content": services.SanitizeDocumentHTML(result.StrategyHTML),
		"status":  models.GeneratedDocStatusPendingReview,
	}).Error
}

// handleRenderArtifact renders a document's PDF and uploads it to storage,
// clearing the stale flag.
func (w *OutboxWorker) handleRenderArtifact(ctx context.Context, task *models.OutboxTask) error {
	var payload services.CaseTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return fmt.Errorf("bad render_artifact payload: %w", err)
	}

	var doc models.GeneratedDocument
	if err := w.db.First(&doc, "id = ?", payload.DocumentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	var caseRecord models.Case
	if err := w.db.First(&caseRecord, "id = ?", doc.CaseID).Error; err != nil {
		return err
	}

	pdf, err := services.RenderDocumentPDF(doc.Title, caseRecord.CaseNumber, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to render document %s: %w", doc.ID, err)
	}

	key := services.GenerateArtifactKey(caseRecord.UserID, caseRecord.ID, doc.ID)
	if _, err := services.Storage.UploadReader(ctx, bytes.NewReader(pdf), key, "application/pdf", int64(len(pdf))); err != nil {
		return fmt.Errorf("failed to upload artifact for document %s: %w", doc.ID, err)
	}

	return w.db.Model(&doc).Updates(map[string]interface{}{
		"artifact_key":   key,
		"artifact_stale": false,
	}).Error
}

func (w *OutboxWorker) markProcessed(task *models.OutboxTask) {
	now := time.Now()
	err := w.db.Model(task).Updates(map[string]interface{}{
		"status":       models.TaskStatusProcessed,
		"processed_at": now,
		"locked_at":    nil,
		"locked_by":    nil,
	}).Error
	if err != nil {
		log.Printf("Failed to mark task %d processed: %v", task.ID, err)
	}
}

func (w *OutboxWorker) markFailed(task *models.OutboxTask, taskErr error) {
	attempts := task.Attempts + 1

	updates := map[string]interface{}{
		"attempts":   attempts,
		"last_error": taskErr.Error(),
		"locked_at":  nil,
		"locked_by":  nil,
	}

	if attempts >= MaxTaskAttempts {
		updates["status"] = models.TaskStatusDead
		log.Printf("Task %d (%s) dead after %d attempts: %v", task.ID, task.Kind, attempts, taskErr)
	} else {
		updates["next_run_at"] = time.Now().Add(retryDelay(attempts))
		log.Printf("Task %d (%s) failed (attempt %d): %v", task.ID, task.Kind, attempts, taskErr)
	}

	if err := w.db.Model(task).Updates(updates).Error; err != nil {
		log.Printf("Failed to record task %d failure: %v", task.ID, err)
	}
}

// retryDelay doubles per attempt from BaseRetryDelay up to MaxRetryDelay
func retryDelay(attempts int) time.Duration {
	delay := BaseRetryDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return delay
}
