package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox task kinds
const (
	TaskKindSendEmail         = "send_email"
	TaskKindTriageApplication = "triage_application"
	TaskKindGenerateStrategy  = "generate_strategy"
	TaskKindRenderArtifact    = "render_artifact"
)

// Outbox task states
const (
	TaskStatusPending   = "pending"
	TaskStatusProcessed = "processed"
	TaskStatusDead      = "dead"
)

// OutboxTask is a durable side-effect record written in the same
// transaction as the workflow transition that caused it. A worker drains
// pending rows, so a process restart never drops queued work.
type OutboxTask struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind string `gorm:"not null;index" json:"kind"`

	// DedupKey guards against double-enqueue: workflow side effects use
	// "<application_id>:<stage>" so re-entering a stage cannot queue a
	// second email.
	DedupKey string `gorm:"uniqueIndex;not null" json:"dedup_key"`

	// Payload is a JSON blob interpreted per kind
	Payload string `gorm:"type:text;not null" json:"payload"`

	Status      string     `gorm:"not null;default:pending;index" json:"status"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	NextRunAt   time.Time  `gorm:"not null;index" json:"next_run_at"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Claim lock; stale locks are reclaimed after a TTL
	LockedAt *time.Time `json:"locked_at,omitempty"`
	LockedBy *string    `json:"locked_by,omitempty"`
}

// BeforeCreate defaults the dedup key to a random value for tasks that do
// not need stage-keyed idempotence.
func (t *OutboxTask) BeforeCreate(tx *gorm.DB) error {
	if t.DedupKey == "" {
		t.DedupKey = uuid.New().String()
	}
	if t.NextRunAt.IsZero() {
		t.NextRunAt = time.Now()
	}
	return nil
}

// TableName specifies the table name for OutboxTask model
func (OutboxTask) TableName() string {
	return "outbox_tasks"
}

// IsDue checks whether the task is ready to be claimed
func (t *OutboxTask) IsDue(now time.Time) bool {
	return t.Status == TaskStatusPending && !t.NextRunAt.After(now)
}
