package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timeline entry types
const (
	TimelineTypeMilestone = "milestone"
	TimelineTypeDeadline  = "deadline"
	TimelineTypeNote      = "note"
)

// Timeline entry status
const (
	TimelineStatusPending   = "pending"
	TimelineStatusCompleted = "completed"
	TimelineStatusOverdue   = "overdue"
)

// Priority levels
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// TimelineEntry is a chronological milestone, deadline or note attached to
// a case or contract.
type TimelineEntry struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	// Exactly one of CaseID / ContractID is set
	CaseID     *string `gorm:"type:uuid;index" json:"case_id,omitempty"`
	ContractID *string `gorm:"type:uuid;index" json:"contract_id,omitempty"`

	Type        string `gorm:"not null;default:note" json:"type"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Priority string `gorm:"not null;default:medium;index" json:"priority"`
	Status   string `gorm:"not null;default:pending;index" json:"status"`

	DueAt       *time.Time `gorm:"index" json:"due_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Reminder guard: set once the sweep job has emitted a notification
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	// System-authored entries (workflow milestones) cannot be edited by users
	SystemAuthored bool `gorm:"not null;default:false" json:"system_authored"`
}

// BeforeCreate hook to generate UUID
func (e *TimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for TimelineEntry model
func (TimelineEntry) TableName() string {
	return "timeline_entries"
}

// IsOverdue checks if the entry is pending with a due date in the past
func (e *TimelineEntry) IsOverdue() bool {
	if e.Status == TimelineStatusCompleted || e.DueAt == nil {
		return false
	}
	return time.Now().After(*e.DueAt)
}

// IsValidTimelineType checks if the type is valid
func IsValidTimelineType(entryType string) bool {
	validTypes := []string{
		TimelineTypeMilestone,
		TimelineTypeDeadline,
		TimelineTypeNote,
	}
	for _, t := range validTypes {
		if t == entryType {
			return true
		}
	}
	return false
}

// IsValidPriority checks if the priority is valid
func IsValidPriority(priority string) bool {
	validPriorities := []string{
		PriorityLow,
		PriorityMedium,
		PriorityHigh,
		PriorityUrgent,
	}
	for _, p := range validPriorities {
		if p == priority {
			return true
		}
	}
	return false
}

// PriorityRank maps priority to a sortable weight (urgent first)
func PriorityRank(priority string) int {
	switch priority {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}
