package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case status constants
const (
	CaseStatusActive   = "active"
	CaseStatusOnHold   = "on_hold"
	CaseStatusResolved = "resolved"
)

// Progress milestones. Progress is a derived gauge written only by
// workflow transitions and never decreases.
const (
	ProgressCreated         = 0
	ProgressGenerationStart = 30
	ProgressDocumentSent    = 70
	ProgressComplete        = 100
)

// Case is a paid, active dispute-resolution engagement derived from an
// approved application.
type Case struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	ApplicationID *string `gorm:"type:uuid;index" json:"application_id,omitempty"`

	CaseNumber string `gorm:"not null;uniqueIndex" json:"case_number"`
	Title      string `gorm:"not null" json:"title"`
	IssueType  string `gorm:"not null" json:"issue_type"`
	State      string `gorm:"not null;size:3" json:"state"`

	Status   string `gorm:"not null;default:active;index" json:"status"`
	Progress int    `gorm:"not null;default:0" json:"progress"`

	ClaimedAmount *float64 `json:"claimed_amount,omitempty"`

	// AI-generated content, stored as JSON blobs
	AIAnalysis   *string `gorm:"type:text" json:"ai_analysis,omitempty"`
	StrategyPack *string `gorm:"type:text" json:"strategy_pack,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Relationships
	Documents          []CaseDocument      `gorm:"foreignKey:CaseID" json:"documents,omitempty"`
	GeneratedDocuments []GeneratedDocument `gorm:"foreignKey:CaseID" json:"generated_documents,omitempty"`
	TimelineEntries    []TimelineEntry     `gorm:"foreignKey:CaseID" json:"timeline_entries,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Case model
func (Case) TableName() string {
	return "cases"
}

// IsActive checks if the case is active
func (c *Case) IsActive() bool {
	return c.Status == CaseStatusActive
}

// IsResolved checks if the case is resolved
func (c *Case) IsResolved() bool {
	return c.Status == CaseStatusResolved
}

// IsValidCaseStatus checks if the status is valid
func IsValidCaseStatus(status string) bool {
	validStatuses := []string{
		CaseStatusActive,
		CaseStatusOnHold,
		CaseStatusResolved,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}
