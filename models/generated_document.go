package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generated document lifecycle states. Sent is terminal: once reached the
// status never moves back, though content edits may still re-render the
// artifact.
const (
	GeneratedDocStatusDraft         = "draft"
	GeneratedDocStatusPendingReview = "pending_review"
	GeneratedDocStatusApproved      = "approved"
	GeneratedDocStatusRejected      = "rejected"
	GeneratedDocStatusSent          = "sent"
)

// Generated document types within a strategy pack
const (
	GeneratedDocTypeStrategyLetter = "strategy_letter"
	GeneratedDocTypeDemandLetter   = "demand_letter"
	GeneratedDocTypeAdjudication   = "adjudication_application"
)

// GeneratedDocument is an AI-drafted deliverable reviewed by an admin
// before being released to the case owner.
type GeneratedDocument struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`
	Case   Case   `gorm:"foreignKey:CaseID" json:"-"`

	Type  string `gorm:"not null" json:"type"`
	Title string `gorm:"not null" json:"title"`

	Status string `gorm:"not null;default:draft;index" json:"status"`

	// Draft body as HTML, edited by admins before sending
	Content string `gorm:"type:text" json:"content"`

	// Rendered PDF artifact
	ArtifactKey   string `json:"-"`
	ArtifactStale bool   `gorm:"not null;default:false" json:"artifact_stale"`

	// Review trail
	ReviewedByID *string    `gorm:"type:uuid" json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote   string     `gorm:"type:text" json:"review_note,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (d *GeneratedDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GeneratedDocument model
func (GeneratedDocument) TableName() string {
	return "generated_documents"
}

// IsSent checks if the document has reached the terminal sent state
func (d *GeneratedDocument) IsSent() bool {
	return d.Status == GeneratedDocStatusSent
}

// VisibleToOwner reports whether the case owner may see this document.
// Only sent documents are released.
func (d *GeneratedDocument) VisibleToOwner() bool {
	return d.Status == GeneratedDocStatusSent
}

// IsValidGeneratedDocStatus checks if the status is valid
func IsValidGeneratedDocStatus(status string) bool {
	validStatuses := []string{
		GeneratedDocStatusDraft,
		GeneratedDocStatusPendingReview,
		GeneratedDocStatusApproved,
		GeneratedDocStatusRejected,
		GeneratedDocStatusSent,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}
