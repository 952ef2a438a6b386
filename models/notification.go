package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeWorkflow       = "WORKFLOW"
	NotificationTypeDocumentReady  = "DOCUMENT_READY"
	NotificationTypeDeadline       = "DEADLINE"
	NotificationTypePendingReview  = "PENDING_REVIEW"
	NotificationTypeSystem         = "SYSTEM"
)

type Notification struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	// Context
	CaseID     *string `gorm:"type:uuid" json:"case_id,omitempty"`
	ContractID *string `gorm:"type:uuid" json:"contract_id,omitempty"`

	// Content
	Type     string `gorm:"not null" json:"type"`
	Title    string `gorm:"not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`
	Priority string `gorm:"not null;default:medium" json:"priority"`
	LinkURL  string `json:"link_url,omitempty"` // e.g., "/cases/{case_id}"

	// Read/archive tracking
	ReadAt     *time.Time `json:"read_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

func (n *Notification) IsArchived() bool {
	return n.ArchivedAt != nil
}
