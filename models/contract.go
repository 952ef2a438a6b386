package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contract status constants
const (
	ContractStatusDraft  = "draft"
	ContractStatusFinal  = "final"
	ContractStatusSigned = "signed"
)

// Contract is a forward-looking work-protection agreement. It is separate
// from the dispute workflow but shares the entitlement gate with cases.
type Contract struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Title      string `gorm:"not null" json:"title"`
	ClientName string `gorm:"not null" json:"client_name"`
	JobAddress string `json:"job_address,omitempty"`

	Value *float64 `json:"value,omitempty"`

	Status  string `gorm:"not null;default:draft;index" json:"status"`
	Version int    `gorm:"not null;default:1" json:"version"`

	// Contract body as HTML
	Content string `gorm:"type:text" json:"content"`

	SignedAt *time.Time `json:"signed_at,omitempty"`

	TimelineEntries []TimelineEntry `gorm:"foreignKey:ContractID" json:"timeline_entries,omitempty"`
}

// BeforeCreate hook to generate UUID
func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Contract model
func (Contract) TableName() string {
	return "contracts"
}

// IsSigned checks if the contract has been signed
func (c *Contract) IsSigned() bool {
	return c.Status == ContractStatusSigned
}

// IsValidContractStatus checks if the status is valid
func IsValidContractStatus(status string) bool {
	validStatuses := []string{
		ContractStatusDraft,
		ContractStatusFinal,
		ContractStatusSigned,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}
