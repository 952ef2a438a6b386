package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evidence categories for uploaded documents
const (
	DocumentCategoryContract       = "contract"
	DocumentCategoryInvoice        = "invoice"
	DocumentCategoryQuote          = "quote"
	DocumentCategoryCorrespondence = "correspondence"
	DocumentCategoryPhoto          = "photo"
	DocumentCategoryOther          = "other"
)

// CaseDocument is client-uploaded evidence attached to a case.
type CaseDocument struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`
	Case   Case   `gorm:"foreignKey:CaseID" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`

	Category string `gorm:"not null;default:other;index" json:"category"`

	// File metadata
	FileName         string `gorm:"not null" json:"file_name"`
	FileOriginalName string `gorm:"not null" json:"file_original_name"`
	StorageKey       string `gorm:"not null" json:"-"` // Not exposed in JSON for security
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`
}

// BeforeCreate hook to generate UUID
func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for CaseDocument model
func (CaseDocument) TableName() string {
	return "case_documents"
}

// IsValidDocumentCategory checks if the category is valid
func IsValidDocumentCategory(category string) bool {
	validCategories := []string{
		DocumentCategoryContract,
		DocumentCategoryInvoice,
		DocumentCategoryQuote,
		DocumentCategoryCorrespondence,
		DocumentCategoryPhoto,
		DocumentCategoryOther,
	}
	for _, c := range validCategories {
		if c == category {
			return true
		}
	}
	return false
}
