package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application status constants
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Workflow stages an application moves through on its way to becoming a
// paid case. Stages only ever advance forward; rejected is terminal.
const (
	StageSubmitted       = "submitted"
	StageAIReviewed      = "ai_reviewed"
	StagePaymentPending  = "payment_pending"
	StageIntakePending   = "intake_pending"
	StagePDFGeneration   = "pdf_generation"
	StageDashboardAccess = "dashboard_access"
	StageRejected        = "rejected"
)

// Payment status constants
const (
	PaymentStatusUnpaid    = "unpaid"
	PaymentStatusCompleted = "completed"
)

// Issue types a tradesperson can raise
const (
	IssueTypePaymentDispute  = "payment_dispute"
	IssueTypeContractDispute = "contract_dispute"
	IssueTypeDefectClaim     = "defect_claim"
	IssueTypeVariationClaim  = "variation_claim"
)

// Application is a prospective client's initial, unpaid inquiry.
type Application struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Submitter; linked once the inquirer registers
	UserID *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"-"`

	// Identity fields captured on the public form
	FullName string `gorm:"not null" json:"full_name"`
	Email    string `gorm:"not null;index" json:"email"`
	Phone    string `json:"phone,omitempty"`

	// Categorisation
	Trade     string `gorm:"not null" json:"trade"`
	State     string `gorm:"not null;size:3" json:"state"`
	IssueType string `gorm:"not null" json:"issue_type"`

	Description   string   `gorm:"type:text;not null" json:"description"`
	ClaimedAmount *float64 `json:"claimed_amount,omitempty"`

	Status        string `gorm:"not null;default:pending;index" json:"status"`
	WorkflowStage string `gorm:"not null;default:submitted;index" json:"workflow_stage"`

	// AI triage produced on submission
	AITriageSummary *string `gorm:"type:text" json:"ai_triage_summary,omitempty"`

	// Gating fields for dashboard_access
	PaymentStatus   string `gorm:"not null;default:unpaid" json:"payment_status"`
	IntakeCompleted bool   `gorm:"not null;default:false" json:"intake_completed"`

	// Intake form payload, stored as JSON
	IntakeData *string `gorm:"type:text" json:"intake_data,omitempty"`

	// Admin review trail
	ReviewedByID  *string    `gorm:"type:uuid" json:"reviewed_by_id,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	RejectionNote string     `gorm:"type:text" json:"rejection_note,omitempty"`

	// Case provisioned on dashboard_access
	CaseID *string `gorm:"type:uuid" json:"case_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Application model
func (Application) TableName() string {
	return "applications"
}

// IsRejected checks if the application reached the terminal rejected stage
func (a *Application) IsRejected() bool {
	return a.WorkflowStage == StageRejected
}

// stageOrder assigns each forward stage its position in the pipeline.
// Rejected is outside the ordering (terminal branch).
var stageOrder = map[string]int{
	StageSubmitted:       0,
	StageAIReviewed:      1,
	StagePaymentPending:  2,
	StageIntakePending:   3,
	StagePDFGeneration:   4,
	StageDashboardAccess: 5,
}

// StageRank returns the pipeline position of a stage, or -1 for rejected
// and unknown stages.
func StageRank(stage string) int {
	if rank, ok := stageOrder[stage]; ok {
		return rank
	}
	return -1
}

// IsValidWorkflowStage checks if the stage is valid
func IsValidWorkflowStage(stage string) bool {
	if stage == StageRejected {
		return true
	}
	_, ok := stageOrder[stage]
	return ok
}

// IsValidIssueType checks if the issue type is valid
func IsValidIssueType(issueType string) bool {
	validTypes := []string{
		IssueTypePaymentDispute,
		IssueTypeContractDispute,
		IssueTypeDefectClaim,
		IssueTypeVariationClaim,
	}
	for _, t := range validTypes {
		if t == issueType {
			return true
		}
	}
	return false
}

// IsValidAustralianState checks if the state code is valid
func IsValidAustralianState(state string) bool {
	validStates := []string{"NSW", "VIC", "QLD", "WA", "SA", "TAS", "ACT", "NT"}
	for _, s := range validStates {
		if s == state {
			return true
		}
	}
	return false
}
