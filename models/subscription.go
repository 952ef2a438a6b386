package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription status constants
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// FreeTierLimit is the number of cases or contracts a user without an
// active subscription may create.
const FreeTierLimit = 2

// Subscription links a user to a paid plan. Users without one (or with an
// expired one) fall back to the free tier.
type Subscription struct {
	ID        string         `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Status     string     `gorm:"not null;default:active;index" json:"status"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`

	// Stripe references
	StripeCustomerID     string `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string `json:"stripe_subscription_id,omitempty"`
}

// BeforeCreate hook to generate UUID
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	return nil
}

// TableName specifies the table name
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive checks if the subscription grants unlimited access: status must
// be active and the expiry, if set, must be in the future.
func (s *Subscription) IsActive() bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt) {
		return false
	}
	return true
}
