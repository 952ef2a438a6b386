package services

import (
	"errors"
	"fmt"
	"tradie_legal_go/models"

	"gorm.io/gorm"
)

// Entitlement error types
var (
	ErrUsageLimitExceeded = errors.New("free tier limit reached for current account")
	ErrUnknownEntityType  = errors.New("unknown entity type for entitlement check")
)

// Entity types the gate knows about
const (
	EntityTypeCase     = "case"
	EntityTypeContract = "contract"
)

// EntitlementResult contains the result of an entitlement check.
// Remaining is -1 when the subscription grants unlimited creation.
type EntitlementResult struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// CanCreate computes whether a user may create another entity of the given
// type. An active, unexpired subscription allows unconditionally; otherwise
// the owned count is compared against the free-tier limit. The check is
// re-evaluated on every creation attempt, so callers that need
// race-safety run it inside the creating transaction.
func CanCreate(database *gorm.DB, userID, entityType string) (*EntitlementResult, error) {
	var subscription models.Subscription
	err := database.Where("user_id = ?", userID).First(&subscription).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && subscription.IsActive() {
		return &EntitlementResult{Allowed: true, Remaining: -1}, nil
	}

	count, err := countOwned(database, userID, entityType)
	if err != nil {
		return nil, err
	}

	remaining := models.FreeTierLimit - int(count)
	if remaining <= 0 {
		return &EntitlementResult{
			Allowed:   false,
			Remaining: 0,
			Reason: fmt.Sprintf("Free tier limit reached (%d/%d %ss). Upgrade to create more.",
				count, models.FreeTierLimit, entityType),
		}, ErrUsageLimitExceeded
	}

	return &EntitlementResult{Allowed: true, Remaining: remaining}, nil
}

func countOwned(database *gorm.DB, userID, entityType string) (int64, error) {
	var count int64
	switch entityType {
	case EntityTypeCase:
		err := database.Model(&models.Case{}).Where("user_id = ?", userID).Count(&count).Error
		return count, err
	case EntityTypeContract:
		err := database.Model(&models.Contract{}).Where("user_id = ?", userID).Count(&count).Error
		return count, err
	default:
		return 0, ErrUnknownEntityType
	}
}

// SubscriptionStatus summarises the caller's entitlement for the dashboard
type SubscriptionStatus struct {
	Active             bool    `json:"active"`
	Status             string  `json:"status"`
	ExpiresAt          *string `json:"expires_at,omitempty"`
	CasesRemaining     int     `json:"cases_remaining"`
	ContractsRemaining int     `json:"contracts_remaining"`
}

// GetSubscriptionStatus reports the user's subscription state and the
// remaining free-tier allowance for each gated entity type.
func GetSubscriptionStatus(database *gorm.DB, userID string) (*SubscriptionStatus, error) {
	status := &SubscriptionStatus{Status: "free"}

	var subscription models.Subscription
	err := database.Where("user_id = ?", userID).First(&subscription).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		status.Status = subscription.Status
		if subscription.ExpiresAt != nil {
			formatted := subscription.ExpiresAt.Format("2006-01-02")
			status.ExpiresAt = &formatted
		}
		if subscription.IsActive() {
			status.Active = true
			status.CasesRemaining = -1
			status.ContractsRemaining = -1
			return status, nil
		}
	}

	caseCount, err := countOwned(database, userID, EntityTypeCase)
	if err != nil {
		return nil, err
	}
	contractCount, err := countOwned(database, userID, EntityTypeContract)
	if err != nil {
		return nil, err
	}

	status.CasesRemaining = max(0, models.FreeTierLimit-int(caseCount))
	status.ContractsRemaining = max(0, models.FreeTierLimit-int(contractCount))
	return status, nil
}
