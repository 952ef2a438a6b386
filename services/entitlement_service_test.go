package services

import (
	"fmt"
	"testing"
	"time"

	"tradie_legal_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEntitlementTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.Case{},
		&models.Contract{},
	))
	return db
}

var seededCaseCount int

func seedCases(t *testing.T, db *gorm.DB, userID string, n int) {
	for i := 0; i < n; i++ {
		seededCaseCount++
		require.NoError(t, db.Create(&models.Case{
			UserID:     userID,
			CaseNumber: fmt.Sprintf("TS-2026-%05d", seededCaseCount),
			Title:      "dispute",
			IssueType:  models.IssueTypePaymentDispute,
			State:      "NSW",
			Status:     models.CaseStatusActive,
		}).Error)
	}
}

func TestCanCreateFreeTier(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "free@example.com")

	// 1. Fresh account has the full allowance
	result, err := CanCreate(db, user.ID, EntityTypeCase)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, models.FreeTierLimit, result.Remaining)

	// 2. One case used
	seedCases(t, db, user.ID, 1)
	result, err = CanCreate(db, user.ID, EntityTypeCase)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)

	// 3. Limit reached
	seedCases(t, db, user.ID, 1)
	result, err = CanCreate(db, user.ID, EntityTypeCase)
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Contains(t, result.Reason, "Free tier limit reached")
}

func TestCanCreateCountsEntityTypesSeparately(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "free@example.com")
	seedCases(t, db, user.ID, models.FreeTierLimit)

	// Cases are exhausted but contracts still have their own allowance
	_, err := CanCreate(db, user.ID, EntityTypeCase)
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)

	result, err := CanCreate(db, user.ID, EntityTypeContract)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, models.FreeTierLimit, result.Remaining)
}

func TestCanCreateWithActiveSubscription(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "sub@example.com")
	seedCases(t, db, user.ID, models.FreeTierLimit+3)

	expires := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		ExpiresAt: &expires,
	}).Error)

	result, err := CanCreate(db, user.ID, EntityTypeCase)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, -1, result.Remaining)
}

func TestExpiredSubscriptionFallsBackToFreeTier(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "lapsed@example.com")
	seedCases(t, db, user.ID, models.FreeTierLimit)

	expired := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Create(&models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		ExpiresAt: &expired,
	}).Error)

	_, err := CanCreate(db, user.ID, EntityTypeCase)
	assert.ErrorIs(t, err, ErrUsageLimitExceeded)
}

func TestCanCreateRejectsUnknownEntity(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "free@example.com")

	_, err := CanCreate(db, user.ID, "invoice")
	assert.ErrorIs(t, err, ErrUnknownEntityType)
}

func TestGetSubscriptionStatus(t *testing.T) {
	db := setupEntitlementTestDB(t)
	user := createTestUser(t, db, "free@example.com")
	seedCases(t, db, user.ID, 1)

	// Free tier reports remaining allowances
	status, err := GetSubscriptionStatus(db, user.ID)
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Equal(t, "free", status.Status)
	assert.Equal(t, models.FreeTierLimit-1, status.CasesRemaining)
	assert.Equal(t, models.FreeTierLimit, status.ContractsRemaining)

	// Active subscription reports unlimited
	expires := time.Now().Add(365 * 24 * time.Hour)
	require.NoError(t, db.Create(&models.Subscription{
		UserID:    user.ID,
		Status:    models.SubscriptionStatusActive,
		ExpiresAt: &expires,
	}).Error)

	status, err = GetSubscriptionStatus(db, user.ID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, models.SubscriptionStatusActive, status.Status)
	assert.Equal(t, -1, status.CasesRemaining)
	assert.Equal(t, -1, status.ContractsRemaining)
	require.NotNil(t, status.ExpiresAt)
}
