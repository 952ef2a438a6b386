package services

import (
	"fmt"
	"time"
	"tradie_legal_go/models"

	"gorm.io/gorm"
)

// NextCaseNumber generates the next sequential case number in the form
// TS-<year>-<seq>, scoped to the current year. Must run inside the same
// transaction as the case insert so two provisions cannot share a number.
func NextCaseNumber(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("TS-%d-", year)

	var count int64
	if err := tx.Model(&models.Case{}).
		Unscoped().
		Where("case_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count cases for numbering: %w", err)
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
