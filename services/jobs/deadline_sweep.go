package jobs

import (
	"fmt"
	"log"
	"time"

	"tradie_legal_go/models"

	"gorm.io/gorm"
)

// ReminderLeadTime is how far ahead of a due date the sweep raises a
// deadline notification
const ReminderLeadTime = 48 * time.Hour

// SweepDeadlines marks overdue timeline entries and raises one deadline
// notification per upcoming or overdue entry. ReminderSentAt guards against
// a second notification for the same entry on later sweeps.
func SweepDeadlines(database *gorm.DB) {
	now := time.Now().UTC()

	// Flip pending entries past their due date to overdue
	result := database.Model(&models.TimelineEntry{}).
		Where("status = ?", models.TimelineStatusPending).
		Where("due_at IS NOT NULL AND due_at < ?", now).
		Update("status", models.TimelineStatusOverdue)
	if result.Error != nil {
		log.Printf("Deadline sweep failed to mark overdue entries: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Deadline sweep marked %d entries overdue", result.RowsAffected)
	}

	// Entries due soon or already overdue that have not been reminded yet
	var entries []models.TimelineEntry
	err := database.
		Where("status IN (?)", []string{models.TimelineStatusPending, models.TimelineStatusOverdue}).
		Where("due_at IS NOT NULL AND due_at <= ?", now.Add(ReminderLeadTime)).
		Where("reminder_sent_at IS NULL").
		Find(&entries).Error
	if err != nil {
		log.Printf("Deadline sweep failed to fetch entries: %v", err)
		return
	}

	for _, entry := range entries {
		priority := entry.Priority
		title := "Deadline approaching"
		if entry.Status == models.TimelineStatusOverdue {
			priority = models.PriorityUrgent
			title = "Deadline overdue"
		}

		notification := models.Notification{
			UserID:   entry.UserID,
			CaseID:   entry.CaseID,
			Type:     models.NotificationTypeDeadline,
			Title:    title,
			Message:  fmt.Sprintf("%s is due %s.", entry.Title, entry.DueAt.Format("2 January 2006")),
			Priority: priority,
		}
		if entry.CaseID != nil {
			notification.LinkURL = "/cases/" + *entry.CaseID
		}

		err := database.Transaction(func(tx *gorm.DB) error {
			// Claim the entry first so a concurrent sweep cannot double-notify
			claim := tx.Model(&models.TimelineEntry{}).
				Where("id = ? AND reminder_sent_at IS NULL", entry.ID).
				Update("reminder_sent_at", now)
			if claim.Error != nil {
				return claim.Error
			}
			if claim.RowsAffected == 0 {
				return nil
			}
			return tx.Create(&notification).Error
		})
		if err != nil {
			log.Printf("Deadline sweep failed for entry %s: %v", entry.ID, err)
		}
	}
}
