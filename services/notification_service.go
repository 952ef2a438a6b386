package services

import (
	"sort"
	"time"
	"tradie_legal_go/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// InsightWindow is how far ahead the deadline scan looks
const InsightWindow = 7 * 24 * time.Hour

// GetNotifications returns the user's stored notifications merged with
// insights derived on demand from entity state (approaching and overdue
// deadlines). Ordering: most urgent first, ties broken by creation recency
// descending. Archived notifications are excluded.
func (s *NotificationService) GetNotifications(userID string, includeRead bool) ([]models.Notification, error) {
	query := s.DB.Where("user_id = ? AND archived_at IS NULL", userID)
	if !includeRead {
		query = query.Where("read_at IS NULL")
	}

	var stored []models.Notification
	if err := query.Find(&stored).Error; err != nil {
		return nil, err
	}

	derived, err := s.deriveDeadlineInsights(userID)
	if err != nil {
		return nil, err
	}

	merged := append(stored, derived...)
	sort.SliceStable(merged, func(i, j int) bool {
		pi, pj := models.PriorityRank(merged[i].Priority), models.PriorityRank(merged[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	return merged, nil
}

// deriveDeadlineInsights materialises notification-shaped objects for
// timeline entries due within the window or already overdue. These are not
// persisted; the sweep job persists one reminder per entry separately.
func (s *NotificationService) deriveDeadlineInsights(userID string) ([]models.Notification, error) {
	now := time.Now()
	horizon := now.Add(InsightWindow)

	var entries []models.TimelineEntry
	err := s.DB.Where("user_id = ? AND status != ? AND due_at IS NOT NULL AND due_at <= ?",
		userID, models.TimelineStatusCompleted, horizon).
		Order("due_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	insights := make([]models.Notification, 0, len(entries))
	for _, entry := range entries {
		n := models.Notification{
			UserID:     userID,
			CaseID:     entry.CaseID,
			ContractID: entry.ContractID,
			Type:       models.NotificationTypeDeadline,
			Title:      "Upcoming deadline: " + entry.Title,
			Priority:   entry.Priority,
		}
		n.CreatedAt = entry.CreatedAt
		if entry.DueAt.Before(now) {
			n.Title = "Overdue: " + entry.Title
			n.Priority = models.PriorityUrgent
			n.Message = "This deadline passed on " + entry.DueAt.Format("2 January 2006") + "."
		} else {
			n.Message = "Due " + entry.DueAt.Format("2 January 2006") + "."
		}
		insights = append(insights, n)
	}

	return insights, nil
}

// GetPendingReviewInsights lists documents awaiting admin review, most
// recent first. Admin dashboard only.
func (s *NotificationService) GetPendingReviewInsights() ([]models.GeneratedDocument, error) {
	var docs []models.GeneratedDocument
	err := s.DB.Where("status IN (?, ?)",
		models.GeneratedDocStatusDraft, models.GeneratedDocStatusPendingReview).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (s *NotificationService) MarkAsRead(notificationID, userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read_at", now).Error
}

func (s *NotificationService) MarkAllAsRead(userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now).Error
}

func (s *NotificationService) Archive(notificationID, userID string) error {
	now := time.Now()
	return s.DB.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("archived_at", now).Error
}

func (s *NotificationService) GetUnreadCount(userID string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL AND archived_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) CreateNotification(notification *models.Notification) error {
	return s.DB.Create(notification).Error
}
