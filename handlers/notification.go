package handlers

import (
	"net/http"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
)

// ListNotificationsHandler returns stored notifications merged with derived
// deadline insights, most urgent first
// GET /api/notifications
func ListNotificationsHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	includeRead := c.QueryParam("include_read") == "true"

	svc := services.NewNotificationService(db.DB)
	notifications, err := svc.GetNotifications(user.ID, includeRead)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, notifications)
}

// UnreadCountHandler returns the unread badge count
// GET /api/notifications/unread-count
func UnreadCountHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	count, err := services.NewNotificationService(db.DB).GetUnreadCount(user.ID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]int64{"unread": count})
}

// MarkNotificationReadHandler marks one notification as read
// POST /api/notifications/:id/read
func MarkNotificationReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.NewNotificationService(db.DB).MarkAsRead(c.Param("id"), user.ID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsReadHandler marks every unread notification as read
// POST /api/notifications/read-all
func MarkAllNotificationsReadHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.NewNotificationService(db.DB).MarkAllAsRead(user.ID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ArchiveNotificationHandler hides a notification from the list
// POST /api/notifications/:id/archive
func ArchiveNotificationHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	if err := services.NewNotificationService(db.DB).Archive(c.Param("id"), user.ID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PendingReviewInsightsHandler lists documents awaiting review for the
// admin dashboard
// GET /api/admin/insights/pending-review
func PendingReviewInsightsHandler(c echo.Context) error {
	docs, err := services.NewNotificationService(db.DB).GetPendingReviewInsights()
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, docs)
}
