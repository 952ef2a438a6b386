package handlers

import (
	"net/http"

	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
)

// SubscriptionStatusHandler reports the caller's plan and remaining
// free-tier allowance
// GET /api/subscription
func SubscriptionStatusHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	status, err := services.GetSubscriptionStatus(db.DB, user.ID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, status)
}

// EntitlementCheckHandler answers whether the caller may create another
// entity of the given type, without creating anything
// GET /api/subscription/can-create/:entity
func EntitlementCheckHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	entity := c.Param("entity")
	switch entity {
	case services.EntityTypeCase, services.EntityTypeContract:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown entity type")
	}

	result, err := services.CanCreate(db.DB, user.ID, entity)
	if err != nil && result == nil {
		return serviceError(err)
	}

	// A denied check still returns 200 with allowed=false
	return c.JSON(http.StatusOK, result)
}
