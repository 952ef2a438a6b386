package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"tradie_legal_go/config"
	"tradie_legal_go/db"
	"tradie_legal_go/middleware"
	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/gorm"
)

// getConfig pulls the app configuration injected by middleware in main
func getConfig(c echo.Context) *config.Config {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg
	}
	return config.Load()
}

// CreatePaymentIntentHandler creates a payment intent for an application
// awaiting payment
// POST /api/applications/:id/payment-intent
func CreatePaymentIntentHandler(c echo.Context) error {
	user := middleware.GetCurrentUser(c)

	var app models.Application
	if err := db.DB.First(&app, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Application not found")
		}
		return serviceError(err)
	}
	if !user.IsAdmin() && (app.UserID == nil || *app.UserID != user.ID) {
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	}
	if app.WorkflowStage != models.StagePaymentPending {
		return echo.NewHTTPError(http.StatusConflict, "Application is not awaiting payment")
	}

	result, err := services.CreateCasePaymentIntent(getConfig(c), app.ID)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// StripeWebhookHandler receives payment confirmation from Stripe. A
// payment_intent.succeeded event advances the application past payment;
// everything else is acknowledged and ignored.
// POST /api/webhooks/stripe
func StripeWebhookHandler(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	event, err := services.VerifyWebhookEvent(getConfig(c), payload,
		c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return serviceError(err)
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	applicationID, err := services.ApplicationIDFromEvent(event)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := services.MarkPaymentCompleted(db.DB, applicationID); err != nil {
		// A replayed webhook for an already-advanced application is fine
		if errors.Is(err, services.ErrInvalidTransition) {
			return c.JSON(http.StatusOK, map[string]string{"status": "already_processed"})
		}
		log.Printf("Failed to process payment for application %s: %v", applicationID, err)
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "processed"})
}
