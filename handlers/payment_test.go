package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"tradie_legal_go/models"
	"tradie_legal_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntentHandlerStubMode(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)
	app := seedHandlerApplication(t, testDB, &user.ID, models.StagePaymentPending)

	_, c, rec := setupEcho(http.MethodPost, "/api/applications/"+app.ID+"/payment-intent", nil)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)
	asUser(c, user)

	require.NoError(t, CreatePaymentIntentHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.PaymentIntentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Stub)
	assert.Equal(t, services.CasePriceCents, resp.AmountCents)
	assert.NotEmpty(t, resp.ClientSecret)
}

func TestCreatePaymentIntentHandlerRequiresPaymentStage(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)
	app := seedHandlerApplication(t, testDB, &user.ID, models.StageSubmitted)

	_, c, _ := setupEcho(http.MethodPost, "/api/applications/"+app.ID+"/payment-intent", nil)
	c.SetParamNames("id")
	c.SetParamValues(app.ID)
	asUser(c, user)

	assert.Equal(t, http.StatusConflict, httpCode(t, CreatePaymentIntentHandler(c)))
}

func stripeWebhookPayload(eventType, applicationID string) string {
	return fmt.Sprintf(`{
		"type": %q,
		"data": {
			"object": {
				"id": "pi_test_1",
				"object": "payment_intent",
				"metadata": {"application_id": %q}
			}
		}
	}`, eventType, applicationID)
}

func TestStripeWebhookHandlerAdvancesApplication(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)
	app := seedHandlerApplication(t, testDB, &user.ID, models.StagePaymentPending)

	// Unsigned payloads are accepted outside production without a secret
	_, c, rec := setupEcho(http.MethodPost, "/api/webhooks/stripe",
		jsonBody(stripeWebhookPayload("payment_intent.succeeded", app.ID)))

	require.NoError(t, StripeWebhookHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "processed")

	var stored models.Application
	require.NoError(t, testDB.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.StageIntakePending, stored.WorkflowStage)
	assert.Equal(t, models.PaymentStatusCompleted, stored.PaymentStatus)
}

func TestStripeWebhookHandlerIgnoresOtherEvents(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)
	app := seedHandlerApplication(t, testDB, &user.ID, models.StagePaymentPending)

	_, c, rec := setupEcho(http.MethodPost, "/api/webhooks/stripe",
		jsonBody(stripeWebhookPayload("payment_intent.created", app.ID)))

	require.NoError(t, StripeWebhookHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")

	var stored models.Application
	require.NoError(t, testDB.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.StagePaymentPending, stored.WorkflowStage)
}

func TestStripeWebhookHandlerToleratesReplay(t *testing.T) {
	testDB := setupTestDB(t)
	user := createHandlerUser(t, testDB, "dave@example.com", models.RoleClient)
	app := seedHandlerApplication(t, testDB, &user.ID, models.StagePaymentPending)

	deliver := func() string {
		_, c, rec := setupEcho(http.MethodPost, "/api/webhooks/stripe",
			jsonBody(stripeWebhookPayload("payment_intent.succeeded", app.ID)))
		require.NoError(t, StripeWebhookHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}

	assert.Contains(t, deliver(), "processed")

	// A replayed delivery is acknowledged without a second transition
	assert.Contains(t, deliver(), "processed")

	var stored models.Application
	require.NoError(t, testDB.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.StageIntakePending, stored.WorkflowStage)

	// Only the intake invite email was queued once
	var emails int64
	require.NoError(t, testDB.Model(&models.OutboxTask{}).
		Where("kind = ?", models.TaskKindSendEmail).Count(&emails).Error)
	assert.Equal(t, int64(1), emails)
}

func TestStripeWebhookHandlerRejectsEventWithoutApplication(t *testing.T) {
	setupTestDB(t)

	_, c, _ := setupEcho(http.MethodPost, "/api/webhooks/stripe", jsonBody(`{
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_test_2", "object": "payment_intent"}}
	}`))

	assert.Equal(t, http.StatusBadRequest, httpCode(t, StripeWebhookHandler(c)))
}
