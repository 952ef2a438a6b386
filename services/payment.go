package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"tradie_legal_go/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Payment error types
var (
	ErrPaymentNotConfigured = errors.New("payment provider not configured")
	ErrInvalidWebhook       = errors.New("webhook signature verification failed")
)

// CasePriceCents is the flat price of a strategy-pack engagement in AUD cents
const CasePriceCents int64 = 49900

// PaymentIntentResult carries the client secret back to the dashboard
type PaymentIntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Stub         bool   `json:"stub,omitempty"`
}

// InitializePayments sets the Stripe API key at boot
func InitializePayments(cfg *config.Config) {
	if cfg.PaymentsEnabled() {
		stripe.Key = cfg.StripeSecretKey
		log.Println("Payment provider configured (Stripe)")
	} else {
		log.Println("[WARNING] STRIPE_SECRET_KEY not set - payments run in stub mode")
	}
}

// CreateCasePaymentIntent creates a payment intent for an approved
// application. Without a Stripe key a stub intent is returned so the
// workflow can be exercised end to end in development.
func CreateCasePaymentIntent(cfg *config.Config, applicationID string) (*PaymentIntentResult, error) {
	if !cfg.PaymentsEnabled() {
		return &PaymentIntentResult{
			IntentID:     "stub_" + applicationID,
			ClientSecret: "stub_secret_" + applicationID,
			AmountCents:  CasePriceCents,
			Stub:         true,
		}, nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(CasePriceCents),
		Currency: stripe.String(string(stripe.CurrencyAUD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("application_id", applicationID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  intent.Amount,
	}, nil
}

// VerifyWebhookEvent checks the Stripe signature and parses the event. In
// stub mode (no webhook secret, non-production) the payload is accepted
// unsigned so local flows can be driven by hand.
func VerifyWebhookEvent(cfg *config.Config, payload []byte, signatureHeader string) (*stripe.Event, error) {
	if cfg.StripeWebhookSecret == "" {
		if cfg.Environment == "production" {
			return nil, ErrPaymentNotConfigured
		}
		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
		}
		return &event, nil
	}

	event, err := webhook.ConstructEvent(payload, signatureHeader, cfg.StripeWebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	return &event, nil
}

// ApplicationIDFromEvent extracts the application reference from a payment
// intent event's metadata.
func ApplicationIDFromEvent(event *stripe.Event) (string, error) {
	var intent stripe.PaymentIntent
	if err := intent.UnmarshalJSON(event.Data.Raw); err != nil {
		return "", fmt.Errorf("failed to parse payment intent from event: %w", err)
	}
	applicationID := intent.Metadata["application_id"]
	if applicationID == "" {
		return "", fmt.Errorf("payment intent %s has no application_id metadata", intent.ID)
	}
	return applicationID, nil
}
