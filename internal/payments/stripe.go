package payments

import (
	"context"
	"encoding/json"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/webhook"
)

// StripeProvider is a thin wrapper around stripe-go for PaymentIntent
// hold/capture/cancel flows plus signed webhook verification.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider initializes the stripe client. The API key is global in
// stripe-go, so construct this once at startup.
func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

// CreateIntent creates a PaymentIntent with capture_method=manual to hold
// funds, returning the intent id and the client secret for the caller.
func (s *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", err
	}
	return pi.ID, pi.ClientSecret, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeProvider) Capture(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Capture(paymentIntentID, nil)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeProvider) Cancel(ctx context.Context, paymentIntentID string) error {
	_, err := paymentintent.Cancel(paymentIntentID, nil)
	return err
}

// VerifyEvent checks the provider signature and extracts the fields the
// settlement path needs. Unverified payloads never reach processing.
func (s *StripeProvider) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		return Event{}, ErrSignature
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &obj); err == nil {
		out.IntentID = obj.ID
	}
	return out, nil
}
