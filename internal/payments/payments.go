package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/observability"
	"github.com/example/medride/internal/storage"
)

var (
	// ErrSignature marks a webhook payload that failed verification.
	ErrSignature = errors.New("invalid webhook signature")
	// ErrNotConfigured is returned when no payment provider is wired.
	ErrNotConfigured = errors.New("payment provider not configured")
)

// Event is the provider-agnostic view of a webhook delivery.
type Event struct {
	ID       string
	Type     string
	IntentID string
}

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Provider is the external payment service boundary.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (id, clientSecret string, err error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
	VerifyEvent(payload []byte, sigHeader string) (Event, error)
}

// RideCompleter applies payment-driven ride completion, idempotently.
type RideCompleter interface {
	ApplyPaymentCompletion(ctx context.Context, rideID string) (bool, error)
}

type Service struct {
	Store    storage.Store
	Provider Provider
	Rides    RideCompleter
	Logger   *slog.Logger
}

// CreateIntent opens a pending payment for a ride the caller can see and
// holds the fare with the provider. The returned client secret goes back to
// the client to complete the charge.
func (s *Service) CreateIntent(ctx context.Context, payerID string, ride *models.Ride, method string) (*models.Payment, string, error) {
	if s.Provider == nil {
		return nil, "", ErrNotConfigured
	}
	amountCents := int64(math.Round(ride.Fare * 100))
	intentID, clientSecret, err := s.Provider.CreateIntent(ctx, amountCents, "usd")
	if err != nil {
		return nil, "", fmt.Errorf("create intent: %w", err)
	}
	now := time.Now()
	p := &models.Payment{
		ID:          storage.NewID(),
		RideID:      ride.ID,
		PayerID:     payerID,
		Amount:      ride.Fare,
		Currency:    "usd",
		Method:      method,
		Status:      models.PaymentPending,
		ExternalRef: intentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.CreatePayment(ctx, p); err != nil {
		return nil, "", err
	}
	return p, clientSecret, nil
}

// Confirm is the direct (non-webhook) settlement path: capture the held
// intent at the provider, then apply the same completion as the webhook
// would. Clients can never mark a payment completed without the provider
// round trip succeeding.
func (s *Service) Confirm(ctx context.Context, paymentID string) (*models.Payment, error) {
	if s.Provider == nil {
		return nil, ErrNotConfigured
	}
	p, err := s.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.PaymentCompleted {
		return p, nil // already settled, replay is a no-op
	}
	if p.Status != models.PaymentPending {
		return nil, fmt.Errorf("%w: payment is %s", storage.ErrConflict, p.Status)
	}
	if err := s.Provider.Capture(ctx, p.ExternalRef); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return s.settle(ctx, p, models.PaymentCompleted)
}

// CancelIntent releases the provider hold on a pending payment and marks it
// failed. Settled payments cannot be canceled.
func (s *Service) CancelIntent(ctx context.Context, paymentID string) (*models.Payment, error) {
	if s.Provider == nil {
		return nil, ErrNotConfigured
	}
	p, err := s.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPending {
		return nil, fmt.Errorf("%w: payment is %s", storage.ErrConflict, p.Status)
	}
	if err := s.Provider.Cancel(ctx, p.ExternalRef); err != nil {
		return nil, fmt.Errorf("cancel intent: %w", err)
	}
	return s.settle(ctx, p, models.PaymentFailed)
}

// HandleWebhook verifies and applies one provider event. The event id is
// recorded only after settlement succeeds: a failed settlement leaves the id
// unmarked so the provider's retry is processed, and settlement itself is
// idempotent, so a redelivery that races the marker cannot double-settle or
// double-broadcast.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.Provider == nil {
		return ErrNotConfigured
	}
	ev, err := s.Provider.VerifyEvent(payload, sigHeader)
	if err != nil {
		observability.WebhookEvents.WithLabelValues("rejected").Inc()
		return err
	}

	switch ev.Type {
	case EventIntentSucceeded:
		err = s.settleByRef(ctx, ev.IntentID, models.PaymentCompleted)
	case EventIntentFailed:
		err = s.settleByRef(ctx, ev.IntentID, models.PaymentFailed)
	default:
		observability.WebhookEvents.WithLabelValues("ignored").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	first, err := s.Store.MarkEventProcessed(ctx, ev.ID)
	if err != nil {
		return err
	}
	if !first {
		observability.WebhookEvents.WithLabelValues("duplicate").Inc()
		s.Logger.Info("duplicate webhook event", "event_id", ev.ID)
	}
	return nil
}

func (s *Service) settleByRef(ctx context.Context, intentID string, status models.PaymentStatus) error {
	p, err := s.Store.GetPaymentByExternalRef(ctx, intentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Event for an intent we never issued; acknowledge and move on.
			s.Logger.Warn("webhook for unknown intent", "intent_id", intentID)
			observability.WebhookEvents.WithLabelValues("unknown").Inc()
			return nil
		}
		return err
	}
	_, err = s.settle(ctx, p, status)
	return err
}

// settle moves a payment to its terminal status and, on completion, forces
// the ride's completion. Apply-if-not-already-applied on both records keeps
// the operation order-independent against manual status updates.
func (s *Service) settle(ctx context.Context, p *models.Payment, status models.PaymentStatus) (*models.Payment, error) {
	if p.Status != status {
		p.Status = status
		if status == models.PaymentCompleted {
			now := time.Now()
			p.PaidAt = &now
		}
		if err := s.Store.UpdatePayment(ctx, p); err != nil {
			return nil, err
		}
	}
	if status == models.PaymentCompleted {
		applied, err := s.Rides.ApplyPaymentCompletion(ctx, p.RideID)
		if err != nil {
			return nil, err
		}
		if !applied {
			s.Logger.Info("payment completed but ride transition skipped",
				"payment_id", p.ID, "ride_id", p.RideID)
		}
		observability.WebhookEvents.WithLabelValues("settled").Inc()
	}
	return p, nil
}
