package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
)

type fakeProvider struct {
	intentID      string
	captureErr    error
	captures      int
	cancels       int
	verifyEvent   Event
	verifyErr     error
	verifiedCalls int
}

func (f *fakeProvider) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, string, error) {
	return f.intentID, "secret_" + f.intentID, nil
}

func (f *fakeProvider) Capture(ctx context.Context, id string) error {
	f.captures++
	return f.captureErr
}

func (f *fakeProvider) Cancel(ctx context.Context, id string) error {
	f.cancels++
	return nil
}

func (f *fakeProvider) VerifyEvent(payload []byte, sig string) (Event, error) {
	f.verifiedCalls++
	return f.verifyEvent, f.verifyErr
}

// fakeCompleter mirrors the real completer's idempotence: the transition
// applies at most once per ride.
type fakeCompleter struct {
	calls        int
	applications int
	done         map[string]bool
}

func (f *fakeCompleter) ApplyPaymentCompletion(ctx context.Context, rideID string) (bool, error) {
	f.calls++
	if f.done == nil {
		f.done = make(map[string]bool)
	}
	if f.done[rideID] {
		return false, nil
	}
	f.done[rideID] = true
	f.applications++
	return true, nil
}

func newPaymentService(p Provider, c RideCompleter) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return &Service{
		Store:    store,
		Provider: p,
		Rides:    c,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, store
}

func seedPayment(t *testing.T, store *storage.MemoryStore, ref string, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p := &models.Payment{
		ID:          storage.NewID(),
		RideID:      "ride-1",
		PayerID:     "p1",
		Amount:      187.5,
		Currency:    "usd",
		Status:      status,
		ExternalRef: ref,
		CreatedAt:   time.Now(),
	}
	if err := store.CreatePayment(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateIntent(t *testing.T) {
	prov := &fakeProvider{intentID: "pi_123"}
	svc, store := newPaymentService(prov, &fakeCompleter{})

	ride := &models.Ride{ID: "ride-1", UserID: "p1", Fare: 187.5}
	p, secret, err := svc.CreateIntent(context.Background(), "p1", ride, "card")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.PaymentPending || p.ExternalRef != "pi_123" {
		t.Fatalf("unexpected payment: %+v", p)
	}
	if secret != "secret_pi_123" {
		t.Fatalf("unexpected client secret %q", secret)
	}
	if _, err := store.GetPaymentByExternalRef(context.Background(), "pi_123"); err != nil {
		t.Fatalf("payment not persisted: %v", err)
	}
}

func TestCreateIntentWithoutProvider(t *testing.T) {
	svc, _ := newPaymentService(nil, &fakeCompleter{})
	ride := &models.Ride{ID: "ride-1", UserID: "p1", Fare: 10}
	if _, _, err := svc.CreateIntent(context.Background(), "p1", ride, "card"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	prov := &fakeProvider{}
	completer := &fakeCompleter{}
	svc, store := newPaymentService(prov, completer)
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	got, err := svc.Confirm(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentCompleted || got.PaidAt == nil {
		t.Fatalf("unexpected payment after confirm: %+v", got)
	}
	if prov.captures != 1 || completer.calls != 1 {
		t.Fatalf("captures=%d completions=%d", prov.captures, completer.calls)
	}

	// Confirming again is a no-op that skips the provider.
	got, err = svc.Confirm(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentCompleted || prov.captures != 1 {
		t.Fatalf("replayed confirm must not re-capture: %+v captures=%d", got, prov.captures)
	}
}

func TestConfirmNonPending(t *testing.T) {
	svc, store := newPaymentService(&fakeProvider{}, &fakeCompleter{})
	p := seedPayment(t, store, "pi_1", models.PaymentFailed)
	if _, err := svc.Confirm(context.Background(), p.ID); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestConfirmCaptureFailure(t *testing.T) {
	prov := &fakeProvider{captureErr: errors.New("card declined")}
	completer := &fakeCompleter{}
	svc, store := newPaymentService(prov, completer)
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	if _, err := svc.Confirm(context.Background(), p.ID); err == nil {
		t.Fatal("expected capture error")
	}
	got, err := store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentPending {
		t.Fatalf("failed capture must leave the payment pending, got %s", got.Status)
	}
	if completer.calls != 0 {
		t.Fatal("ride must not complete when capture fails")
	}
}

func TestCancelIntent(t *testing.T) {
	prov := &fakeProvider{}
	completer := &fakeCompleter{}
	svc, store := newPaymentService(prov, completer)
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	got, err := svc.CancelIntent(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if prov.cancels != 1 {
		t.Fatalf("expected one provider cancel, got %d", prov.cancels)
	}
	if completer.calls != 0 {
		t.Fatal("cancel must not complete the ride")
	}

	// A settled hold cannot be released.
	if _, err := svc.CancelIntent(context.Background(), p.ID); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict for non-pending payment, got %v", err)
	}
}

func TestHandleWebhookSucceededAndReplay(t *testing.T) {
	prov := &fakeProvider{verifyEvent: Event{ID: "evt_1", Type: EventIntentSucceeded, IntentID: "pi_1"}}
	completer := &fakeCompleter{}
	svc, store := newPaymentService(prov, completer)
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if completer.applications != 1 {
		t.Fatalf("expected one completion, got %d", completer.applications)
	}

	// Redelivering the same event id leaves the same final state and applies
	// the ride transition exactly once.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentCompleted || completer.applications != 1 {
		t.Fatalf("replay changed state: status=%s applications=%d", got.Status, completer.applications)
	}
}

// failingStore simulates a transient storage outage during settlement.
type failingStore struct {
	*storage.MemoryStore
	failUpdates int
}

func (f *failingStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	if f.failUpdates > 0 {
		f.failUpdates--
		return errors.New("connection reset")
	}
	return f.MemoryStore.UpdatePayment(ctx, p)
}

func TestHandleWebhookRetriesAfterSettlementFailure(t *testing.T) {
	prov := &fakeProvider{verifyEvent: Event{ID: "evt_1", Type: EventIntentSucceeded, IntentID: "pi_1"}}
	completer := &fakeCompleter{}
	mem := storage.NewMemoryStore()
	store := &failingStore{MemoryStore: mem, failUpdates: 1}
	svc := &Service{
		Store:    store,
		Provider: prov,
		Rides:    completer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p := seedPayment(t, mem, "pi_1", models.PaymentPending)

	// First delivery fails mid-settlement and must surface the error so the
	// provider retries.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err == nil {
		t.Fatal("expected error from failed settlement")
	}

	// The retry carries the same event id; it must settle, not be treated as
	// a duplicate of the failed attempt.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	got, err := mem.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentCompleted {
		t.Fatalf("expected completed after retry, got %s", got.Status)
	}
	if completer.applications != 1 {
		t.Fatalf("expected one ride completion, got %d", completer.applications)
	}
}

func TestHandleWebhookFailedEvent(t *testing.T) {
	prov := &fakeProvider{verifyEvent: Event{ID: "evt_2", Type: EventIntentFailed, IntentID: "pi_1"}}
	completer := &fakeCompleter{}
	svc, store := newPaymentService(prov, completer)
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if completer.calls != 0 {
		t.Fatal("failed payment must not complete the ride")
	}
}

func TestHandleWebhookBadSignature(t *testing.T) {
	prov := &fakeProvider{verifyErr: ErrSignature}
	svc, _ := newPaymentService(prov, &fakeCompleter{})
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad"); !errors.Is(err, ErrSignature) {
		t.Fatalf("expected ErrSignature, got %v", err)
	}
}

func TestHandleWebhookUnknownIntent(t *testing.T) {
	prov := &fakeProvider{verifyEvent: Event{ID: "evt_3", Type: EventIntentSucceeded, IntentID: "pi_missing"}}
	svc, _ := newPaymentService(prov, &fakeCompleter{})
	// Unknown intents are acknowledged so the provider stops retrying.
	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("unknown intent must ack, got %v", err)
	}
}

func TestHandleWebhookIgnoredType(t *testing.T) {
	prov := &fakeProvider{verifyEvent: Event{ID: "evt_4", Type: "charge.updated", IntentID: "pi_1"}}
	svc, store := newPaymentService(prov, &fakeCompleter{})
	p := seedPayment(t, store, "pi_1", models.PaymentPending)

	if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetPayment(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.PaymentPending {
		t.Fatalf("unhandled event types must not touch payments, got %s", got.Status)
	}
}
