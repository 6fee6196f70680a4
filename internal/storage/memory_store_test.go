package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/medride/internal/models"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	u := &models.User{ID: NewID(), Email: "a@example.com", Name: "A", Role: models.RolePatient}
	if err := m.CreateUser(ctx, u); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Email uniqueness is case-insensitive.
	dup := &models.User{ID: NewID(), Email: "A@Example.COM", Name: "B", Role: models.RolePatient}
	if err := m.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreateUserWithDriverRollsBack(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	existing := &models.Driver{ID: NewID(), UserID: NewID(), LicenseNumber: "LIC-1"}
	if err := m.CreateDriver(ctx, existing); err != nil {
		t.Fatalf("seed driver: %v", err)
	}

	u := &models.User{ID: NewID(), Email: "d@example.com", Role: models.RoleDriver}
	d := &models.Driver{ID: NewID(), UserID: u.ID, LicenseNumber: "LIC-1"}
	if err := m.CreateUserWithDriver(ctx, u, d); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate license, got %v", err)
	}
	// The user half must not survive a failed driver insert.
	if _, err := m.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rolled-back user, got %v", err)
	}
}

func TestCreateVehicleUniqueness(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	d := &models.Driver{ID: NewID(), UserID: NewID(), LicenseNumber: "L1"}
	if err := m.CreateDriver(ctx, d); err != nil {
		t.Fatal(err)
	}
	v := &models.Vehicle{ID: NewID(), DriverID: d.ID, LicensePlate: "ABC-123"}
	if err := m.CreateVehicle(ctx, v); err != nil {
		t.Fatalf("first vehicle: %v", err)
	}
	second := &models.Vehicle{ID: NewID(), DriverID: d.ID, LicensePlate: "XYZ-999"}
	if err := m.CreateVehicle(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected one vehicle per driver, got %v", err)
	}
	orphan := &models.Vehicle{ID: NewID(), DriverID: "missing", LicensePlate: "NEW-1"}
	if err := m.CreateVehicle(ctx, orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown driver, got %v", err)
	}
}

func TestRideFilterSemantics(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	drvID := "drv-1"

	mine := &models.Ride{ID: "r1", UserID: "patient-1", Status: models.RidePending, CreatedAt: time.Now()}
	theirs := &models.Ride{ID: "r2", UserID: "patient-2", Status: models.RideAccepted, DriverID: &drvID, CreatedAt: time.Now().Add(time.Second)}
	for _, r := range []*models.Ride{mine, theirs} {
		if err := m.CreateRide(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.ListRides(ctx, RideFilter{RequesterID: "patient-1"})
	if err != nil || len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("requester filter: got %v, err %v", got, err)
	}

	got, err = m.ListRides(ctx, RideFilter{DriverID: drvID})
	if err != nil || len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("driver filter: got %v, err %v", got, err)
	}

	got, err = m.ListRides(ctx, RideFilter{MatchNone: true})
	if err != nil || len(got) != 0 {
		t.Fatalf("match-none filter: got %v, err %v", got, err)
	}

	// Out-of-scope single fetch reads as missing, not forbidden.
	if _, err := m.GetRide(ctx, "r2", RideFilter{RequesterID: "patient-1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for out-of-scope ride, got %v", err)
	}
}

func TestListRidesPagination(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 5; i++ {
		r := &models.Ride{ID: fmt.Sprintf("r%d", i), UserID: "u", Status: models.RidePending, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := m.CreateRide(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ListRides(ctx, RideFilter{RequesterID: "u", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	// Newest first: full order is r4..r0, page of 2 at offset 1 is r3, r2.
	if len(got) != 2 || got[0].ID != "r3" || got[1].ID != "r2" {
		t.Fatalf("unexpected page: %v", got)
	}
}

func TestUpdateRideStatusGuard(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	r := &models.Ride{ID: "r1", UserID: "p1", Status: models.RidePending}
	if err := m.CreateRide(ctx, r); err != nil {
		t.Fatal(err)
	}

	r.Fare = 42
	if err := m.UpdateRide(ctx, r, models.RidePending); err != nil {
		t.Fatalf("matching read status: %v", err)
	}

	// A write based on a stale status read must not land.
	r.Fare = 99
	if err := m.UpdateRide(ctx, r, models.RideAccepted); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale read, got %v", err)
	}
	got, err := m.GetRide(ctx, "r1", RideFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Fare != 42 {
		t.Fatalf("stale write landed: fare %v", got.Fare)
	}

	if err := m.UpdateRide(ctx, &models.Ride{ID: "missing"}, models.RidePending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRide(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	d := &models.Driver{ID: "d1", UserID: "u1", LicenseNumber: "L1", Available: true}
	if err := m.CreateDriver(ctx, d); err != nil {
		t.Fatal(err)
	}
	v := &models.Vehicle{ID: "v1", DriverID: "d1", LicensePlate: "P1"}
	if err := m.CreateVehicle(ctx, v); err != nil {
		t.Fatal(err)
	}
	r := &models.Ride{ID: "r1", UserID: "p1", Status: models.RidePending, CreatedAt: time.Now()}
	if err := m.CreateRide(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := m.AssignRide(ctx, "r1", "d1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != models.RideAccepted || got.DriverID == nil || *got.DriverID != "d1" {
		t.Fatalf("unexpected ride after assign: %+v", got)
	}
	if got.VehicleID == nil || *got.VehicleID != "v1" {
		t.Fatalf("vehicle not bound: %+v", got)
	}

	// Second assignment hits a non-pending ride.
	if _, err := m.AssignRide(ctx, "r1", "d1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := m.AssignRide(ctx, "missing", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRideUnavailableDriver(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	d := &models.Driver{ID: "d1", UserID: "u1", LicenseNumber: "L1", Available: false}
	if err := m.CreateDriver(ctx, d); err != nil {
		t.Fatal(err)
	}
	r := &models.Ride{ID: "r1", UserID: "p1", Status: models.RidePending}
	if err := m.CreateRide(ctx, r); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AssignRide(ctx, "r1", "d1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for unavailable driver, got %v", err)
	}
}

func TestForceCompleteRide(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	r := &models.Ride{ID: "r1", UserID: "p1", Status: models.RideInProgress}
	if err := m.CreateRide(ctx, r); err != nil {
		t.Fatal(err)
	}
	applied, err := m.ForceCompleteRide(ctx, "r1")
	if err != nil || !applied {
		t.Fatalf("first completion: applied=%v err=%v", applied, err)
	}
	applied, err = m.ForceCompleteRide(ctx, "r1")
	if err != nil || applied {
		t.Fatalf("second completion must be a no-op: applied=%v err=%v", applied, err)
	}

	canceled := &models.Ride{ID: "r2", UserID: "p1", Status: models.RideCanceled}
	if err := m.CreateRide(ctx, canceled); err != nil {
		t.Fatal(err)
	}
	applied, err = m.ForceCompleteRide(ctx, "r2")
	if err != nil || applied {
		t.Fatalf("canceled ride must stay canceled: applied=%v err=%v", applied, err)
	}
}

func TestListSamplesCapAndOrder(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 60; i++ {
		s := &models.TrackingSample{
			ID:        NewID(),
			RideID:    "r1",
			Lat:       float64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := m.AppendSample(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	got, err := m.ListSamples(ctx, "r1", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(got))
	}
	// Newest first.
	if got[0].Lat != 59 || got[49].Lat != 10 {
		t.Fatalf("unexpected order: first=%v last=%v", got[0].Lat, got[49].Lat)
	}
}

func TestMarkEventProcessed(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	first, err := m.MarkEventProcessed(ctx, "evt_1")
	if err != nil || !first {
		t.Fatalf("first mark: %v %v", first, err)
	}
	second, err := m.MarkEventProcessed(ctx, "evt_1")
	if err != nil || second {
		t.Fatalf("replayed event must report already processed: %v %v", second, err)
	}
}
