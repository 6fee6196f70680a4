package rides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/medride/internal/access"
	"github.com/example/medride/internal/geo"
	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/observability"
	"github.com/example/medride/internal/storage"
)

const (
	maxSpecialRequirements = 500
	candidateLimit         = 5
)

var (
	// ErrValidation marks malformed or out-of-range input; always wrapped
	// with a descriptive message.
	ErrValidation = errors.New("invalid ride")
	// ErrTransition marks a status change the state machine does not allow.
	ErrTransition = errors.New("illegal status transition")
)

// Broadcaster pushes ride events to live subscribers. Delivery is
// best-effort; a failed broadcast never fails the operation.
type Broadcaster interface {
	Broadcast(rideID string, event interface{})
}

// StatusEvent is pushed to a ride's room whenever its status changes.
type StatusEvent struct {
	Type   string            `json:"type"`
	RideID string            `json:"ride_id"`
	Status models.RideStatus `json:"status"`
}

type Service struct {
	Store       storage.Store
	Hub         Broadcaster
	Logger      *slog.Logger
	BaseFare    float64
	PerMileRate float64
}

type CreateInput struct {
	ForUserID           string // admin booking on a patient's behalf; empty = self
	StartLocation       string
	EndLocation         string
	StartCoord          *models.Coord
	EndCoord            *models.Coord
	RideDate            time.Time
	SpecialRequirements string
	EmergencyContact    string
	VehicleType         string
}

// Create books a ride in the pending state. When a vehicle-type preference
// is given the returned driver slice holds up to five advisory candidates;
// nothing is assigned here.
func (s *Service) Create(ctx context.Context, ident access.Identity, in CreateInput) (*models.Ride, []models.Driver, error) {
	if in.StartLocation == "" || in.EndLocation == "" {
		return nil, nil, fmt.Errorf("%w: start and end locations are required", ErrValidation)
	}
	if in.RideDate.Before(time.Now()) {
		return nil, nil, fmt.Errorf("%w: ride date must not be in the past", ErrValidation)
	}
	if len(in.SpecialRequirements) > maxSpecialRequirements {
		return nil, nil, fmt.Errorf("%w: special requirements exceed %d characters", ErrValidation, maxSpecialRequirements)
	}

	requester := ident.UserID
	if in.ForUserID != "" && ident.IsAdmin() {
		requester = in.ForUserID
	}

	now := time.Now()
	r := &models.Ride{
		ID:                  storage.NewID(),
		UserID:              requester,
		StartLocation:       in.StartLocation,
		EndLocation:         in.EndLocation,
		StartCoord:          in.StartCoord,
		EndCoord:            in.EndCoord,
		RideDate:            in.RideDate,
		Status:              models.RidePending,
		SpecialRequirements: in.SpecialRequirements,
		EmergencyContact:    in.EmergencyContact,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	r.Fare = s.BaseFare
	if in.StartCoord != nil && in.EndCoord != nil {
		r.DistanceMiles = geo.HaversineMiles(in.StartCoord.Lat, in.StartCoord.Lon, in.EndCoord.Lat, in.EndCoord.Lon)
		r.Fare = s.BaseFare + r.DistanceMiles*s.PerMileRate
	}

	if err := s.Store.CreateRide(ctx, r); err != nil {
		return nil, nil, err
	}
	observability.RidesCreated.Inc()

	var candidates []models.Driver
	if in.VehicleType != "" {
		var err error
		candidates, err = s.Store.ListAvailableDrivers(ctx, in.VehicleType, candidateLimit)
		if err != nil {
			// Advisory only; the booking already exists.
			s.Logger.Warn("candidate lookup failed", "ride_id", r.ID, "error", err)
			candidates = nil
		}
	}
	return r, candidates, nil
}

// scope resolves the caller's ride filter, looking up the driver profile
// when the role demands one.
func (s *Service) scope(ctx context.Context, ident access.Identity) (storage.RideFilter, string, error) {
	var driverID string
	if ident.IsDriver() {
		d, err := s.Store.GetDriverByUser(ctx, ident.UserID)
		switch {
		case err == nil:
			driverID = d.ID
		case errors.Is(err, storage.ErrNotFound):
			// No profile yet: scope collapses to the empty set.
		default:
			return storage.RideFilter{}, "", err
		}
	}
	return access.RideScope(ident, driverID), driverID, nil
}

func (s *Service) Get(ctx context.Context, ident access.Identity, id string) (*models.Ride, error) {
	f, _, err := s.scope(ctx, ident)
	if err != nil {
		return nil, err
	}
	return s.Store.GetRide(ctx, id, f)
}

func (s *Service) List(ctx context.Context, ident access.Identity, status models.RideStatus, limit, offset int) ([]models.Ride, error) {
	f, _, err := s.scope(ctx, ident)
	if err != nil {
		return nil, err
	}
	f.Status = status
	f.Limit = limit
	f.Offset = offset
	return s.Store.ListRides(ctx, f)
}

// VisibleRide fetches a ride for sub-resource access (tracking, payments)
// and returns the caller's driver profile id alongside it.
func (s *Service) VisibleRide(ctx context.Context, ident access.Identity, id string) (*models.Ride, string, error) {
	f, driverID, err := s.scope(ctx, ident)
	if err != nil {
		return nil, "", err
	}
	r, err := s.Store.GetRide(ctx, id, f)
	if err != nil {
		return nil, "", err
	}
	return r, driverID, nil
}

type UpdateInput struct {
	Status          *models.RideStatus
	Fare            *float64
	DistanceMiles   *float64
	DurationMinutes *int
}

// transitions is the state machine edge set. canceled is reachable from
// pending and accepted only; terminal states have no outgoing edges.
var transitions = map[models.RideStatus][]models.RideStatus{
	models.RidePending:    {models.RideAccepted, models.RideCanceled},
	models.RideAccepted:   {models.RideInProgress, models.RideCanceled},
	models.RideInProgress: {models.RideCompleted},
}

func canTransition(from, to models.RideStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Update applies driver/admin mutations. The ride must be inside the
// caller's scope; drivers follow the transition table, admins may force
// canceled from any non-terminal state. The write is compare-and-swapped on
// the status read here, so a payment completion or assignment landing in
// between surfaces as a conflict instead of being reverted.
func (s *Service) Update(ctx context.Context, ident access.Identity, id string, in UpdateInput) (*models.Ride, error) {
	if in.Status != nil && !ident.IsDriver() && !ident.IsAdmin() {
		return nil, fmt.Errorf("%w: only the assigned driver or an admin may change status", ErrValidation)
	}
	f, _, err := s.scope(ctx, ident)
	if err != nil {
		return nil, err
	}
	r, err := s.Store.GetRide(ctx, id, f)
	if err != nil {
		return nil, err
	}
	readStatus := r.Status

	if in.Status != nil {
		to := *in.Status
		if !to.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
		}
		if to != r.Status {
			adminCancel := ident.IsAdmin() && to == models.RideCanceled && !r.Status.Terminal()
			if !canTransition(r.Status, to) && !adminCancel {
				return nil, fmt.Errorf("%w: %s -> %s", ErrTransition, r.Status, to)
			}
			r.Status = to
		}
	}
	if in.Fare != nil {
		if *in.Fare < 0 {
			return nil, fmt.Errorf("%w: fare must be >= 0", ErrValidation)
		}
		r.Fare = *in.Fare
	}
	if in.DistanceMiles != nil {
		if *in.DistanceMiles < 0 {
			return nil, fmt.Errorf("%w: distance must be >= 0", ErrValidation)
		}
		r.DistanceMiles = *in.DistanceMiles
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return nil, fmt.Errorf("%w: duration must be >= 0", ErrValidation)
		}
		r.DurationMinutes = *in.DurationMinutes
	}

	if err := s.Store.UpdateRide(ctx, r, readStatus); err != nil {
		return nil, err
	}
	if in.Status != nil {
		s.broadcastStatus(r.ID, r.Status)
	}
	return r, nil
}

// Assign binds a driver (and their vehicle, if any) to a pending ride.
// The store performs the compare-and-swap; a lost race or an unavailable
// driver comes back as ErrConflict, a missing ride or driver as ErrNotFound.
func (s *Service) Assign(ctx context.Context, rideID, driverID string) (*models.Ride, error) {
	r, err := s.Store.AssignRide(ctx, rideID, driverID)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			observability.AssignConflicts.Inc()
		}
		return nil, err
	}
	observability.RidesAssigned.Inc()
	s.broadcastStatus(r.ID, r.Status)
	return r, nil
}

// ApplyPaymentCompletion is the only external trigger that finalizes a ride.
// It is idempotent and replay-safe: an already-terminal ride is left alone,
// and the status broadcast fires only when the transition actually applied.
// Canceled rides are deliberately not resurrected.
func (s *Service) ApplyPaymentCompletion(ctx context.Context, rideID string) (bool, error) {
	applied, err := s.Store.ForceCompleteRide(ctx, rideID)
	if err != nil {
		return false, err
	}
	if applied {
		s.broadcastStatus(rideID, models.RideCompleted)
	}
	return applied, nil
}

func (s *Service) broadcastStatus(rideID string, status models.RideStatus) {
	if s.Hub == nil {
		return
	}
	s.Hub.Broadcast(rideID, StatusEvent{Type: "ride.status", RideID: rideID, Status: status})
}
