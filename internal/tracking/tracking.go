package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/medride/internal/access"
	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/observability"
	"github.com/example/medride/internal/storage"
)

// feedLimit caps retrieval at the most recent samples, newest first.
const feedLimit = 50

// Publisher hands accepted samples to the ingest pipeline (Kafka). Optional.
type Publisher interface {
	PublishSample(s models.TrackingSample) error
}

// Broadcaster pushes accepted samples to the ride's live room. Optional.
type Broadcaster interface {
	Broadcast(rideID string, event interface{})
}

type Service struct {
	Store     storage.Store
	Publisher Publisher
	Hub       Broadcaster
	Logger    *slog.Logger
}

type AppendInput struct {
	Lat      float64
	Lon      float64
	SpeedMph float64
	Heading  float64
}

// Append records a position sample for the ride. The caller must already be
// verified as the assigned driver; broadcast and pipeline failures are
// logged, never surfaced; the persisted write is the source of truth.
func (s *Service) Append(ctx context.Context, ride *models.Ride, in AppendInput) (*models.TrackingSample, error) {
	sample := &models.TrackingSample{
		ID:        storage.NewID(),
		RideID:    ride.ID,
		Lat:       in.Lat,
		Lon:       in.Lon,
		SpeedMph:  in.SpeedMph,
		Heading:   in.Heading,
		Timestamp: time.Now(),
	}
	if err := s.Store.AppendSample(ctx, sample); err != nil {
		return nil, err
	}
	observability.TrackingSamples.Inc()

	if s.Publisher != nil {
		if err := s.Publisher.PublishSample(*sample); err != nil {
			s.Logger.Warn("tracking publish failed", "ride_id", ride.ID, "error", err)
		}
	}
	if s.Hub != nil {
		s.Hub.Broadcast(ride.ID, LocationEvent{
			Type:      "ride.location",
			RideID:    ride.ID,
			Lat:       sample.Lat,
			Lon:       sample.Lon,
			SpeedMph:  sample.SpeedMph,
			Heading:   sample.Heading,
			Timestamp: sample.Timestamp,
		})
	}
	return sample, nil
}

// List returns the most recent samples, newest first, for callers that
// passed the ride visibility check.
func (s *Service) List(ctx context.Context, ride *models.Ride) ([]models.TrackingSample, error) {
	return s.Store.ListSamples(ctx, ride.ID, feedLimit)
}

// CanRead reports whether the identity may read the ride's feed.
func CanRead(ident access.Identity, driverID string, ride *models.Ride) bool {
	return access.CanViewRide(ident, driverID, ride)
}

// LocationEvent is pushed to a ride's room for every accepted sample.
type LocationEvent struct {
	Type      string    `json:"type"`
	RideID    string    `json:"ride_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedMph  float64   `json:"speed_mph,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
