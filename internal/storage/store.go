package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/example/medride/internal/models"
)

var (
	// ErrNotFound covers both genuinely absent rows and rows outside the
	// caller's visibility scope; the two are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers uniqueness violations and failed state preconditions.
	ErrConflict = errors.New("conflict")
)

// RideFilter is the typed criteria object the visibility layer produces.
// Zero-value fields are not applied; MatchNone forces an empty result set
// regardless of the other fields.
type RideFilter struct {
	RequesterID string
	DriverID    string
	MatchNone   bool
	Status      models.RideStatus
	Limit       int
	Offset      int
}

// Store is the persistence boundary. The Postgres and in-memory
// implementations are selected explicitly at startup, never by runtime
// fallback.
type Store interface {
	// Users. CreateUserWithDriver persists both rows in one unit of work;
	// any failure leaves neither behind.
	CreateUser(ctx context.Context, u *models.User) error
	CreateUserWithDriver(ctx context.Context, u *models.User, d *models.Driver) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)

	// Driver profiles.
	CreateDriver(ctx context.Context, d *models.Driver) error
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	GetDriverByUser(ctx context.Context, userID string) (*models.Driver, error)
	UpdateDriver(ctx context.Context, d *models.Driver) error
	ListDrivers(ctx context.Context, limit, offset int) ([]models.Driver, error)
	ListAvailableDrivers(ctx context.Context, vehicleType string, limit int) ([]models.Driver, error)

	// Vehicles. A second vehicle for the same driver fails with ErrConflict.
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	GetVehicleByDriver(ctx context.Context, driverID string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error

	// Rides. GetRide and ListRides apply the filter in the query itself so
	// an out-of-scope id surfaces as ErrNotFound, not as a permission error.
	CreateRide(ctx context.Context, r *models.Ride) error
	GetRide(ctx context.Context, id string, f RideFilter) (*models.Ride, error)
	ListRides(ctx context.Context, f RideFilter) ([]models.Ride, error)

	// UpdateRide writes back a read-modify-write, compare-and-swapped on the
	// status the caller read. A ride whose status moved in between returns
	// ErrConflict instead of silently reverting the concurrent transition.
	UpdateRide(ctx context.Context, r *models.Ride, readStatus models.RideStatus) error

	// AssignRide is the atomic pending→accepted transition: it verifies the
	// driver exists and is available, binds the driver's vehicle if any, and
	// flips status with a compare-and-swap on pending. Concurrent calls for
	// the same ride yield one success and one ErrConflict.
	AssignRide(ctx context.Context, rideID, driverID string) (*models.Ride, error)

	// ForceCompleteRide applies payment-driven completion if the ride is not
	// already terminal. Returns whether the transition was applied, making
	// replayed confirmations no-ops.
	ForceCompleteRide(ctx context.Context, rideID string) (bool, error)

	// Tracking feed, append-only.
	AppendSample(ctx context.Context, s *models.TrackingSample) error
	ListSamples(ctx context.Context, rideID string, limit int) ([]models.TrackingSample, error)

	// Payments.
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByExternalRef(ctx context.Context, ref string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment) error

	// MarkEventProcessed records a provider event id, returning false when it
	// was already seen. Webhooks may be delivered more than once.
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// NewID returns a random 16-hex-char identifier.
func NewID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
