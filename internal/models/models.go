package models

import "time"

// Role is the closed set of identity roles. There is no promotion or
// demotion flow; a role is fixed at registration.
type Role string

const (
	RolePatient Role = "patient"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// User is an authenticated identity. PasswordHash never serializes.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Driver is the role-specific profile owned 1:1 by a driver identity.
type Driver struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	LicenseNumber string    `json:"license_number"`
	VehicleType   string    `json:"vehicle_type"`
	Available     bool      `json:"available"`
	Rating        float64   `json:"rating"` // 0..5, default 5.0
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Vehicle belongs to at most one driver; a driver owns at most one vehicle.
type Vehicle struct {
	ID           string    `json:"id"`
	DriverID     string    `json:"driver_id"`
	LicensePlate string    `json:"license_plate"`
	Capacity     int       `json:"capacity"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Available    bool      `json:"available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RideStatus string

const (
	RidePending    RideStatus = "pending"
	RideAccepted   RideStatus = "accepted"
	RideInProgress RideStatus = "in-progress"
	RideCompleted  RideStatus = "completed"
	RideCanceled   RideStatus = "canceled"
)

func (s RideStatus) Valid() bool {
	switch s {
	case RidePending, RideAccepted, RideInProgress, RideCompleted, RideCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s RideStatus) Terminal() bool {
	return s == RideCompleted || s == RideCanceled
}

// Ride is the booking record. Rides are never deleted; a ride with a driver
// or vehicle bound must not be pending.
type Ride struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"` // requester
	DriverID            *string    `json:"driver_id,omitempty"`
	VehicleID           *string    `json:"vehicle_id,omitempty"`
	StartLocation       string     `json:"start_location"`
	EndLocation         string     `json:"end_location"`
	StartCoord          *Coord     `json:"start_coord,omitempty"`
	EndCoord            *Coord     `json:"end_coord,omitempty"`
	RideDate            time.Time  `json:"ride_date"`
	Status              RideStatus `json:"status"`
	Fare                float64    `json:"fare"`
	DistanceMiles       float64    `json:"distance_miles"`
	DurationMinutes     int        `json:"duration_minutes"`
	SpecialRequirements string     `json:"special_requirements,omitempty"`
	EmergencyContact    string     `json:"emergency_contact,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// TrackingSample is one timestamped position report. Append-only.
type TrackingSample struct {
	ID        string    `json:"id"`
	RideID    string    `json:"ride_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedMph  float64   `json:"speed_mph,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment transitions out of pending only via provider confirmation, never
// by client request.
type Payment struct {
	ID          string        `json:"id"`
	RideID      string        `json:"ride_id"`
	PayerID     string        `json:"payer_id"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Method      string        `json:"method"`
	Status      PaymentStatus `json:"status"`
	ExternalRef string        `json:"external_ref,omitempty"` // provider payment-intent id
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
