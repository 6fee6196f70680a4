// Package access derives ride visibility from an identity's role. The scope
// is a pure function of the role tag; handlers and services never compare
// role strings themselves.
package access

import (
	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
)

// Identity is the authenticated caller: id plus role, as carried in the
// bearer token. The driver profile id is looked up by callers when the role
// needs one.
type Identity struct {
	UserID string
	Role   models.Role
}

func (id Identity) IsAdmin() bool  { return id.Role == models.RoleAdmin }
func (id Identity) IsDriver() bool { return id.Role == models.RoleDriver }

// RideScope returns the filter restricting ride queries to what the identity
// may see. driverID is the caller's driver profile id, empty when none
// exists; a profile-less driver gets an empty scope, never unscoped access.
func RideScope(id Identity, driverID string) storage.RideFilter {
	switch id.Role {
	case models.RoleAdmin:
		return storage.RideFilter{}
	case models.RoleDriver:
		if driverID == "" {
			return storage.RideFilter{MatchNone: true}
		}
		return storage.RideFilter{DriverID: driverID}
	default:
		return storage.RideFilter{RequesterID: id.UserID}
	}
}

// CanViewRide reports whether the identity may read ride-scoped sub-resources
// such as the tracking feed: the requester, the assigned driver, or an admin.
func CanViewRide(id Identity, driverID string, r *models.Ride) bool {
	if id.IsAdmin() {
		return true
	}
	if r.UserID == id.UserID {
		return true
	}
	return driverID != "" && r.DriverID != nil && *r.DriverID == driverID
}

// IsAssignedDriver reports whether the identity is the driver currently
// bound to the ride. Only that driver may append tracking samples.
func IsAssignedDriver(driverID string, r *models.Ride) bool {
	return driverID != "" && r.DriverID != nil && *r.DriverID == driverID
}
