package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/medride/internal/access"
	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
	"github.com/example/medride/internal/tracking"
)

// rideForFeed fetches the ride without scope narrowing and resolves the
// caller's driver profile id. The tracking feed distinguishes Forbidden from
// NotFound, unlike the ride resource itself.
func (s *Server) rideForFeed(w http.ResponseWriter, r *http.Request, ident access.Identity) (*models.Ride, string, bool) {
	ride, err := s.store.GetRide(r.Context(), mux.Vars(r)["id"], storage.RideFilter{})
	if err != nil {
		s.writeServiceError(w, r, err)
		return nil, "", false
	}
	var driverID string
	if ident.IsDriver() {
		d, err := s.store.GetDriverByUser(r.Context(), ident.UserID)
		if err == nil {
			driverID = d.ID
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.writeServiceError(w, r, err)
			return nil, "", false
		}
	}
	return ride, driverID, true
}

func (s *Server) handleListTracking(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	ride, driverID, ok := s.rideForFeed(w, r, ident)
	if !ok {
		return
	}
	if !tracking.CanRead(ident, driverID, ride) {
		s.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	samples, err := s.tracking.List(r.Context(), ride)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tracking": samples})
}

type appendTrackingRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	SpeedMph float64  `json:"speedMph,omitempty"`
	Heading  float64  `json:"heading,omitempty"`
}

func (s *Server) handleAppendTracking(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver)
	if !ok {
		return
	}
	ride, driverID, ok := s.rideForFeed(w, r, ident)
	if !ok {
		return
	}
	if !access.IsAssignedDriver(driverID, ride) {
		s.writeError(w, r, http.StatusForbidden, "only the assigned driver may report positions")
		return
	}
	var req appendTrackingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		s.writeError(w, r, http.StatusBadRequest, "lat and lon are required")
		return
	}
	sample, err := s.tracking.Append(r.Context(), ride, tracking.AppendInput{
		Lat:      *req.Lat,
		Lon:      *req.Lon,
		SpeedMph: req.SpeedMph,
		Heading:  req.Heading,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"sample": sample})
}

var upgrader = websocket.Upgrader{}

// handleRideWS joins the caller to the ride's live room. Authentication and
// the visibility check happen before the upgrade, so an unauthorized client
// can never subscribe to another ride's positions.
func (s *Server) handleRideWS(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	ride, driverID, ok := s.rideForFeed(w, r, ident)
	if !ok {
		return
	}
	if !access.CanViewRide(ident, driverID, ride) {
		s.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already wrote the response
	}
	session := s.hub.Join(ride.ID, conn)
	// Reader loop only detects disconnects; clients do not send events.
	go func() {
		defer s.hub.Leave(ride.ID, session)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
