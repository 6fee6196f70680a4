package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/rides"
)

type createRideRequest struct {
	StartLocation       string        `json:"startLocation"`
	EndLocation         string        `json:"endLocation"`
	StartCoord          *models.Coord `json:"startCoord,omitempty"`
	EndCoord            *models.Coord `json:"endCoord,omitempty"`
	RideDate            time.Time     `json:"rideDate"`
	SpecialRequirements string        `json:"specialRequirements,omitempty"`
	EmergencyContact    string        `json:"emergencyContact,omitempty"`
	VehicleType         string        `json:"vehicleType,omitempty"`
	UserID              string        `json:"userId,omitempty"` // admin booking on behalf
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RolePatient, models.RoleAdmin)
	if !ok {
		return
	}
	var req createRideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	ride, candidates, err := s.rides.Create(r.Context(), ident, rides.CreateInput{
		ForUserID:           req.UserID,
		StartLocation:       req.StartLocation,
		EndLocation:         req.EndLocation,
		StartCoord:          req.StartCoord,
		EndCoord:            req.EndCoord,
		RideDate:            req.RideDate,
		SpecialRequirements: req.SpecialRequirements,
		EmergencyContact:    req.EmergencyContact,
		VehicleType:         req.VehicleType,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	body := map[string]interface{}{"ride": ride}
	if candidates != nil {
		body["availableDrivers"] = candidates
	}
	s.writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	var status models.RideStatus
	if v := r.URL.Query().Get("status"); v != "" {
		status = models.RideStatus(v)
		if !status.Valid() {
			s.writeError(w, r, http.StatusBadRequest, "unknown status filter")
			return
		}
	}
	limit, offset := pageBounds(r)
	list, err := s.rides.List(r.Context(), ident, status, limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listEnvelope("rides", list, limit, offset, len(list)))
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	ride, err := s.rides.Get(r.Context(), ident, mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ride": ride})
}

type updateRideRequest struct {
	Status          *models.RideStatus `json:"status,omitempty"`
	Fare            *float64           `json:"fare,omitempty"`
	DistanceMiles   *float64           `json:"distance,omitempty"`
	DurationMinutes *int               `json:"durationMinutes,omitempty"`
}

func (s *Server) handleUpdateRide(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver, models.RoleAdmin)
	if !ok {
		return
	}
	var req updateRideRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	ride, err := s.rides.Update(r.Context(), ident, mux.Vars(r)["id"], rides.UpdateInput{
		Status:          req.Status,
		Fare:            req.Fare,
		DistanceMiles:   req.DistanceMiles,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ride": ride})
}

type assignRideRequest struct {
	DriverID string `json:"driverId"`
}

func (s *Server) handleAssignRide(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	var req assignRideRequest
	if err := decodeJSON(r, &req); err != nil || req.DriverID == "" {
		s.writeError(w, r, http.StatusBadRequest, "driverId is required")
		return
	}
	ride, err := s.rides.Assign(r.Context(), mux.Vars(r)["id"], req.DriverID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"ride": ride})
}
