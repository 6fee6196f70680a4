package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
)

type createVehicleRequest struct {
	DriverID     string `json:"driverId,omitempty"` // admin creating for a driver
	LicensePlate string `json:"licensePlate"`
	Capacity     int    `json:"capacity"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver, models.RoleAdmin)
	if !ok {
		return
	}
	var req createVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.LicensePlate == "" {
		s.writeError(w, r, http.StatusBadRequest, "licensePlate is required")
		return
	}

	driverID := req.DriverID
	if !ident.IsAdmin() {
		d, err := s.store.GetDriverByUser(r.Context(), ident.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				s.writeError(w, r, http.StatusConflict, "create a driver profile first")
				return
			}
			s.writeServiceError(w, r, err)
			return
		}
		driverID = d.ID
	}
	if driverID == "" {
		s.writeError(w, r, http.StatusBadRequest, "driverId is required")
		return
	}

	now := time.Now()
	v := &models.Vehicle{
		ID:           storage.NewID(),
		DriverID:     driverID,
		LicensePlate: req.LicensePlate,
		Capacity:     req.Capacity,
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		Available:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// A second vehicle for the same driver fails the unique constraint.
	if err := s.store.CreateVehicle(r.Context(), v); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"vehicle": v})
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r); !ok {
		return
	}
	v, err := s.store.GetVehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"vehicle": v})
}

type updateVehicleRequest struct {
	Capacity  *int    `json:"capacity,omitempty"`
	Make      *string `json:"make,omitempty"`
	Model     *string `json:"model,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Available *bool   `json:"available,omitempty"`
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver, models.RoleAdmin)
	if !ok {
		return
	}
	v, err := s.store.GetVehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ident.IsAdmin() {
		d, err := s.store.GetDriverByUser(r.Context(), ident.UserID)
		if err != nil || d.ID != v.DriverID {
			s.writeError(w, r, http.StatusNotFound, "not found")
			return
		}
	}
	var req updateVehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Capacity != nil {
		v.Capacity = *req.Capacity
	}
	if req.Make != nil {
		v.Make = *req.Make
	}
	if req.Model != nil {
		v.Model = *req.Model
	}
	if req.Year != nil {
		v.Year = *req.Year
	}
	if req.Available != nil {
		v.Available = *req.Available
	}
	if err := s.store.UpdateVehicle(r.Context(), v); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"vehicle": v})
}
