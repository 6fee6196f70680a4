package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
)

type createDriverRequest struct {
	UserID        string `json:"userId,omitempty"` // admin creating for another identity
	LicenseNumber string `json:"licenseNumber"`
	VehicleType   string `json:"vehicleType"`
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver, models.RoleAdmin)
	if !ok {
		return
	}
	var req createDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.LicenseNumber == "" {
		s.writeError(w, r, http.StatusBadRequest, "licenseNumber is required")
		return
	}
	userID := ident.UserID
	if req.UserID != "" && ident.IsAdmin() {
		userID = req.UserID
	}
	now := time.Now()
	d := &models.Driver{
		ID:            storage.NewID(),
		UserID:        userID,
		LicenseNumber: req.LicenseNumber,
		VehicleType:   req.VehicleType,
		Available:     true,
		Rating:        5.0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateDriver(r.Context(), d); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"driver": d})
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	limit, offset := pageBounds(r)
	// Admins see the full roster regardless of availability.
	list, err := s.store.ListDrivers(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listEnvelope("drivers", list, limit, offset, len(list)))
}

func (s *Server) handleAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r); !ok {
		return
	}
	list, err := s.store.ListAvailableDrivers(r.Context(), r.URL.Query().Get("vehicleType"), 5)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"drivers": list})
}

func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	d, err := s.store.GetDriver(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if d.UserID != ident.UserID && !ident.IsAdmin() {
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"driver": d})
}

type updateDriverRequest struct {
	VehicleType *string  `json:"vehicleType,omitempty"`
	Available   *bool    `json:"available,omitempty"`
	Rating      *float64 `json:"rating,omitempty"` // admin only
}

func (s *Server) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RoleDriver, models.RoleAdmin)
	if !ok {
		return
	}
	d, err := s.store.GetDriver(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if d.UserID != ident.UserID && !ident.IsAdmin() {
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	var req updateDriverRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.VehicleType != nil {
		d.VehicleType = *req.VehicleType
	}
	if req.Available != nil {
		d.Available = *req.Available
	}
	if req.Rating != nil {
		if !ident.IsAdmin() {
			s.writeError(w, r, http.StatusForbidden, "only admins may set rating")
			return
		}
		if *req.Rating < 0 || *req.Rating > 5 {
			s.writeError(w, r, http.StatusBadRequest, "rating must be between 0 and 5")
			return
		}
		d.Rating = *req.Rating
	}
	if err := s.store.UpdateDriver(r.Context(), d); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"driver": d})
}
