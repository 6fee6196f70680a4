package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/medride/internal/auth"
	"github.com/example/medride/internal/models"
	"github.com/example/medride/internal/storage"
)

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Role     models.Role `json:"role"`

	// Driver registrations may create the profile in the same transaction.
	LicenseNumber string `json:"licenseNumber,omitempty"`
	VehicleType   string `json:"vehicleType,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, r, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		s.writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.Name == "" {
		s.writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if !req.Role.Valid() {
		s.writeError(w, r, http.StatusBadRequest, "role must be patient, driver, or admin")
		return
	}
	if req.Role == models.RoleDriver && req.LicenseNumber == "" {
		s.writeError(w, r, http.StatusBadRequest, "licenseNumber is required for driver registration")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	now := time.Now()
	u := &models.User{
		ID:           storage.NewID(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if req.Role == models.RoleDriver {
		d := &models.Driver{
			ID:            storage.NewID(),
			UserID:        u.ID,
			LicenseNumber: req.LicenseNumber,
			VehicleType:   req.VehicleType,
			Available:     true,
			Rating:        5.0,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		// Single unit of work: no identity row survives a failed profile insert.
		if err := s.store.CreateUserWithDriver(r.Context(), u, d); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		pair, err := s.tokens.IssuePair(u.ID, u.Role)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]interface{}{"user": u, "driver": d, "tokens": pair})
		return
	}

	if err := s.store.CreateUser(r.Context(), u); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pair, err := s.tokens.IssuePair(u.ID, u.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"user": u, "tokens": pair})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	u, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		s.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	pair, err := s.tokens.IssuePair(u.ID, u.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"user": u, "tokens": pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}
	pair, err := s.tokens.Refresh(req.RefreshToken)
	if err != nil {
		s.writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": pair})
}
