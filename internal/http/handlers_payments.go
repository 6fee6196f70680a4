package httpapi

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/medride/internal/models"
)

// webhook payloads are small; cap reads defensively.
const maxWebhookBody = 1 << 16

type createIntentRequest struct {
	RideID string `json:"rideId"`
	Method string `json:"method,omitempty"`
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r, models.RolePatient, models.RoleAdmin)
	if !ok {
		return
	}
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil || req.RideID == "" {
		s.writeError(w, r, http.StatusBadRequest, "rideId is required")
		return
	}
	// Scoped fetch: a patient can only open intents on their own rides.
	ride, err := s.rides.Get(r.Context(), ident, req.RideID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	method := req.Method
	if method == "" {
		method = "card"
	}
	payment, clientSecret, err := s.payments.CreateIntent(r.Context(), ident.UserID, ride, method)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"payment":      payment,
		"clientSecret": clientSecret,
	})
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if p.PayerID != ident.UserID && !ident.IsAdmin() {
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"payment": p})
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if p.PayerID != ident.UserID && !ident.IsAdmin() {
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	p, err = s.payments.Confirm(r.Context(), p.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"payment": p})
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	p, err := s.store.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if p.PayerID != ident.UserID && !ident.IsAdmin() {
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	p, err = s.payments.CancelIntent(r.Context(), p.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"payment": p})
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "unreadable payload")
		return
	}
	if err := s.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
