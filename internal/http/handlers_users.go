package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/medride/internal/models"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	u, err := s.store.GetUser(r.Context(), ident.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireRole(w, r, models.RoleAdmin); !ok {
		return
	}
	limit, offset := pageBounds(r)
	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listEnvelope("users", users, limit, offset, len(users)))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireRole(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if id != ident.UserID && !ident.IsAdmin() {
		// NotFound, not Forbidden: existence is not disclosed.
		s.writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	u, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}
