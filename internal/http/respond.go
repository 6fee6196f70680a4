package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/medride/internal/auth"
	"github.com/example/medride/internal/payments"
	"github.com/example/medride/internal/rides"
	"github.com/example/medride/internal/storage"
)

var errForbidden = errors.New("forbidden")

// errorBody is the standard error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, status, errorBody{
		Error:     msg,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

// writeServiceError maps service errors onto the HTTP taxonomy. Anything
// unrecognized is a storage or provider failure: log it, return a generic
// 500, never leak the raw error.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rides.ErrValidation) || errors.Is(err, payments.ErrSignature):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		s.writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, errForbidden):
		s.writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict) || errors.Is(err, rides.ErrTransition):
		s.writeError(w, r, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// listEnvelope wraps a page under key with the echoed bounds. Total reflects
// the returned page size, not a full count.
func listEnvelope(key string, items interface{}, limit, offset, total int) map[string]interface{} {
	return map[string]interface{}{
		key:      items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	}
}

// pageBounds parses limit/offset query params with defaults and caps.
func pageBounds(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
