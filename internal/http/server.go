package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/medride/internal/auth"
	"github.com/example/medride/internal/config"
	"github.com/example/medride/internal/dispatch"
	"github.com/example/medride/internal/payments"
	"github.com/example/medride/internal/rides"
	"github.com/example/medride/internal/storage"
	"github.com/example/medride/internal/tracking"
)

type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	store    storage.Store
	tokens   *auth.Manager
	rides    *rides.Service
	tracking *tracking.Service
	payments *payments.Service
	hub      *dispatch.Hub
	redis    *redis.Client // optional, health only
	mux      *mux.Router
}

// Deps carries the wired collaborators; cmd/server assembles them so the
// store selection stays explicit at startup.
type Deps struct {
	Store    storage.Store
	Tokens   *auth.Manager
	Rides    *rides.Service
	Tracking *tracking.Service
	Payments *payments.Service
	Hub      *dispatch.Hub
	Redis    *redis.Client
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger, d Deps) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		store:    d.Store,
		tokens:   d.Tokens,
		rides:    d.Rides,
		tracking: d.Tracking,
		payments: d.Payments,
		hub:      d.Hub,
		redis:    d.Redis,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())

	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/refresh", s.handleRefresh).Methods("POST")

	// The webhook authenticates by provider signature, not bearer token.
	api.HandleFunc("/payments/webhook", s.handlePaymentWebhook).Methods("POST")

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/users/me", s.handleCurrentUser).Methods("GET")
	authed.HandleFunc("/users", s.handleListUsers).Methods("GET")
	authed.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")

	authed.HandleFunc("/rides", s.handleCreateRide).Methods("POST")
	authed.HandleFunc("/rides", s.handleListRides).Methods("GET")
	authed.HandleFunc("/rides/{id}", s.handleGetRide).Methods("GET")
	authed.HandleFunc("/rides/{id}", s.handleUpdateRide).Methods("PATCH")
	authed.HandleFunc("/rides/{id}/assign", s.handleAssignRide).Methods("POST")
	authed.HandleFunc("/rides/{id}/tracking", s.handleListTracking).Methods("GET")
	authed.HandleFunc("/rides/{id}/tracking", s.handleAppendTracking).Methods("POST")

	authed.HandleFunc("/drivers", s.handleCreateDriver).Methods("POST")
	authed.HandleFunc("/drivers", s.handleListDrivers).Methods("GET")
	authed.HandleFunc("/drivers/available", s.handleAvailableDrivers).Methods("GET")
	authed.HandleFunc("/drivers/{id}", s.handleGetDriver).Methods("GET")
	authed.HandleFunc("/drivers/{id}", s.handleUpdateDriver).Methods("PATCH")

	authed.HandleFunc("/vehicles", s.handleCreateVehicle).Methods("POST")
	authed.HandleFunc("/vehicles/{id}", s.handleGetVehicle).Methods("GET")
	authed.HandleFunc("/vehicles/{id}", s.handleUpdateVehicle).Methods("PATCH")

	authed.HandleFunc("/payments/intent", s.handleCreateIntent).Methods("POST")
	authed.HandleFunc("/payments/{id}", s.handleGetPayment).Methods("GET")
	authed.HandleFunc("/payments/{id}/confirm", s.handleConfirmPayment).Methods("POST")
	authed.HandleFunc("/payments/{id}/cancel", s.handleCancelPayment).Methods("POST")

	// Live feed join: bearer-authenticated and visibility-scoped, unlike the
	// open rooms this design replaced.
	authed.HandleFunc("/ws/rides/{id}", s.handleRideWS).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}{Status: "ok", Services: map[string]string{}}

	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Services["store"] = "unhealthy: " + err.Error()
	} else {
		resp.Services["store"] = "healthy"
	}
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
