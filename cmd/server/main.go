package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/example/medride/internal/auth"
	"github.com/example/medride/internal/config"
	"github.com/example/medride/internal/dispatch"
	httpapi "github.com/example/medride/internal/http"
	"github.com/example/medride/internal/ingest"
	"github.com/example/medride/internal/logging"
	"github.com/example/medride/internal/payments"
	"github.com/example/medride/internal/rides"
	"github.com/example/medride/internal/storage"
	"github.com/example/medride/internal/tracking"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	// Store selection is explicit: PG_DSN set means Postgres, otherwise the
	// in-memory store. A failed Postgres connection is fatal, never a silent
	// fallback that masks an outage.
	var store storage.Store
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			runMigrations(cfg.PGDSN)
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		store = ps
		logger.Info("using postgres store")
	} else {
		store = storage.NewMemoryStore()
		logger.Warn("PG_DSN not set, using in-memory store")
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
	}

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	hub := dispatch.NewHub(logger)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	rideSvc := &rides.Service{
		Store:       store,
		Hub:         hub,
		Logger:      logger,
		BaseFare:    cfg.BaseFare,
		PerMileRate: cfg.PerMileRate,
	}
	trackSvc := &tracking.Service{Store: store, Hub: hub, Logger: logger}
	if producer != nil {
		trackSvc.Publisher = producer
	}

	paySvc := &payments.Service{Store: store, Rides: rideSvc, Logger: logger}
	if cfg.StripeAPIKey != "" {
		paySvc.Provider = payments.NewStripeProvider(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn("STRIPE_API_KEY not set, payment endpoints disabled")
	}

	api := httpapi.NewServer(cfg, logger, httpapi.Deps{
		Store:    store,
		Tokens:   tokens,
		Rides:    rideSvc,
		Tracking: trackSvc,
		Payments: paySvc,
		Hub:      hub,
		Redis:    redisClient,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("medride listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

func runMigrations(dsn string) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("migration db open error: %v", err)
		return
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_schema.sql"))
	if err != nil {
		log.Printf("migration read error: %v", err)
		return
	}
	if _, err := db.Exec(string(b)); err != nil {
		log.Printf("migration exec error: %v", err)
		return
	}
	log.Printf("migration applied: 001_create_schema.sql")
}
