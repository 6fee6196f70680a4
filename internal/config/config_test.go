package config

import (
	"testing"
	"time"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.KafkaTopic != "ride-tracking" {
		t.Errorf("KafkaTopic = %q", cfg.KafkaTopic)
	}
	if cfg.AccessTokenTTL != 15*time.Minute || cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("token TTLs = %v / %v", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
	if cfg.BaseFare != 15.0 || cfg.PerMileRate != 2.5 {
		t.Errorf("fare params = %v / %v", cfg.BaseFare, cfg.PerMileRate)
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092 ,")
	t.Setenv("JWT_ACCESS_TTL", "30m")
	t.Setenv("FARE_BASE", "20")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "b1:9092" || cfg.KafkaBrokers[1] != "b2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.BaseFare != 20 {
		t.Errorf("BaseFare = %v", cfg.BaseFare)
	}
}

func TestLoadServerConfigErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	if _, err := LoadServerConfig(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
