package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/medride/internal/models"
)

type fakeUpdater struct {
	failGeo  int
	failHSet int
	geoCalls int
	hCalls   int
	lastKey  string
	lastMeta map[string]interface{}
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.failGeo > 0 {
		f.failGeo--
		return errors.New("geoadd failed")
	}
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.failHSet > 0 {
		f.failHSet--
		return errors.New("hset failed")
	}
	f.lastKey = key
	f.lastMeta = values
	return nil
}

func sampleFixture() *models.TrackingSample {
	return &models.TrackingSample{
		RideID:    "ride-1",
		Lat:       40.7128,
		Lon:       -74.0060,
		SpeedMph:  31.5,
		Heading:   180,
		Timestamp: time.Now().UTC(),
	}
}

func TestUpdateRedisWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 2}
	err := updateRedisWithRetry(context.Background(), f, sampleFixture(), 3, time.Millisecond)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.geoCalls != 3 {
		t.Fatalf("expected 3 geoadd attempts, got %d", f.geoCalls)
	}
	if f.lastKey != "ride:pos:ride-1" {
		t.Fatalf("unexpected hash key %q", f.lastKey)
	}
	if f.lastMeta["speed"] != 31.5 {
		t.Fatalf("unexpected speed in meta: %v", f.lastMeta["speed"])
	}
}

func TestUpdateRedisWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	err := updateRedisWithRetry(context.Background(), f, sampleFixture(), 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error when retries are exhausted")
	}
	if f.hCalls != 0 {
		t.Fatal("hash write must not happen when geoadd never succeeds")
	}
}

func TestUpdateRedisWithRetryHSetFailure(t *testing.T) {
	f := &fakeUpdater{failHSet: 3}
	err := updateRedisWithRetry(context.Background(), f, sampleFixture(), 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error when hset keeps failing")
	}
}
