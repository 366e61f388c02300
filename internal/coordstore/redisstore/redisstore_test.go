package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/stormgate/internal/coordstore/redisstore"
)

func openStore(t *testing.T) *redisstore.Store {
	t.Helper()
	addr := os.Getenv("STORMGATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STORMGATE_TEST_REDIS_ADDR not set, skipping integration test")
	}
	s, err := redisstore.New(context.Background(), redisstore.Options{Addr: addr})
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// newKey returns a unique key so runs never see each other's state.
func newKey(prefix string) string {
	return "test:" + prefix + ":" + ulid.Make().String()
}

func TestSetWithExpiryAndExists(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	key := newKey("set")

	ok, err := s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("fresh key exists")
	}

	if err := s.SetWithExpiry(ctx, key, time.Minute, "1"); err != nil {
		t.Fatalf("SetWithExpiry: %v", err)
	}

	ok, err = s.Exists(ctx, key)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("key missing after SetWithExpiry")
	}
}

func TestSetIfNotExists(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	key := newKey("setnx")

	created, err := s.SetIfNotExists(ctx, key, time.Minute, "1")
	if err != nil {
		t.Fatalf("SetIfNotExists: %v", err)
	}
	if !created {
		t.Fatal("first SetIfNotExists did not create")
	}

	created, err = s.SetIfNotExists(ctx, key, time.Minute, "2")
	if err != nil {
		t.Fatalf("SetIfNotExists: %v", err)
	}
	if created {
		t.Fatal("second SetIfNotExists created over a live key")
	}
}

func TestIncrementAndSetExpiry(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	key := newKey("incr")

	for want := int64(1); want <= 3; want++ {
		n, err := s.Increment(ctx, key)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if n != want {
			t.Fatalf("Increment = %d, want %d", n, want)
		}
	}

	if err := s.SetExpiry(ctx, key, time.Second); err != nil {
		t.Fatalf("SetExpiry: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	// Expired counters restart at 1.
	n, err := s.Increment(ctx, key)
	if err != nil {
		t.Fatalf("Increment after expiry: %v", err)
	}
	if n != 1 {
		t.Fatalf("Increment after expiry = %d, want 1", n)
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	if os.Getenv("STORMGATE_TEST_REDIS_ADDR") == "" {
		t.Skip("STORMGATE_TEST_REDIS_ADDR not set, skipping integration test")
	}

	_, err := redisstore.New(context.Background(), redisstore.Options{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
