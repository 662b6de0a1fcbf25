package drafts

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	guard := NewMemoryGuard()
	key := Key{Owner: "a", ShopID: "s"}

	release, err := guard.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := guard.Acquire(ctx, key); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if _, err := guard.Acquire(ctx, Key{Owner: "a", ShopID: "other"}); err != nil {
		t.Fatalf("other key should be free: %v", err)
	}

	_ = release(ctx)
	_ = release(ctx)
	again, err := guard.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = again(ctx)
}

func TestRedisGuard(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	guard, err := NewRedisGuard(kv, 0)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	key := Key{Owner: "a", ShopID: "s"}

	release, err := guard.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got := kv.ttls["od:submit_lock:a:s"]; got != defaultSubmitLockTTL {
		t.Fatalf("expected default ttl, got %v", got)
	}
	if _, err := guard.Acquire(ctx, key); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := guard.Acquire(ctx, key); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestRedisGuardReleaseKeepsForeignOwner(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	guard, _ := NewRedisGuard(kv, time.Minute)
	key := Key{Owner: "a", ShopID: "s"}

	release, err := guard.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// lock expired and was taken by another instance
	kv.values["od:submit_lock:a:s"] = "someone-else"

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if kv.values["od:submit_lock:a:s"] != "someone-else" {
		t.Fatalf("release removed a lock it does not own")
	}
}
