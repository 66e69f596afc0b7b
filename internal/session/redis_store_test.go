package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	return store, mr
}

func TestSaveAndLookupSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer store.Close()
	defer mr.Close()

	ctx := context.Background()
	rec := Record{UserID: "u_1", Name: "Blair", Role: "broker_admin", CreatedAt: time.Now()}
	if err := store.Save(ctx, "hash-1", rec, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Lookup(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.UserID != "u_1" || got.Role != "broker_admin" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer store.Close()
	defer mr.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "hash-exp", Record{UserID: "u_2"}, time.Millisecond); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Millisecond)

	if _, err := store.Lookup(ctx, "hash-exp"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	store, mr := setupTestRedis(t)
	defer store.Close()
	defer mr.Close()

	ctx := context.Background()
	if err := store.Save(ctx, "hash-rev", Record{UserID: "u_3"}, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Revoke(ctx, "hash-rev"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "hash-rev"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}

	// Revoking an unknown hash is not an error.
	if err := store.Revoke(ctx, "hash-missing"); err != nil {
		t.Errorf("Revoke for missing hash failed: %v", err)
	}
}
