package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreSaveLookupRevoke(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "hash-1", Record{UserID: "u_1", Role: "broker_support"}, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	rec, err := store.Lookup(ctx, "hash-1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec.Role != "broker_support" {
		t.Errorf("Role = %q", rec.Role)
	}

	if err := store.Revoke(ctx, "hash-1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "hash-1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "hash-old", Record{UserID: "u_1"}, -time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Lookup(ctx, "hash-old"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for expired session, got %v", err)
	}
}
