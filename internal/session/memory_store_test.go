package session

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRevoke(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("expected jti-1 to be revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatal("expected jti-2 not to be revoked")
	}

	now = now.Add(2 * time.Hour)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("expected revocation to lapse after expiry")
	}
}

func TestMemoryStoreIgnoresExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	if err := store.Revoke(ctx, "jti-old", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if len(store.revoked) != 0 {
		t.Fatalf("expected empty denylist, got %d entries", len(store.revoked))
	}
}
