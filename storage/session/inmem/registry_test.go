package inmemsession

import (
	"context"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked() failed, %v", err)
	}
	if revoked {
		t.Error("an unknown token must not read as revoked")
	}

	if err = r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() failed, %v", err)
	}
	if revoked, _ = r.IsRevoked(ctx, "jti-1"); !revoked {
		t.Error("a revoked token must read as revoked")
	}
	if revoked, _ = r.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("revocation must not leak onto other tokens")
	}

	// revoking twice is fine
	if err = r.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() failed, %v", err)
	}
}

func TestRegistry_expiry(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	// revoking an already-expired token tracks nothing
	if err := r.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke() failed, %v", err)
	}
	if len(r.revoked) != 0 {
		t.Error("expired revocations must not be tracked")
	}

	// a tracked revocation stops mattering once the token would have
	// expired anyway
	if err := r.Revoke(ctx, "jti-1", time.Now().Add(10*time.Millisecond)); err != nil {
		t.Fatalf("Revoke() failed, %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); revoked {
		t.Error("an expired revocation must read as not revoked")
	}
	if len(r.revoked) != 0 {
		t.Error("expired entries must be dropped")
	}
}
