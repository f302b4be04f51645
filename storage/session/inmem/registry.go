package inmemsession

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core/auth"
)

// Registry is an in-memory revocation registry for single-process
// deployments, development and tests. Expired entries are dropped lazily.
type Registry struct {
	mutex   sync.RWMutex
	revoked map[string]time.Time // jti -> expiry
}

var _ auth.SessionRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{revoked: make(map[string]time.Time)}
}

func (r *Registry) Revoke(_ context.Context, jti string, until time.Time) error {
	if time.Now().After(until) {
		return nil // already expired, nothing to track
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.revoked[jti] = until
	r.prune()
	return nil
}

func (r *Registry) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mutex.RLock()
	until, ok := r.revoked[jti]
	r.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		r.mutex.Lock()
		delete(r.revoked, jti)
		r.mutex.Unlock()
		return false, nil
	}
	return true, nil
}

// prune drops expired entries; caller must hold the write lock.
func (r *Registry) prune() {
	now := time.Now()
	for jti, until := range r.revoked {
		if now.After(until) {
			delete(r.revoked, jti)
		}
	}
}
