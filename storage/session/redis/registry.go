package redissession

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

const keyPrefix = "revoked:"

// Registry is a Redis-backed revocation registry for multi-process
// deployments. Redis TTLs match the revoked token's remaining life, so
// entries clean themselves up.
type Registry struct {
	client *redis.Client
}

var _ auth.SessionRegistry = (*Registry)(nil)

func NewRegistry(conf *core.Config) *Registry {
	return &Registry{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
	}
}

func (r *Registry) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // already expired, nothing to track
	}
	return r.client.Set(ctx, keyPrefix+jti, "1", ttl).Err()
}

func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// StatusCheck returns a non-nil error if Redis cannot be reached.
func (r *Registry) StatusCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
