package repository

import (
	"context"
	"time"
)

// CacheRepository is the key/value store behind calculation results,
// remembered credit scores and revoked session tokens. A ttl of zero keeps
// the value until it is deleted.
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
