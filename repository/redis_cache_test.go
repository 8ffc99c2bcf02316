package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"loan-portal/observability"
)

func TestRedisCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	cache := NewRedisCacheFromClient(client, "loanportal:", observability.Discard())
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, cache.Ping(ctx))

	_, ok := cache.Get(ctx, "loan:calc:x")
	assert.False(t, ok, "a failed read is a miss")

	assert.Error(t, cache.Set(ctx, "loan:calc:x", "{}", time.Minute))
}
