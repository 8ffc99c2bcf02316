package service

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Latency simulates the round trip of a remote backend by pausing each
// operation for a random duration in [Min, Max]. A nil Latency never waits.
type Latency struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLatency(min, max time.Duration, rng *rand.Rand) *Latency {
	if max < min {
		max = min
	}
	return &Latency{Min: min, Max: max, rng: rng}
}

func (l *Latency) next() time.Duration {
	if l.Max <= l.Min {
		return l.Min
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Min + time.Duration(l.rng.Int64N(int64(l.Max-l.Min)+1))
}

// Wait blocks for the simulated delay or until ctx is done.
func (l *Latency) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	d := l.next()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
