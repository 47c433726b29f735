// Package ratelimit implements fixed-window request counting per caller
// identity. Windows are best-effort abuse throttling, not quota accounting:
// the default in-memory store forgets everything on restart.
package ratelimit

import (
	"context"
	"time"
)

// Store counts requests inside fixed windows. Implementations must serialize
// updates to the same key so concurrent requests cannot both slip under the
// limit with a stale count.
type Store interface {
	// Incr records one request against key, starting a fresh window of the
	// given length if none is active, and returns the post-increment count
	// together with the time left in the current window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter is one admission tier: at most max requests per identity per window.
type Limiter struct {
	store  Store
	name   string
	max    int64
	window time.Duration
}

func New(store Store, name string, max int, window time.Duration) *Limiter {
	return &Limiter{store: store, name: name, max: int64(max), window: window}
}

// Allow records the request identified by key and reports whether it is
// admitted. On rejection the returned duration says how long until the
// current window ends.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, remaining, err := l.store.Incr(ctx, l.name+":"+key, l.window)
	if err != nil {
		return false, 0, err
	}
	if count > l.max {
		return false, remaining, nil
	}
	return true, 0, nil
}
