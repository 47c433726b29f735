package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps windows in process memory. Each key owns its own lock so
// counters for different identities never contend.
type MemoryStore struct {
	windows sync.Map // key -> *memWindow
}

type memWindow struct {
	mu      sync.Mutex
	count   int64
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	v, _ := s.windows.LoadOrStore(key, &memWindow{})
	w := v.(*memWindow)

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.resetAt.IsZero() || !now.Before(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(window)
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// StartJanitor evicts expired windows periodically until ctx is cancelled.
func (s *MemoryStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.cleanup(time.Now())
			}
		}
	}()
}

func (s *MemoryStore) cleanup(now time.Time) {
	s.windows.Range(func(key, v any) bool {
		w := v.(*memWindow)
		w.mu.Lock()
		expired := !w.resetAt.IsZero() && now.After(w.resetAt)
		w.mu.Unlock()
		if expired {
			s.windows.Delete(key)
		}
		return true
	})
}
