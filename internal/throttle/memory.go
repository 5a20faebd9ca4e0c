package throttle

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the bucket count above which idle buckets are dropped.
const pruneThreshold = 4096

// MemoryLimiter is a per-process token bucket limiter. A key may spend limit
// attempts at once and regains them evenly over window.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	clock   func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("throttle: limit and window must be positive")
	}
	return &MemoryLimiter{
		buckets: map[string]*bucket{},
		limit:   limit,
		window:  window,
		clock:   time.Now,
	}, nil
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buckets) > pruneThreshold {
		l.pruneLocked(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		every := rate.Every(l.window / time.Duration(l.limit))
		b = &bucket{lim: rate.NewLimiter(every, l.limit)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// pruneLocked drops buckets idle for a full window; they would be full again.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.window {
			delete(l.buckets, k)
		}
	}
}
