// Package ratelimit provides per-source token buckets for outbound
// marketplace requests.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter holds one token bucket per source tag. Acquire blocks until the
// source's bucket has a token; unknown sources get the default budget.
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	defaultRate rate.Limit
	defaultBurst int
}

// New creates a limiter with a default budget for unregistered sources.
func New(defaultPerSecond float64, defaultBurst int) *Limiter {
	if defaultPerSecond <= 0 {
		defaultPerSecond = 1
	}
	if defaultBurst < 1 {
		defaultBurst = 1
	}
	return &Limiter{
		buckets:      make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(defaultPerSecond),
		defaultBurst: defaultBurst,
	}
}

// Register sets the budget for a source. Re-registering replaces the bucket.
func (l *Limiter) Register(source string, perSecond float64, burst int) {
	if perSecond <= 0 {
		perSecond = float64(l.defaultRate)
	}
	if burst < 1 {
		burst = l.defaultBurst
	}
	l.mu.Lock()
	l.buckets[source] = rate.NewLimiter(rate.Limit(perSecond), burst)
	l.mu.Unlock()
}

// Acquire blocks until one token is available for source, or until ctx is
// cancelled.
func (l *Limiter) Acquire(ctx context.Context, source string) error {
	bucket := l.bucket(source)

	start := time.Now()
	err := bucket.Wait(ctx)
	if err != nil {
		return err
	}

	waited := time.Since(start)
	TokensAcquiredTotal.WithLabelValues(source).Inc()
	if waited > time.Millisecond {
		WaitSeconds.WithLabelValues(source).Observe(waited.Seconds())
	}
	return nil
}

// Allow reports whether a token is immediately available, consuming it if so.
func (l *Limiter) Allow(source string) bool {
	return l.bucket(source).Allow()
}

func (l *Limiter) bucket(source string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[source]
	if !ok {
		bucket = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.buckets[source] = bucket
	}
	return bucket
}
