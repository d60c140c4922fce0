// Package circuitbreaker gates persistently failing sources so forever-mode
// runs stop hammering a marketplace that is down or blocking us.
package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// sourceState tracks one source's recent run outcomes.
type sourceState struct {
	consecutiveFailures int
	openUntil           time.Time
	opens               int
}

// Config holds breaker configuration.
type Config struct {
	FailureLimit int           // consecutive failed runs before opening
	Cooldown     time.Duration // base open duration, doubled per reopen
	MaxCooldown  time.Duration
	Logger       *zap.Logger
}

// SourceBreaker opens per source after a run of consecutive failures and
// closes again after a cooldown that grows while the source keeps failing.
// A successful run resets the source completely.
type SourceBreaker struct {
	mu     sync.Mutex
	states map[string]*sourceState

	failureLimit int
	cooldown     time.Duration
	maxCooldown  time.Duration
	logger       *zap.Logger
}

// New creates a breaker.
func New(cfg *Config) *SourceBreaker {
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.MaxCooldown <= 0 {
		cfg.MaxCooldown = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &SourceBreaker{
		states:       make(map[string]*sourceState),
		failureLimit: cfg.FailureLimit,
		cooldown:     cfg.Cooldown,
		maxCooldown:  cfg.MaxCooldown,
		logger:       cfg.Logger,
	}
}

// Allow reports whether a source may run now. An open source past its
// cooldown gets one probe run.
func (b *SourceBreaker) Allow(source string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[source]
	if !ok {
		return true
	}
	if st.openUntil.IsZero() {
		return true
	}
	if time.Now().After(st.openUntil) {
		// Probe: leave open state in place; success closes, failure
		// reopens with a longer cooldown.
		return true
	}
	SkippedTotal.WithLabelValues(source).Inc()
	return false
}

// RecordSuccess resets a source.
func (b *SourceBreaker) RecordSuccess(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[source]
	if !ok {
		return
	}
	if !st.openUntil.IsZero() {
		b.logger.Info("breaker-closed", zap.String("source", source))
	}
	delete(b.states, source)
	OpenGauge.WithLabelValues(source).Set(0)
}

// RecordFailure counts a failed run, opening the source at the limit.
func (b *SourceBreaker) RecordFailure(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[source]
	if !ok {
		st = &sourceState{}
		b.states[source] = st
	}
	st.consecutiveFailures++

	if st.consecutiveFailures < b.failureLimit && st.openUntil.IsZero() {
		return
	}

	cooldown := b.cooldown
	for i := 0; i < st.opens; i++ {
		cooldown *= 2
		if cooldown >= b.maxCooldown {
			cooldown = b.maxCooldown
			break
		}
	}
	st.openUntil = time.Now().Add(cooldown)
	st.opens++

	OpensTotal.WithLabelValues(source).Inc()
	OpenGauge.WithLabelValues(source).Set(1)
	b.logger.Warn("breaker-opened",
		zap.String("source", source),
		zap.Int("consecutive-failures", st.consecutiveFailures),
		zap.Duration("cooldown", cooldown))
}
