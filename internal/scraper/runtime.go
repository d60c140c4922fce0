// Package scraper orchestrates the per-marketplace adapters: a global
// concurrency cap, once and forever modes, snapshot persistence, and
// per-source run status.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/jmcruz/skins-arb/internal/adapters"
	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/circuitbreaker"
	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// SourceStatus is the user-visible outcome of a source's most recent run.
type SourceStatus struct {
	Source     string           `json:"source"`
	Status     types.RunStatus  `json:"status"`
	Items      int              `json:"items"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Metrics    types.RunMetrics `json:"metrics"`
}

// Config holds runtime configuration.
type Config struct {
	Adapters      []adapters.Adapter
	Client        *httpclient.Client
	Catalog       *catalog.Store
	Sources       *config.Config
	MaxConcurrent int
	ShutdownGrace time.Duration
	Breaker       *circuitbreaker.SourceBreaker // nil disables gating
	Logger        *zap.Logger
}

// Runtime drives the adapter set.
type Runtime struct {
	adapters      []adapters.Adapter
	client        *httpclient.Client
	catalog       *catalog.Store
	sources       *config.Config
	slots         *semaphore.Weighted
	shutdownGrace time.Duration
	breaker       *circuitbreaker.SourceBreaker
	logger        *zap.Logger

	mu       sync.Mutex
	statuses map[string]*SourceStatus
}

// New creates a runtime.
func New(cfg *Config) *Runtime {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runtime{
		adapters:      cfg.Adapters,
		client:        cfg.Client,
		catalog:       cfg.Catalog,
		sources:       cfg.Sources,
		slots:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		shutdownGrace: cfg.ShutdownGrace,
		breaker:       cfg.Breaker,
		logger:        cfg.Logger,
	}
}

// RunOnce runs every adapter a single time and returns once all finish.
// The nameids sub-adapter depends on a fresh listing snapshot, so it runs
// in a second phase after the rest. The error is non-nil only when every
// adapter failed.
func (r *Runtime) RunOnce(ctx context.Context) error {
	first, second := r.phases()

	var wg sync.WaitGroup
	for _, a := range first {
		err := r.slots.Acquire(ctx, 1)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.slots.Release(1)
			r.runAdapter(ctx, a)
		}()
	}
	wg.Wait()

	for _, a := range second {
		err := r.slots.Acquire(ctx, 1)
		if err != nil {
			return err
		}
		r.runAdapter(ctx, a)
		r.slots.Release(1)
	}

	if r.allFailed() {
		return errors.New("every adapter run failed")
	}
	return nil
}

// RunForever reruns each adapter on its configured interval until the
// context is cancelled. Adapters are independent; a slow run only contends
// on the global slot cap.
func (r *Runtime) RunForever(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, a := range r.adapters {
		interval := r.interval(a.Source())

		wg.Add(1)
		go func() {
			defer wg.Done()

			// First run immediately, then on the ticker.
			r.runGated(ctx, a)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.runGated(ctx, a)
				}
			}
		}()
	}

	<-ctx.Done()
	r.logger.Info("runtime-draining", zap.Duration("grace", r.shutdownGrace))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("runtime-drained")
	case <-time.After(r.shutdownGrace):
		r.logger.Warn("runtime-drain-timeout")
	}
	return ctx.Err()
}

// runGated acquires a slot and consults the breaker before running.
func (r *Runtime) runGated(ctx context.Context, a adapters.Adapter) {
	if r.breaker != nil && !r.breaker.Allow(a.Source()) {
		r.logger.Debug("run-skipped-breaker-open", zap.String("source", a.Source()))
		return
	}

	err := r.slots.Acquire(ctx, 1)
	if err != nil {
		return
	}
	defer r.slots.Release(1)

	r.runAdapter(ctx, a)
}

// runAdapter performs one run: scrape, persist, record status.
func (r *Runtime) runAdapter(ctx context.Context, a adapters.Adapter) {
	source := a.Source()
	started := time.Now()
	RunsTotal.WithLabelValues(source).Inc()
	r.logger.Info("scraper-run-starting", zap.String("source", source))

	items, err := a.Scrape(ctx)

	metrics := r.client.TakeRunMetrics(source)
	metrics.RuntimeSeconds = time.Since(started).Seconds()

	status := &SourceStatus{
		Source:     source,
		Items:      len(items),
		StartedAt:  started,
		FinishedAt: time.Now(),
		Metrics:    metrics,
	}

	switch {
	case err == nil:
		status.Status = types.RunSuccess
	case len(items) > 0:
		// Partial snapshots are acceptable; keep what we got.
		status.Status = types.RunPartial
		status.Error = err.Error()
	default:
		status.Status = types.RunError
		status.Error = err.Error()
	}

	if len(items) > 0 || err == nil {
		snap := &types.Snapshot{
			Source:     source,
			CapturedAt: time.Now().UTC(),
			TotalItems: len(items),
			Items:      items,
			Metrics:    &metrics,
		}
		// The nameids sub-adapter legitimately emits nothing; don't
		// clobber its sibling artifact's neighbors with empty files.
		if len(items) > 0 {
			perr := r.catalog.SaveSnapshot(snap)
			if perr != nil {
				status.Status = types.RunError
				status.Error = perr.Error()
			}
		}
	}

	r.record(status)

	switch status.Status {
	case types.RunError:
		RunFailuresTotal.WithLabelValues(source).Inc()
		if r.breaker != nil {
			r.breaker.RecordFailure(source)
		}
		r.logger.Error("scraper-run-failed",
			zap.String("source", source),
			zap.String("error", status.Error),
			zap.Duration("elapsed", time.Since(started)))
	default:
		ItemsScraped.WithLabelValues(source).Set(float64(len(items)))
		RunDurationSeconds.WithLabelValues(source).Observe(time.Since(started).Seconds())
		if r.breaker != nil {
			r.breaker.RecordSuccess(source)
		}
		r.logger.Info("scraper-run-complete",
			zap.String("source", source),
			zap.String("status", string(status.Status)),
			zap.Int("items", len(items)),
			zap.Duration("elapsed", time.Since(started)))
	}
}

// phases splits the adapter set so the nameids sub-adapter runs after the
// listing adapter it depends on.
func (r *Runtime) phases() (first, second []adapters.Adapter) {
	for _, a := range r.adapters {
		if a.Source() == "steamnameids" {
			second = append(second, a)
			continue
		}
		first = append(first, a)
	}
	return first, second
}

func (r *Runtime) interval(source string) time.Duration {
	sc, ok := r.sources.Source(source)
	if !ok {
		return 5 * time.Minute
	}
	return sc.Interval()
}

func (r *Runtime) record(status *SourceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = make(map[string]*SourceStatus)
	}
	r.statuses[status.Source] = status
}

// Statuses returns a copy of the latest per-source run statuses.
func (r *Runtime) Statuses() map[string]SourceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]SourceStatus, len(r.statuses))
	for k, v := range r.statuses {
		out[k] = *v
	}
	return out
}

func (r *Runtime) allFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.statuses) == 0 {
		return false
	}
	for _, st := range r.statuses {
		if st.Status != types.RunError {
			return false
		}
	}
	return true
}

// Describe returns a short summary line, used by the CLI after a run.
func (r *Runtime) Describe() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok, partial, failed, items := 0, 0, 0, 0
	for _, st := range r.statuses {
		items += st.Items
		switch st.Status {
		case types.RunSuccess:
			ok++
		case types.RunPartial:
			partial++
		default:
			failed++
		}
	}
	return fmt.Sprintf("%d ok, %d partial, %d failed, %d items", ok, partial, failed, items)
}
