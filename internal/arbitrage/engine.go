// Package arbitrage compares catalog snapshots against the reference
// marketplace's fee-adjusted prices and produces ranked opportunity lists.
package arbitrage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/catalog"
)

// Storage is the interface opportunity batches are delivered to.
type Storage interface {
	StoreBatch(ctx context.Context, batch *Batch) error
	Close() error
}

// referenceSources are catalog snapshots that feed the reference price
// table rather than the buy side.
var referenceSources = map[string]bool{
	"steammarket":  true,
	"steamlisting": true,
	"steamprice":   true,
	"steamnameids": true,
}

// steamURLBase is the deep-link base for reference-market listings.
const steamURLBase = "https://steamcommunity.com/market/listings/730/"

// Config holds engine configuration.
type Config struct {
	Store *catalog.Store
	// DeepLinks maps source tag to its item search URL base, used when a
	// listing carries no URL of its own.
	DeepLinks map[string]string
	Logger    *zap.Logger
}

// Options select one engine run's behavior.
type Options struct {
	Mode       string // "complete" applies the fee schedule, "fast" skips it
	MinRatio   float64
	MinPrice   float64
	MaxResults int
}

// Engine is the deterministic cross-source comparison. One run at a time.
type Engine struct {
	store     *catalog.Store
	deepLinks map[string]string
	storage   Storage
	logger    *zap.Logger
}

// New creates an engine delivering batches to storage.
func New(cfg *Config, storage Storage) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     cfg.Store,
		deepLinks: cfg.DeepLinks,
		storage:   storage,
		logger:    logger,
	}
}

// Compute runs one full comparison pass and stores the resulting batch.
func (e *Engine) Compute(ctx context.Context, opts Options) (*Batch, error) {
	if opts.Mode == "" {
		opts.Mode = "complete"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}

	start := time.Now()

	reference, err := e.store.ReferenceTable()
	if err != nil {
		return nil, fmt.Errorf("load reference table: %w", err)
	}
	if len(reference) == 0 {
		e.logger.Warn("reference-table-empty")
	}

	sources, err := e.store.Sources()
	if err != nil {
		return nil, fmt.Errorf("list catalog sources: %w", err)
	}

	var opportunities []Opportunity
	itemsAnalyzed := 0
	now := time.Now().UTC().Format(time.RFC3339)

	for _, source := range sources {
		if referenceSources[source] {
			continue
		}

		err = ctx.Err()
		if err != nil {
			return nil, err
		}

		snap, err := e.store.LoadSnapshot(source)
		if err != nil {
			e.logger.Warn("snapshot-unreadable", zap.String("source", source), zap.Error(err))
			continue
		}

		found := 0
		for _, item := range snap.Items {
			itemsAnalyzed++

			name := strings.TrimSpace(item.Name)
			if name == "" || item.Price < opts.MinPrice {
				continue
			}

			gross, ok := reference[name]
			if !ok || gross <= item.Price {
				continue
			}

			var profitAbs, profitRatio, net float64
			if opts.Mode == "complete" {
				profitAbs, profitRatio = Profit(gross, item.Price)
				net = NetPrice(gross)
			} else {
				profitAbs = gross - item.Price
				if item.Price > 0 {
					profitRatio = profitAbs / item.Price
				}
				net = gross
			}

			if profitRatio < opts.MinRatio {
				continue
			}

			opportunities = append(opportunities, Opportunity{
				Name:                name,
				BuySource:           source,
				BuyPrice:            item.Price,
				BuyURL:              e.buyURL(source, name, item.URL),
				ReferenceGrossPrice: gross,
				ReferenceNetPrice:   net,
				ProfitAbsolute:      profitAbs,
				ProfitRatio:         profitRatio,
				ReferenceURL:        steamURLBase + encodeName(name),
				ComputedAt:          now,
			})
			found++
		}

		e.logger.Debug("source-analyzed",
			zap.String("source", source),
			zap.Int("items", len(snap.Items)),
			zap.Int("opportunities", found))
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].ProfitRatio > opportunities[j].ProfitRatio
	})
	if len(opportunities) > opts.MaxResults {
		opportunities = opportunities[:opts.MaxResults]
	}

	batch := NewBatch(opts.Mode, opportunities)

	err = e.storage.StoreBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}

	elapsed := time.Since(start)
	ComputeDurationSeconds.Observe(elapsed.Seconds())
	OpportunitiesFound.Set(float64(len(opportunities)))
	e.logger.Info("arbitrage-computed",
		zap.String("mode", opts.Mode),
		zap.Int("items-analyzed", itemsAnalyzed),
		zap.Int("opportunities", len(opportunities)),
		zap.Duration("elapsed", elapsed))

	return batch, nil
}

// buyURL prefers the listing's own deep link, falling back to the source's
// search URL template.
func (e *Engine) buyURL(source, name, own string) string {
	if own != "" {
		return own
	}
	base, ok := e.deepLinks[source]
	if !ok {
		return ""
	}
	return base + encodeName(name)
}

func encodeName(name string) string {
	return url.PathEscape(name)
}
