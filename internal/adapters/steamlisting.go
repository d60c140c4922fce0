package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// SteamListing is the reference-ranged adapter: a probe request learns the
// total result count, then (start, count) ranges cover it under a
// semaphore. Produces the reference listing snapshot the nameids
// sub-adapter and the reference price table build on.
type SteamListing struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewSteamListing creates the adapter.
func NewSteamListing(deps *Deps) Adapter {
	return &SteamListing{deps: deps, cfg: deps.sourceConfig("steamlisting")}
}

// Source returns the source tag.
func (s *SteamListing) Source() string { return "steamlisting" }

type searchRenderResponse struct {
	Success    bool `json:"success"`
	TotalCount int  `json:"total_count"`
	Results    []struct {
		Name             string `json:"name"`
		SellPrice        int    `json:"sell_price"` // cents
		SellListings     int    `json:"sell_listings"`
		AssetDescription struct {
			IconURL string `json:"icon_url"`
		} `json:"asset_description"`
	} `json:"results"`
}

const iconURLBase = "https://community.fastly.steamstatic.com/economy/image/"

// Scrape probes the total count and fans out the ranges.
func (s *SteamListing) Scrape(ctx context.Context) ([]types.Listing, error) {
	total, err := s.totalCount(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, &types.ParseError{Source: s.Source(), Reason: "search returned total_count 0"}
	}

	batchSize := s.cfg.ItemsPerPage
	if batchSize <= 0 {
		batchSize = 10
	}
	maxBatches := s.cfg.MaxPages
	if maxBatches <= 0 {
		maxBatches = 1000
	}
	batches := (total + batchSize - 1) / batchSize
	if batches > maxBatches {
		s.deps.Logger.Warn("listing-batches-capped",
			zap.Int("total", total),
			zap.Int("batches", batches),
			zap.Int("cap", maxBatches))
		batches = maxBatches
	}

	maxConcurrent := int64(s.cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	group, groupCtx := errgroup.WithContext(ctx)

	capturedAt := now()
	perBatch := make([][]types.Listing, batches)
	var mu sync.Mutex
	failed := 0

	for i := 0; i < batches; i++ {
		start := i * batchSize

		err = sem.Acquire(groupCtx, 1)
		if err != nil {
			break
		}

		group.Go(func() error {
			defer sem.Release(1)

			items, ferr := s.fetchBatch(groupCtx, start, batchSize, capturedAt)
			if ferr != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				s.deps.Logger.Debug("batch-fetch-failed",
					zap.String("source", s.Source()),
					zap.Int("start", start),
					zap.Error(ferr))
				return nil
			}
			perBatch[start/batchSize] = items
			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	var items []types.Listing
	for _, batch := range perBatch {
		items = append(items, batch...)
	}

	s.deps.Logger.Info("steam-listing-pass-complete",
		zap.Int("total", total),
		zap.Int("batches", batches),
		zap.Int("failed-batches", failed),
		zap.Int("items", len(items)))
	return items, nil
}

// totalCount issues the probe request.
func (s *SteamListing) totalCount(ctx context.Context) (int, error) {
	var resp searchRenderResponse
	err := s.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source: s.Source(),
		URL:    fmt.Sprintf(s.cfg.URLTemplate, 0, 1),
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.TotalCount, nil
}

func (s *SteamListing) fetchBatch(ctx context.Context, start, count int, capturedAt time.Time) ([]types.Listing, error) {
	var resp searchRenderResponse
	err := s.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   s.Source(),
		URL:      fmt.Sprintf(s.cfg.URLTemplate, start, count),
		UseCache: true,
		CacheTTL: s.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}

	items := make([]types.Listing, 0, len(resp.Results))
	for _, r := range resp.Results {
		extra := map[string]interface{}{}
		if r.AssetDescription.IconURL != "" {
			extra["icon_url"] = iconURLBase + r.AssetDescription.IconURL
		}

		listing, nerr := Normalize(types.Listing{
			Name:       r.Name,
			Price:      float64(r.SellPrice) / 100.0,
			Source:     s.Source(),
			URL:        s.cfg.DeepLinkBase + EncodeName(r.Name),
			Quantity:   r.SellListings,
			CapturedAt: capturedAt,
			Extra:      extra,
		})
		if nerr != nil {
			continue
		}
		items = append(items, listing)
	}
	return items, nil
}
