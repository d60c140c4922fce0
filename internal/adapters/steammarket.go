package adapters

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// SteamMarket is the reference-driven adapter: it fans out one order
// histogram request per known item nameid from data/item_nameids.json.
// The heaviest and most rate-limit-sensitive adapter in the set.
type SteamMarket struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewSteamMarket creates the adapter.
func NewSteamMarket(deps *Deps) Adapter {
	return &SteamMarket{deps: deps, cfg: deps.sourceConfig("steammarket")}
}

// Source returns the source tag.
func (s *SteamMarket) Source() string { return "steammarket" }

type histogramResponse struct {
	Success         int         `json:"success"`
	HighestBuyOrder interface{} `json:"highest_buy_order"` // cents, string or number
	LowestSellOrder interface{} `json:"lowest_sell_order"`
}

// Scrape fans out over every known nameid, bounded by the adapter's
// semaphore. Items that fail individually are dropped; the pass succeeds
// with whatever resolved.
func (s *SteamMarket) Scrape(ctx context.Context) ([]types.Listing, error) {
	nameids, err := s.deps.Catalog.NameIDs()
	if err != nil {
		return nil, err
	}
	if len(nameids) == 0 {
		return nil, &types.APIError{
			Source: s.Source(),
			Body:   "item_nameids.json missing or empty; run the nameids sub-adapter first",
		}
	}

	maxConcurrent := int64(s.cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 100
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	group, groupCtx := errgroup.WithContext(ctx)

	capturedAt := now()
	results := make([]*types.Listing, len(nameids))
	var mu sync.Mutex
	failed := 0

	for i, nid := range nameids {
		if nid.ID == "" || nid.Name == "" {
			continue
		}

		err = sem.Acquire(groupCtx, 1)
		if err != nil {
			break
		}

		group.Go(func() error {
			defer sem.Release(1)

			listing, ferr := s.fetchItem(groupCtx, nid, capturedAt)
			if ferr != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				s.deps.Logger.Debug("item-fetch-failed",
					zap.String("source", s.Source()),
					zap.String("item", nid.Name),
					zap.Error(ferr))
				return nil
			}
			results[i] = listing
			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	items := make([]types.Listing, 0, len(results))
	for _, r := range results {
		if r != nil {
			items = append(items, *r)
		}
	}

	s.deps.Logger.Info("steam-market-pass-complete",
		zap.Int("nameids", len(nameids)),
		zap.Int("resolved", len(items)),
		zap.Int("failed", failed))
	return items, nil
}

// fetchItem resolves one item's highest buy order from the histogram
// endpoint. Prices arrive in cents.
func (s *SteamMarket) fetchItem(ctx context.Context, nid types.NameID, capturedAt time.Time) (*types.Listing, error) {
	var resp histogramResponse
	err := s.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   s.Source(),
		URL:      fmt.Sprintf(s.cfg.URLTemplate, url.QueryEscape(nid.ID)),
		UseCache: true,
		CacheTTL: s.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Success != 1 {
		return nil, &types.ParseError{Source: s.Source(), Reason: "histogram reported failure"}
	}

	cents, ok := parsePrice(resp.HighestBuyOrder)
	if !ok {
		return nil, &types.ValidationError{Source: s.Source(), Field: "highest_buy_order", Reason: "absent or non-numeric"}
	}

	listing, err := Normalize(types.Listing{
		Name:       nid.Name,
		Price:      cents / 100.0,
		Source:     s.Source(),
		URL:        s.cfg.DeepLinkBase + EncodeName(nid.Name),
		CapturedAt: capturedAt,
		Extra:      map[string]interface{}{"nameid": nid.ID},
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
