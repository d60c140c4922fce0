package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// Skinport scrapes the Skinport public pricing API: one GET returning the
// full item list. Items with zero quantity are listed but unavailable and
// are skipped.
type Skinport struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewSkinport creates the adapter.
func NewSkinport(deps *Deps) Adapter {
	return &Skinport{deps: deps, cfg: deps.sourceConfig("skinport")}
}

// Source returns the source tag.
func (s *Skinport) Source() string { return "skinport" }

type skinportItem struct {
	MarketHashName string   `json:"market_hash_name"`
	MinPrice       *float64 `json:"min_price"`
	ItemPage       string   `json:"item_page"`
	Quantity       int      `json:"quantity"`
	Currency       string   `json:"currency"`
}

// Scrape performs one pass.
func (s *Skinport) Scrape(ctx context.Context) ([]types.Listing, error) {
	var raw []skinportItem
	err := s.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   s.Source(),
		URL:      s.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: s.cfg.CacheTTL(),
	}, &raw)
	if err != nil {
		return nil, err
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(raw))
	for _, item := range raw {
		if item.MinPrice == nil || item.Quantity <= 0 {
			continue
		}

		listing, err := Normalize(types.Listing{
			Name:       item.MarketHashName,
			Price:      *item.MinPrice,
			Source:     s.Source(),
			URL:        item.ItemPage,
			Quantity:   item.Quantity,
			CapturedAt: capturedAt,
		})
		if err != nil {
			s.deps.Logger.Debug("item-dropped", zap.String("source", s.Source()), zap.Error(err))
			continue
		}
		if listing.URL == "" {
			listing.URL = s.cfg.DeepLinkBase + EncodeName(listing.Name)
		}
		items = append(items, listing)
	}

	return items, nil
}
