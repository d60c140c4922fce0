package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// White scrapes the white.market export: a bare array of priced items.
type White struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewWhite creates the adapter.
func NewWhite(deps *Deps) Adapter {
	return &White{deps: deps, cfg: deps.sourceConfig("white")}
}

// Source returns the source tag.
func (w *White) Source() string { return "white" }

type whiteItem struct {
	MarketHashName    string      `json:"market_hash_name"`
	Price             interface{} `json:"price"` // number or string
	MarketProductLink string      `json:"market_product_link"`
}

// Scrape performs one pass.
func (w *White) Scrape(ctx context.Context) ([]types.Listing, error) {
	var raw []whiteItem
	err := w.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   w.Source(),
		URL:      w.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: w.cfg.CacheTTL(),
	}, &raw)
	if err != nil {
		return nil, err
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(raw))
	for _, item := range raw {
		price, ok := parsePrice(item.Price)
		if !ok {
			continue
		}

		url := item.MarketProductLink
		if url == "" {
			url = w.cfg.DeepLinkBase + EncodeName(item.MarketHashName)
		}

		listing, err := Normalize(types.Listing{
			Name:       item.MarketHashName,
			Price:      price,
			Source:     w.Source(),
			URL:        url,
			CapturedAt: capturedAt,
		})
		if err != nil {
			w.deps.Logger.Debug("item-dropped", zap.String("source", w.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
