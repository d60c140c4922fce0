package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// MarketCSGO scrapes the market.csgo.com USD price dump.
type MarketCSGO struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewMarketCSGO creates the adapter.
func NewMarketCSGO(deps *Deps) Adapter {
	return &MarketCSGO{deps: deps, cfg: deps.sourceConfig("marketcsgo")}
}

// Source returns the source tag.
func (m *MarketCSGO) Source() string { return "marketcsgo" }

type marketcsgoResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		MarketHashName string `json:"market_hash_name"`
		Price          string `json:"price"`
		Volume         int    `json:"volume"`
	} `json:"items"`
}

// Scrape performs one pass.
func (m *MarketCSGO) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp marketcsgoResponse
	err := m.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   m.Source(),
		URL:      m.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: m.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &types.ParseError{Source: m.Source(), Reason: "items missing or empty"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.Items))
	for _, item := range resp.Items {
		price, ok := parsePrice(item.Price)
		if !ok {
			continue
		}

		listing, err := Normalize(types.Listing{
			Name:       item.MarketHashName,
			Price:      price,
			Source:     m.Source(),
			URL:        m.cfg.DeepLinkBase + EncodeName(item.MarketHashName),
			Quantity:   item.Volume,
			CapturedAt: capturedAt,
		})
		if err != nil {
			m.deps.Logger.Debug("item-dropped", zap.String("source", m.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
