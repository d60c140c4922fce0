package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// Bitskins scrapes the bitskins insell dump. Prices arrive in 1/1000 USD.
type Bitskins struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewBitskins creates the adapter.
func NewBitskins(deps *Deps) Adapter {
	return &Bitskins{deps: deps, cfg: deps.sourceConfig("bitskins")}
}

// Source returns the source tag.
func (b *Bitskins) Source() string { return "bitskins" }

type bitskinsResponse struct {
	List []struct {
		Name     string  `json:"name"`
		PriceMin float64 `json:"price_min"`
		Quantity int     `json:"quantity"`
	} `json:"list"`
}

// Scrape performs one pass.
func (b *Bitskins) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp bitskinsResponse
	err := b.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   b.Source(),
		URL:      b.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: b.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return nil, &types.ParseError{Source: b.Source(), Reason: "list missing or empty"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.List))
	for _, item := range resp.List {
		if item.PriceMin <= 0 {
			continue
		}

		listing, err := Normalize(types.Listing{
			Name:       item.Name,
			Price:      item.PriceMin / 1000.0,
			Source:     b.Source(),
			URL:        b.cfg.DeepLinkBase + EncodeName(item.Name),
			Quantity:   item.Quantity,
			CapturedAt: capturedAt,
			Extra:      map[string]interface{}{"price_milli_usd": item.PriceMin},
		})
		if err != nil {
			b.deps.Logger.Debug("item-dropped", zap.String("source", b.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
