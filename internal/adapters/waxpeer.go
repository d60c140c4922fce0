package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// Waxpeer scrapes the Waxpeer prices API. Prices arrive in 1/1000 USD.
type Waxpeer struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewWaxpeer creates the adapter.
func NewWaxpeer(deps *Deps) Adapter {
	return &Waxpeer{deps: deps, cfg: deps.sourceConfig("waxpeer")}
}

// Source returns the source tag.
func (w *Waxpeer) Source() string { return "waxpeer" }

type waxpeerResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		Name       string  `json:"name"`
		Min        float64 `json:"min"`
		SteamPrice float64 `json:"steam_price"`
		Count      int     `json:"count"`
	} `json:"items"`
}

// Scrape performs one pass.
func (w *Waxpeer) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp waxpeerResponse
	err := w.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   w.Source(),
		URL:      w.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: w.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &types.ParseError{Source: w.Source(), Reason: "response carries no items"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Min <= 0 {
			continue
		}

		extra := map[string]interface{}{"price_milli_usd": item.Min}
		if item.SteamPrice > 0 {
			extra["steam_price"] = item.SteamPrice / 1000.0
		}

		listing, err := Normalize(types.Listing{
			Name:       item.Name,
			Price:      item.Min / 1000.0,
			Source:     w.Source(),
			URL:        w.cfg.DeepLinkBase + EncodeName(item.Name),
			Quantity:   item.Count,
			CapturedAt: capturedAt,
			Extra:      extra,
		})
		if err != nil {
			w.deps.Logger.Debug("item-dropped", zap.String("source", w.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
