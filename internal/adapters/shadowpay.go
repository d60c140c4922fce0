package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// shadowpayMaxPrice guards against the API's occasional sentinel prices.
const shadowpayMaxPrice = 50000.0

// Shadowpay scrapes the ShadowPay prices API. Requires a bearer token.
type Shadowpay struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewShadowpay creates the adapter.
func NewShadowpay(deps *Deps) Adapter {
	return &Shadowpay{deps: deps, cfg: deps.sourceConfig("shadowpay")}
}

// Source returns the source tag.
func (s *Shadowpay) Source() string { return "shadowpay" }

type shadowpayResponse struct {
	Data []struct {
		SteamMarketHashName string      `json:"steam_market_hash_name"`
		Price               interface{} `json:"price"`
	} `json:"data"`
}

// Scrape performs one pass.
func (s *Shadowpay) Scrape(ctx context.Context) ([]types.Listing, error) {
	headers, err := authHeaders(s.cfg, "SHADOWPAY")
	if err != nil {
		return nil, err
	}

	var resp shadowpayResponse
	err = s.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:  s.Source(),
		URL:     s.cfg.URLTemplate,
		Headers: headers,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, &types.ParseError{Source: s.Source(), Reason: "data missing or empty"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.Data))
	for _, item := range resp.Data {
		price, ok := parsePrice(item.Price)
		if !ok || price > shadowpayMaxPrice {
			continue
		}

		listing, err := Normalize(types.Listing{
			Name:       item.SteamMarketHashName,
			Price:      price,
			Source:     s.Source(),
			URL:        s.cfg.DeepLinkBase + EncodeName(item.SteamMarketHashName) + "&sort_column=price&sort_dir=asc",
			CapturedAt: capturedAt,
		})
		if err != nil {
			s.deps.Logger.Debug("item-dropped", zap.String("source", s.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
