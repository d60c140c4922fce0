package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// CSDeals scrapes the cs.deals lowest-prices API.
type CSDeals struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewCSDeals creates the adapter.
func NewCSDeals(deps *Deps) Adapter {
	return &CSDeals{deps: deps, cfg: deps.sourceConfig("csdeals")}
}

// Source returns the source tag.
func (c *CSDeals) Source() string { return "csdeals" }

type csdealsResponse struct {
	Success  bool `json:"success"`
	Response struct {
		Items []struct {
			MarketName  string  `json:"marketname"`
			LowestPrice float64 `json:"lowest_price"`
		} `json:"items"`
	} `json:"response"`
}

// Scrape performs one pass.
func (c *CSDeals) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp csdealsResponse
	err := c.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   c.Source(),
		URL:      c.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: c.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Response.Items) == 0 {
		return nil, &types.ParseError{Source: c.Source(), Reason: "response.items missing or empty"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.Response.Items))
	for _, item := range resp.Response.Items {
		listing, err := Normalize(types.Listing{
			Name:       item.MarketName,
			Price:      item.LowestPrice,
			Source:     c.Source(),
			URL:        c.cfg.DeepLinkBase + EncodeName(item.MarketName),
			CapturedAt: capturedAt,
		})
		if err != nil {
			c.deps.Logger.Debug("item-dropped", zap.String("source", c.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
