package adapters

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// defaultCSTradeBonus is the site's advertised balance bonus in percent.
// Displayed prices are inflated by it and must be divided back out.
const defaultCSTradeBonus = 50.0

// CSTrade scrapes the cs.trade price dump: a map of item name to price
// record. Untradable and out-of-stock items are skipped.
type CSTrade struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewCSTrade creates the adapter.
func NewCSTrade(deps *Deps) Adapter {
	return &CSTrade{deps: deps, cfg: deps.sourceConfig("cstrade")}
}

// Source returns the source tag.
func (c *CSTrade) Source() string { return "cstrade" }

type cstradeItem struct {
	Price    float64 `json:"price"`
	Have     int     `json:"have"`
	Tradable int     `json:"tradable"`
}

func (c *CSTrade) bonusRate() float64 {
	if c.cfg.BonusRate > 0 {
		return c.cfg.BonusRate
	}
	return defaultCSTradeBonus
}

// realPrice removes the bonus inflation from a displayed price.
func (c *CSTrade) realPrice(displayed float64) float64 {
	return displayed / (1 + c.bonusRate()/100)
}

// Scrape performs one pass.
func (c *CSTrade) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp map[string]cstradeItem
	err := c.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   c.Source(),
		URL:      c.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: c.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, &types.ParseError{Source: c.Source(), Reason: "empty price map"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp))
	for name, item := range resp {
		if item.Tradable == 0 || item.Have == 0 || item.Price <= 0 {
			continue
		}

		listing, err := Normalize(types.Listing{
			Name:       name,
			Price:      c.realPrice(item.Price),
			Source:     c.Source(),
			URL:        c.cfg.DeepLinkBase + EncodeName(name),
			Quantity:   item.Have,
			CapturedAt: capturedAt,
			Extra: map[string]interface{}{
				"displayed_price": item.Price,
				"bonus_rate":      c.bonusRate(),
			},
		})
		if err != nil {
			c.deps.Logger.Debug("item-dropped", zap.String("source", c.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}
