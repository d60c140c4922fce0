package adapters

import (
	"context"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// defaultEmpireCoinRate converts site coins to USD. Surfaced in config; the
// default is the rate observed on the site's deposit page.
const defaultEmpireCoinRate = 0.6154

// Empire scrapes the CSGOEmpire trading API: page-numbered, bearer token
// required, prices in 1/100 coins. Auction and direct listings are merged
// keeping the cheaper entry per item.
type Empire struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewEmpire creates the adapter.
func NewEmpire(deps *Deps) Adapter {
	return &Empire{deps: deps, cfg: deps.sourceConfig("empire")}
}

// Source returns the source tag.
func (e *Empire) Source() string { return "empire" }

type empireResponse struct {
	Data []struct {
		ID          int64   `json:"id"`
		MarketName  string  `json:"market_name"`
		MarketValue float64 `json:"market_value"`
	} `json:"data"`
}

func (e *Empire) coinRate() float64 {
	if e.cfg.CoinRate > 0 {
		return e.cfg.CoinRate
	}
	return defaultEmpireCoinRate
}

// Scrape performs one pass over both auction types.
func (e *Empire) Scrape(ctx context.Context) ([]types.Listing, error) {
	headers, err := authHeaders(e.cfg, "EMPIRE")
	if err != nil {
		return nil, err
	}

	maxPages := e.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 100
	}
	perPage := e.cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = 2500
	}

	capturedAt := now()
	var items []types.Listing

	for _, auction := range []string{"no", "yes"} {
		for page := 1; page <= maxPages; page++ {
			err = ctx.Err()
			if err != nil {
				return DedupCheapest(items), err
			}

			query := url.Values{}
			query.Set("per_page", strconv.Itoa(perPage))
			query.Set("page", strconv.Itoa(page))
			query.Set("order", "market_value")
			query.Set("sort", "asc")
			query.Set("auction", auction)

			var resp empireResponse
			err = e.deps.Client.FetchJSON(ctx, &httpclient.Request{
				Source:  e.Source(),
				URL:     e.cfg.URLTemplate,
				Query:   query,
				Headers: headers,
			}, &resp)
			if err != nil {
				e.deps.Logger.Warn("page-fetch-failed",
					zap.String("source", e.Source()),
					zap.Int("page", page),
					zap.String("auction", auction),
					zap.Error(err))
				break
			}

			if len(resp.Data) == 0 {
				break
			}

			for _, item := range resp.Data {
				if item.MarketValue <= 0 {
					continue
				}

				coins := item.MarketValue / 100.0
				priceUSD := coins * e.coinRate()
				if priceUSD < 0.01 || priceUSD > 50000 {
					continue
				}

				listing, nerr := Normalize(types.Listing{
					Name:       item.MarketName,
					Price:      priceUSD,
					Source:     e.Source(),
					URL:        e.cfg.DeepLinkBase + EncodeName(item.MarketName),
					CapturedAt: capturedAt,
					Extra: map[string]interface{}{
						"price_coins": coins,
						"coin_rate":   e.coinRate(),
						"auction":     auction,
					},
				})
				if nerr != nil {
					continue
				}
				items = append(items, listing)
			}

			if len(resp.Data) < perPage {
				break
			}
		}
	}

	return DedupCheapest(items), nil
}
