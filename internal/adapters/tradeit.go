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

// TradeIt scrapes the tradeit.gg inventory API: offset-paged, prices in
// cents via priceForTrade.
type TradeIt struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewTradeIt creates the adapter.
func NewTradeIt(deps *Deps) Adapter {
	return &TradeIt{deps: deps, cfg: deps.sourceConfig("tradeit")}
}

// Source returns the source tag.
func (t *TradeIt) Source() string { return "tradeit" }

type tradeitResponse struct {
	Items []struct {
		Name          string  `json:"name"`
		PriceForTrade float64 `json:"priceForTrade"`
	} `json:"items"`
}

// Scrape performs one pass, walking the offset until emptyLimit
// consecutive pages come back empty.
func (t *TradeIt) Scrape(ctx context.Context) ([]types.Listing, error) {
	perPage := t.cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = 1000
	}
	emptyLimit := t.cfg.EmptyPageLimit
	if emptyLimit <= 0 {
		emptyLimit = 3
	}

	headers := map[string]string{
		"Referer":        "https://tradeit.gg/",
		"Sec-Fetch-Dest": "empty",
		"Sec-Fetch-Mode": "cors",
		"Sec-Fetch-Site": "same-origin",
	}

	capturedAt := now()
	var items []types.Listing
	offset := 0
	consecutiveEmpty := 0

	for consecutiveEmpty < emptyLimit {
		err := ctx.Err()
		if err != nil {
			return items, err
		}

		query := url.Values{}
		query.Set("gameId", "730")
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(perPage))
		query.Set("fresh", "true")

		var resp tradeitResponse
		err = t.deps.Client.FetchJSON(ctx, &httpclient.Request{
			Source:  t.Source(),
			URL:     t.cfg.URLTemplate,
			Query:   query,
			Headers: headers,
		}, &resp)
		if err != nil {
			t.deps.Logger.Warn("page-fetch-failed",
				zap.String("source", t.Source()),
				zap.Int("offset", offset),
				zap.Error(err))
			break
		}

		if len(resp.Items) == 0 {
			consecutiveEmpty++
			offset += perPage
			continue
		}
		consecutiveEmpty = 0

		for _, item := range resp.Items {
			if item.PriceForTrade <= 0 {
				continue
			}

			listing, nerr := Normalize(types.Listing{
				Name:       item.Name,
				Price:      item.PriceForTrade / 100.0,
				Source:     t.Source(),
				URL:        t.cfg.DeepLinkBase + EncodeName(item.Name),
				CapturedAt: capturedAt,
				Extra:      map[string]interface{}{"price_cents": item.PriceForTrade},
			})
			if nerr != nil {
				continue
			}
			items = append(items, listing)
		}

		offset += len(resp.Items)
	}

	return items, nil
}
