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

// Skindeck scrapes the SkinDeck market API: page-numbered with a very
// large page size, bearer token required. Items without an offer are not
// purchasable and are skipped.
type Skindeck struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewSkindeck creates the adapter.
func NewSkindeck(deps *Deps) Adapter {
	return &Skindeck{deps: deps, cfg: deps.sourceConfig("skindeck")}
}

// Source returns the source tag.
func (s *Skindeck) Source() string { return "skindeck" }

type skindeckResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		MarketHashName string `json:"market_hash_name"`
		Offer          *struct {
			Price float64 `json:"price"`
		} `json:"offer"`
	} `json:"items"`
}

// Scrape performs one pass.
func (s *Skindeck) Scrape(ctx context.Context) ([]types.Listing, error) {
	headers, err := authHeaders(s.cfg, "SKINDECK")
	if err != nil {
		return nil, err
	}

	maxPages := s.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	perPage := s.cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = 100000
	}

	capturedAt := now()
	var items []types.Listing

	for page := 1; page <= maxPages; page++ {
		err = ctx.Err()
		if err != nil {
			return items, err
		}

		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("perPage", strconv.Itoa(perPage))
		query.Set("sort", "price_desc")

		var resp skindeckResponse
		err = s.deps.Client.FetchJSON(ctx, &httpclient.Request{
			Source:  s.Source(),
			URL:     s.cfg.URLTemplate,
			Query:   query,
			Headers: headers,
		}, &resp)
		if err != nil {
			// Keep what earlier pages yielded.
			s.deps.Logger.Warn("page-fetch-failed",
				zap.String("source", s.Source()),
				zap.Int("page", page),
				zap.Error(err))
			break
		}

		if !resp.Success || len(resp.Items) == 0 {
			break
		}

		for _, item := range resp.Items {
			if item.Offer == nil {
				continue
			}

			listing, nerr := Normalize(types.Listing{
				Name:       item.MarketHashName,
				Price:      item.Offer.Price,
				Source:     s.Source(),
				URL:        s.cfg.DeepLinkBase + EncodeName(item.MarketHashName),
				CapturedAt: capturedAt,
			})
			if nerr != nil {
				continue
			}
			items = append(items, listing)
		}

		if len(resp.Items) < perPage {
			break
		}
	}

	return items, nil
}
