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

// SkinOut scrapes the skinout.gg market API: page-numbered, stopping after
// a run of consecutive empty pages.
type SkinOut struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewSkinOut creates the adapter.
func NewSkinOut(deps *Deps) Adapter {
	return &SkinOut{deps: deps, cfg: deps.sourceConfig("skinout")}
}

// Source returns the source tag.
func (s *SkinOut) Source() string { return "skinout" }

type skinoutResponse struct {
	Success bool `json:"success"`
	Items   []struct {
		Name           string      `json:"name"`
		MarketHashName string      `json:"market_hash_name"`
		Price          interface{} `json:"price"`
	} `json:"items"`
}

// Scrape performs one pass.
func (s *SkinOut) Scrape(ctx context.Context) ([]types.Listing, error) {
	maxPages := s.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 100
	}
	emptyLimit := s.cfg.EmptyPageLimit
	if emptyLimit <= 0 {
		emptyLimit = 3
	}

	capturedAt := now()
	var items []types.Listing
	consecutiveEmpty := 0

	for page := 1; page <= maxPages && consecutiveEmpty < emptyLimit; page++ {
		err := ctx.Err()
		if err != nil {
			return items, err
		}

		query := url.Values{}
		query.Set("page", strconv.Itoa(page))

		var resp skinoutResponse
		err = s.deps.Client.FetchJSON(ctx, &httpclient.Request{
			Source: s.Source(),
			URL:    s.cfg.URLTemplate,
			Query:  query,
		}, &resp)
		if err != nil {
			s.deps.Logger.Warn("page-fetch-failed",
				zap.String("source", s.Source()),
				zap.Int("page", page),
				zap.Error(err))
			break
		}

		if len(resp.Items) == 0 {
			consecutiveEmpty++
			continue
		}
		consecutiveEmpty = 0

		for _, item := range resp.Items {
			name := item.MarketHashName
			if name == "" {
				name = item.Name
			}
			price, ok := parsePrice(item.Price)
			if !ok {
				continue
			}

			listing, nerr := Normalize(types.Listing{
				Name:       name,
				Price:      price,
				Source:     s.Source(),
				URL:        s.cfg.DeepLinkBase + EncodeName(name),
				CapturedAt: capturedAt,
			})
			if nerr != nil {
				continue
			}
			items = append(items, listing)
		}
	}

	return items, nil
}
