package adapters

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// LisSkins scrapes the lis-skins full export. The export repeats names once
// per listed unit; the cheapest wins.
type LisSkins struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewLisSkins creates the adapter.
func NewLisSkins(deps *Deps) Adapter {
	return &LisSkins{deps: deps, cfg: deps.sourceConfig("lisskins")}
}

// Source returns the source tag.
func (l *LisSkins) Source() string { return "lisskins" }

type lisskinsResponse struct {
	Items []struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	} `json:"items"`
}

// Scrape performs one pass.
func (l *LisSkins) Scrape(ctx context.Context) ([]types.Listing, error) {
	var resp lisskinsResponse
	err := l.deps.Client.FetchJSON(ctx, &httpclient.Request{
		Source:   l.Source(),
		URL:      l.cfg.URLTemplate,
		UseCache: true,
		CacheTTL: l.cfg.CacheTTL(),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &types.ParseError{Source: l.Source(), Reason: "items missing or empty"}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(resp.Items))
	for _, item := range resp.Items {
		listing, err := Normalize(types.Listing{
			Name:       item.Name,
			Price:      item.Price,
			Source:     l.Source(),
			URL:        "https://lis-skins.com/en/market/csgo/" + lisskinsSlug(item.Name),
			CapturedAt: capturedAt,
		})
		if err != nil {
			l.deps.Logger.Debug("item-dropped", zap.String("source", l.Source()), zap.Error(err))
			continue
		}
		items = append(items, listing)
	}

	return DedupCheapest(items), nil
}

// lisskinsSlug builds the site's item URL slug: punctuation stripped,
// spaces dashed, runs of dashes collapsed.
func lisskinsSlug(name string) string {
	for _, ch := range []string{"™", "(", ")", ",", "/", "|"} {
		name = strings.ReplaceAll(name, ch, "")
	}
	name = strings.ReplaceAll(name, " ", "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}
