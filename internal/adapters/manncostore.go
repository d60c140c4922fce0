package adapters

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// ManncoStore scrapes mannco.store: skip-paged, prices as integers with
// the last two digits being cents (1250 means 12.50).
type ManncoStore struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewManncoStore creates the adapter.
func NewManncoStore(deps *Deps) Adapter {
	return &ManncoStore{deps: deps, cfg: deps.sourceConfig("manncostore")}
}

// Source returns the source tag.
func (m *ManncoStore) Source() string { return "manncostore" }

type manncoItem struct {
	Name  string      `json:"name"`
	Price interface{} `json:"price"`
	URL   string      `json:"url"`
}

// manncoPrice splices the integer price into dollars and cents.
func manncoPrice(raw interface{}) (float64, bool) {
	var digits string
	switch v := raw.(type) {
	case float64:
		digits = strconv.FormatInt(int64(v), 10)
	case string:
		digits = v
	default:
		return 0, false
	}
	if digits == "" {
		return 0, false
	}

	if len(digits) <= 2 {
		for len(digits) < 2 {
			digits = "0" + digits
		}
		f, err := strconv.ParseFloat("0."+digits, 64)
		return f, err == nil && f > 0
	}
	f, err := strconv.ParseFloat(digits[:len(digits)-2]+"."+digits[len(digits)-2:], 64)
	return f, err == nil && f > 0
}

// Scrape performs one pass, advancing skip until emptyLimit consecutive
// pages come back empty.
func (m *ManncoStore) Scrape(ctx context.Context) ([]types.Listing, error) {
	perPage := m.cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = 50
	}
	emptyLimit := m.cfg.EmptyPageLimit
	if emptyLimit <= 0 {
		emptyLimit = 3
	}

	capturedAt := now()
	var items []types.Listing
	skip := 0
	consecutiveEmpty := 0

	for consecutiveEmpty < emptyLimit {
		err := ctx.Err()
		if err != nil {
			return items, err
		}

		var raw []manncoItem
		err = m.deps.Client.FetchJSON(ctx, &httpclient.Request{
			Source: m.Source(),
			URL:    fmt.Sprintf(m.cfg.URLTemplate, skip),
			Headers: map[string]string{
				"Accept": "application/json, text/plain, */*",
			},
		}, &raw)
		if err != nil {
			m.deps.Logger.Warn("page-fetch-failed",
				zap.String("source", m.Source()),
				zap.Int("skip", skip),
				zap.Error(err))
			break
		}

		if len(raw) == 0 {
			consecutiveEmpty++
			skip += perPage
			continue
		}
		consecutiveEmpty = 0

		for _, item := range raw {
			price, ok := manncoPrice(item.Price)
			if !ok {
				continue
			}

			url := m.cfg.DeepLinkBase
			if item.URL != "" {
				url += item.URL
			}

			listing, nerr := Normalize(types.Listing{
				Name:       item.Name,
				Price:      price,
				Source:     m.Source(),
				URL:        url,
				CapturedAt: capturedAt,
			})
			if nerr != nil {
				continue
			}
			items = append(items, listing)
		}

		skip += len(raw)
	}

	return items, nil
}
