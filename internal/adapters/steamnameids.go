package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/cache"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// nameidPatterns extract the market nameid from a listing page.
var nameidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Market_LoadOrderSpread\(\s*(\d+)\s*\)`),
	regexp.MustCompile(`"nameid":(\d+)`),
	regexp.MustCompile(`nameid=(\d+)`),
}

// SteamNameIDs resolves missing item nameids by scraping the reference
// listing pages, and maintains data/item_nameids.json. Must run after the
// listing adapter when both are scheduled; the runtime orders them.
// Resolved ids are memoized so reruns only pay for genuinely new items.
type SteamNameIDs struct {
	deps *Deps
	cfg  *config.SourceConfig
	memo cache.Cache
}

// NewSteamNameIDs creates the sub-adapter with its memoization cache.
func NewSteamNameIDs(deps *Deps) Adapter {
	memo, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 200000,
		MaxCost:     20000,
		BufferItems: 64,
		Logger:      deps.Logger,
	})
	if err != nil {
		memo = nil
	}
	return &SteamNameIDs{deps: deps, cfg: deps.sourceConfig("steamnameids"), memo: memo}
}

// Source returns the source tag.
func (s *SteamNameIDs) Source() string { return "steamnameids" }

// Scrape resolves nameids for listing items that lack one and rewrites the
// sibling artifact. It emits no listings of its own.
func (s *SteamNameIDs) Scrape(ctx context.Context) ([]types.Listing, error) {
	listing, err := s.deps.Catalog.LoadSnapshot("steamlisting")
	if err != nil {
		return nil, err
	}
	if len(listing.Items) == 0 {
		return nil, &types.APIError{
			Source: s.Source(),
			Body:   "steamlisting snapshot missing or empty; run the listing adapter first",
		}
	}

	existing, err := s.deps.Catalog.NameIDs()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, nid := range existing {
		known[nid.Name] = true
	}

	var missing []string
	for _, item := range listing.Items {
		if !known[item.Name] {
			missing = append(missing, item.Name)
		}
	}
	if len(missing) == 0 {
		s.deps.Logger.Info("nameids-up-to-date", zap.Int("known", len(existing)))
		return nil, nil
	}

	maxConcurrent := int64(s.cfg.MaxConcurrent)
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}

	sem := semaphore.NewWeighted(maxConcurrent)
	group, groupCtx := errgroup.WithContext(ctx)

	stamp := time.Now().UTC().Format(time.RFC3339)
	var mu sync.Mutex
	resolved := make([]types.NameID, 0, len(missing))

	for _, name := range missing {
		if id, ok := s.memoGet(name); ok {
			resolved = append(resolved, types.NameID{Name: name, ID: id, LastUpdated: stamp})
			continue
		}

		err = sem.Acquire(groupCtx, 1)
		if err != nil {
			break
		}

		group.Go(func() error {
			defer sem.Release(1)

			id, rerr := s.resolve(groupCtx, name)
			if rerr != nil {
				s.deps.Logger.Debug("nameid-resolve-failed",
					zap.String("item", name),
					zap.Error(rerr))
				return nil
			}

			s.memoSet(name, id)
			mu.Lock()
			resolved = append(resolved, types.NameID{Name: name, ID: id, LastUpdated: stamp})
			mu.Unlock()
			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	if len(resolved) > 0 {
		merged := append(existing, resolved...)
		err = s.deps.Catalog.SaveNameIDs(merged)
		if err != nil {
			return nil, err
		}
	}

	s.deps.Logger.Info("nameids-resolved",
		zap.Int("missing", len(missing)),
		zap.Int("resolved", len(resolved)))
	return nil, nil
}

// resolve fetches one listing page and extracts the nameid from its HTML.
func (s *SteamNameIDs) resolve(ctx context.Context, name string) (string, error) {
	body, err := s.deps.Client.Fetch(ctx, &httpclient.Request{
		Source: s.Source(),
		URL:    fmt.Sprintf(s.cfg.URLTemplate, url.PathEscape(name)),
		Headers: map[string]string{
			"Accept": "text/html,application/xhtml+xml",
		},
	})
	if err != nil {
		return "", err
	}

	for _, pattern := range nameidPatterns {
		m := pattern.FindSubmatch(body)
		if m != nil {
			return string(m[1]), nil
		}
	}
	return "", &types.ParseError{Source: s.Source(), Reason: "no nameid in listing page"}
}

func (s *SteamNameIDs) memoGet(name string) (string, bool) {
	if s.memo == nil {
		return "", false
	}
	v, ok := s.memo.Get(name)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

func (s *SteamNameIDs) memoSet(name, id string) {
	if s.memo == nil {
		return
	}
	s.memo.Set(name, id, 24*time.Hour)
}
