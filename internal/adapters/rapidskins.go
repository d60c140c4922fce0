package adapters

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// rapidskinsFeedFile is the drop file the external browser process writes.
const rapidskinsFeedFile = "rapidskins_feed.json"

// rapidskinsMaxFeedAge is how old the drop file may be before the adapter
// waits for a fresh write.
const rapidskinsMaxFeedAge = 10 * time.Minute

// rapidskinsWaitForFresh bounds how long one pass waits for the external
// process to deliver.
const rapidskinsWaitForFresh = 30 * time.Second

// RapidSkins consumes the catalog feed an external browser process
// produces; the site requires an authenticated in-browser script, so the
// scraping itself lives outside the core. This adapter watches the drop
// file for freshness, then normalizes and re-emits its contents.
type RapidSkins struct {
	deps *Deps
	cfg  *config.SourceConfig
}

// NewRapidSkins creates the adapter.
func NewRapidSkins(deps *Deps) Adapter {
	return &RapidSkins{deps: deps, cfg: deps.sourceConfig("rapidskins")}
}

// Source returns the source tag.
func (r *RapidSkins) Source() string { return "rapidskins" }

type rapidskinsFeedItem struct {
	Name  string      `json:"name"`
	Price interface{} `json:"price"`
	URL   string      `json:"url"`
}

// Scrape waits for a fresh drop file and converts it. A stale file is
// still consumed after the wait expires; a partial snapshot beats none.
func (r *RapidSkins) Scrape(ctx context.Context) ([]types.Listing, error) {
	path := filepath.Join(r.deps.Catalog.Dir(), rapidskinsFeedFile)

	fresh := r.waitForFresh(ctx, path)
	if !fresh {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &types.APIError{
				Source: r.Source(),
				Body:   "feed file absent; external browser process has not delivered",
			}
		}
		r.deps.Logger.Warn("feed-stale-using-anyway",
			zap.String("source", r.Source()),
			zap.Duration("age", time.Since(info.ModTime())))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var feed []rapidskinsFeedItem
	err = json.Unmarshal(raw, &feed)
	if err != nil {
		return nil, &types.ParseError{Source: r.Source(), Reason: err.Error()}
	}

	capturedAt := now()
	items := make([]types.Listing, 0, len(feed))
	for _, item := range feed {
		price, ok := parsePrice(item.Price)
		if !ok {
			continue
		}

		url := item.URL
		if url == "" {
			url = r.cfg.DeepLinkBase + EncodeName(item.Name)
		}

		listing, nerr := Normalize(types.Listing{
			Name:       item.Name,
			Price:      price,
			Source:     r.Source(),
			URL:        url,
			CapturedAt: capturedAt,
		})
		if nerr != nil {
			continue
		}
		items = append(items, listing)
	}

	return items, nil
}

// waitForFresh returns true once the drop file is newer than the freshness
// bound, watching the data directory for writes with a poll fallback.
func (r *RapidSkins) waitForFresh(ctx context.Context, path string) bool {
	if isFresh(path) {
		return true
	}

	deadline := time.NewTimer(rapidskinsWaitForFresh)
	defer deadline.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		// Watch the directory: the external process writes via rename.
		err = watcher.Add(filepath.Dir(path))
	}
	if err != nil {
		// Poll fallback.
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return false
			case <-deadline.C:
				return false
			case <-ticker.C:
				if isFresh(path) {
					return true
				}
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case event := <-watcher.Events:
			if event.Name == path && isFresh(path) {
				return true
			}
		case werr := <-watcher.Errors:
			r.deps.Logger.Debug("feed-watch-error", zap.Error(werr))
		}
	}
}

func isFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < rapidskinsMaxFeedAge
}
