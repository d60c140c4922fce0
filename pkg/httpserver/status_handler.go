package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/proxy"
	"github.com/jmcruz/skins-arb/internal/scraper"
	"github.com/jmcruz/skins-arb/internal/storage"
	"github.com/jmcruz/skins-arb/pkg/cache"
)

// StatusHandler serves aggregate run status and the latest opportunities.
type StatusHandler struct {
	runtime *scraper.Runtime
	store   *catalog.Store
	cache   *cache.TieredCache // nil when cache disabled
	proxies *proxy.Manager     // nil when proxies disabled
	logger  *zap.Logger
}

// NewStatusHandler wires the handler. Nil collaborators are skipped in the
// report.
func NewStatusHandler(
	runtime *scraper.Runtime,
	store *catalog.Store,
	tiered *cache.TieredCache,
	proxies *proxy.Manager,
	logger *zap.Logger,
) *StatusHandler {
	return &StatusHandler{
		runtime: runtime,
		store:   store,
		cache:   tiered,
		proxies: proxies,
		logger:  logger,
	}
}

type statusResponse struct {
	Sources map[string]scraper.SourceStatus `json:"sources"`
	Cache   *cache.Stats                    `json:"cache,omitempty"`
	Proxies map[string]proxy.PoolStats      `json:"proxies,omitempty"`
}

// HandleStatus reports per-source run outcomes plus cache and proxy health.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{}
	if h.runtime != nil {
		resp.Sources = h.runtime.Statuses()
	}
	if h.cache != nil {
		stats := h.cache.GetStats()
		resp.Cache = &stats
	}
	if h.proxies != nil {
		resp.Proxies = h.proxies.Stats()
	}

	h.writeJSON(w, resp)
}

// HandleOpportunities serves the current opportunity snapshot.
func (h *StatusHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	snap, err := storage.LoadSnapshotFile(h.store)
	if err != nil {
		h.logger.Error("opportunities-read-failed", zap.Error(err))
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, snap)
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("status-encode-failed", zap.Error(err))
	}
}
