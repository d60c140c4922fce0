// Package adapters holds the per-marketplace integrations. Every adapter
// implements the same contract against the shared HTTP client and emits
// normalized USD listings.
package adapters

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/cache"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// Adapter is the contract every marketplace integration fulfils.
type Adapter interface {
	// Source returns the source tag, unique across the registry.
	Source() string

	// Scrape performs one complete catalog pass. Partial results with a
	// nil error are acceptable when the source degraded mid-run.
	Scrape(ctx context.Context) ([]types.Listing, error)
}

// Deps are the shared collaborators injected into each adapter.
type Deps struct {
	Client  *httpclient.Client
	Cache   cache.Cache
	Catalog *catalog.Store
	Config  *config.Config
	Logger  *zap.Logger
}

// sourceConfig resolves a source's config record, falling back to an empty
// record so adapters never nil-check.
func (d *Deps) sourceConfig(tag string) *config.SourceConfig {
	sc, ok := d.Config.Source(tag)
	if !ok {
		return &config.SourceConfig{Enabled: true}
	}
	return sc
}

// authHeaders builds the auth headers for a source, or an error when a
// required key is missing. Adapters requiring a key fail fast.
func authHeaders(sc *config.SourceConfig, tag string) (map[string]string, error) {
	headers := make(map[string]string, len(sc.Headers)+1)
	for k, v := range sc.Headers {
		headers[k] = v
	}

	switch sc.AuthStyle {
	case config.AuthBearer:
		if sc.APIKey == "" {
			if sc.RequiresKey {
				return nil, &types.ConfigError{
					Key:    "BOT_API_KEY_" + tag,
					Reason: "source requires an API key and none is set",
				}
			}
			return headers, nil
		}
		headers["Authorization"] = "Bearer " + sc.APIKey
	case config.AuthAPIKey:
		if sc.APIKey == "" {
			if sc.RequiresKey {
				return nil, &types.ConfigError{
					Key:    "BOT_API_KEY_" + tag,
					Reason: "source requires an API key and none is set",
				}
			}
			return headers, nil
		}
		header := sc.AuthHeader
		if header == "" {
			header = "X-Api-Key"
		}
		headers[header] = sc.APIKey
	}

	return headers, nil
}

// now returns the capture timestamp for listings produced in this pass.
func now() time.Time {
	return time.Now().UTC()
}
