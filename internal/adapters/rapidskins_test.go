package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcruz/skins-arb/pkg/types"
)

func TestRapidSkinsConsumesFreshFeed(t *testing.T) {
	deps := newTestDeps(t, nil)

	feed := `[
		{"name": "Fed Item", "price": 4.20, "url": "https://rapidskins.com/item/fed-item"},
		{"name": "Bad Item", "price": "abc"}
	]`
	err := os.WriteFile(filepath.Join(deps.Catalog.Dir(), "rapidskins_feed.json"), []byte(feed), 0o644)
	require.NoError(t, err)

	items, err := NewRapidSkins(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Fed Item", items[0].Name)
	assert.InDelta(t, 4.20, items[0].Price, 1e-9)
	assert.Equal(t, "https://rapidskins.com/item/fed-item", items[0].URL)
}

func TestRapidSkinsFailsWithoutFeed(t *testing.T) {
	deps := newTestDeps(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // don't sit in the freshness wait

	_, err := NewRapidSkins(deps).Scrape(ctx)
	require.Error(t, err)
	var apiErr *types.APIError
	assert.ErrorAs(t, err, &apiErr)
}
