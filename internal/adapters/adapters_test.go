package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/ratelimit"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// newTestDeps wires real collaborators against a test server: unthrottled
// limiter, no cache, no proxies, temp-dir catalog.
func newTestDeps(t *testing.T, overrides map[string]string) *Deps {
	t.Helper()

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	for tag, url := range overrides {
		sc, ok := cfg.Source(tag)
		require.True(t, ok, "unknown source %s", tag)
		sc.URLTemplate = url
	}

	limiter := ratelimit.New(10000, 10000)
	for tag := range cfg.Sources {
		limiter.Register(tag, 10000, 10000)
	}

	store, err := catalog.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	return &Deps{
		Client:  httpclient.New(&httpclient.Config{Limiter: limiter, Logger: zap.NewNop()}),
		Catalog: store,
		Config:  cfg,
		Logger:  zap.NewNop(),
	}
}

func jsonHandler(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestWhiteDropsInvalidItems(t *testing.T) {
	// Three items priced 1.00, -1.00 and "abc": only the positive numeric
	// survives normalization.
	server := httptest.NewServer(jsonHandler(t, `[
		{"market_hash_name": "Valid Item", "price": 1.00},
		{"market_hash_name": "Negative Item", "price": -1.00},
		{"market_hash_name": "Garbage Item", "price": "abc"}
	]`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"white": server.URL})
	items, err := NewWhite(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Valid Item", items[0].Name)
	assert.InDelta(t, 1.00, items[0].Price, 1e-9)
	assert.Equal(t, "white", items[0].Source)
	assert.False(t, items[0].CapturedAt.IsZero())
}

func TestSkinportFiltersUnavailable(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, `[
		{"market_hash_name": "In Stock", "min_price": 2.50, "quantity": 3, "item_page": "https://skinport.com/item/x"},
		{"market_hash_name": "Out Of Stock", "min_price": 1.00, "quantity": 0},
		{"market_hash_name": "No Price", "min_price": null, "quantity": 5}
	]`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"skinport": server.URL})
	items, err := NewSkinport(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "In Stock", items[0].Name)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "https://skinport.com/item/x", items[0].URL)
}

func TestWaxpeerConvertsMilliUSD(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, `{
		"success": true,
		"items": [
			{"name": "AK-47 | Redline", "min": 12500, "steam_price": 15000, "count": 4}
		]
	}`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"waxpeer": server.URL})
	items, err := NewWaxpeer(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.InDelta(t, 12.50, items[0].Price, 1e-9)
	assert.InDelta(t, 15.0, items[0].Extra["steam_price"], 1e-9)
}

func TestCSTradeRemovesBonus(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, `{
		"Listed Item": {"price": 15.00, "have": 2, "tradable": 1},
		"Untradable Item": {"price": 10.00, "have": 1, "tradable": 0},
		"Out Of Stock": {"price": 10.00, "have": 0, "tradable": 1}
	}`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"cstrade": server.URL})
	items, err := NewCSTrade(deps).Scrape(context.Background())
	require.NoError(t, err)

	// Default bonus 50%: 15.00 / 1.5 = 10.00.
	require.Len(t, items, 1)
	assert.Equal(t, "Listed Item", items[0].Name)
	assert.InDelta(t, 10.00, items[0].Price, 1e-9)
}

func TestLisSkinsDedupKeepsCheapest(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, `{"items": [
		{"name": "A Skin", "price": 5},
		{"name": "A Skin", "price": 3},
		{"name": "A Skin", "price": 7}
	]}`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"lisskins": server.URL})
	items, err := NewLisSkins(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.InDelta(t, 3.0, items[0].Price, 1e-9)
}

func TestBitskinsConvertsMilliUSD(t *testing.T) {
	server := httptest.NewServer(jsonHandler(t, `{"list": [
		{"name": "Some Skin", "price_min": 4990, "quantity": 2}
	]}`))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"bitskins": server.URL})
	items, err := NewBitskins(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.InDelta(t, 4.99, items[0].Price, 1e-9)
}

func TestShadowpayRequiresKey(t *testing.T) {
	deps := newTestDeps(t, nil)

	_, err := NewShadowpay(deps).Scrape(context.Background())
	require.Error(t, err)
	var cerr *types.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestShadowpayWithKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data": [
			{"steam_market_hash_name": "Keyed Item", "price": 3.33}
		]}`))
	}))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"shadowpay": server.URL})
	sc, _ := deps.Config.Source("shadowpay")
	sc.APIKey = "test-key"

	items, err := NewShadowpay(deps).Scrape(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, items, 1)
	assert.Equal(t, "Keyed Item", items[0].Name)
}
