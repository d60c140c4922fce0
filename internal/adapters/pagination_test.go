package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcruz/skins-arb/pkg/types"
)

func TestTradeItWalksOffsets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		switch offset {
		case "0":
			_, _ = w.Write([]byte(`{"items": [
				{"name": "First Item", "priceForTrade": 150},
				{"name": "Second Item", "priceForTrade": 225}
			]}`))
		case "2":
			_, _ = w.Write([]byte(`{"items": [
				{"name": "Third Item", "priceForTrade": 75}
			]}`))
		default:
			_, _ = w.Write([]byte(`{"items": []}`))
		}
	}))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"tradeit": server.URL})
	items, err := NewTradeIt(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "First Item", items[0].Name)
	assert.InDelta(t, 1.50, items[0].Price, 1e-9)
	assert.InDelta(t, 2.25, items[1].Price, 1e-9)
	assert.InDelta(t, 0.75, items[2].Price, 1e-9)
}

func TestSkinOutStopsOnConsecutiveEmptyPages(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page := r.URL.Query().Get("page")
		if page == "1" {
			_, _ = w.Write([]byte(`{"success": true, "items": [
				{"market_hash_name": "Only Item", "price": 2.00}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": true, "items": []}`))
	}))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"skinout": server.URL})
	items, err := NewSkinOut(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Only Item", items[0].Name)
	// Page 1 plus the empty-page run that triggers the stop.
	assert.Equal(t, 4, requests)
}

func TestEmpireRequiresKey(t *testing.T) {
	deps := newTestDeps(t, nil)

	_, err := NewEmpire(deps).Scrape(context.Background())
	require.Error(t, err)
	var cerr *types.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestEmpireConvertsCoinsAndDedups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auction := r.URL.Query().Get("auction")
		page := r.URL.Query().Get("page")
		if page != "1" {
			_, _ = w.Write([]byte(`{"data": []}`))
			return
		}
		if auction == "no" {
			_, _ = w.Write([]byte(`{"data": [
				{"id": 1, "market_name": "Coin Item", "market_value": 1000}
			]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data": [
			{"id": 2, "market_name": "Coin Item", "market_value": 800}
		]}`))
	}))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{"empire": server.URL})
	sc, _ := deps.Config.Source("empire")
	sc.APIKey = "test-key"

	items, err := NewEmpire(deps).Scrape(context.Background())
	require.NoError(t, err)

	// 800 cents-of-coins = 8 coins; 8 * 0.6154 = 4.9232. The cheaper of
	// the direct and auction listings wins.
	require.Len(t, items, 1)
	assert.InDelta(t, 8*0.6154, items[0].Price, 1e-9)
}

func TestManncoStoreWalksSkip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip := r.URL.Query().Get("skip")
		if skip == "0" {
			_, _ = w.Write([]byte(`[
				{"name": "Spliced Item", "price": 1250, "url": "spliced-item"}
			]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	deps := newTestDeps(t, map[string]string{
		"manncostore": server.URL + "/items/get?skip=%d",
	})
	items, err := NewManncoStore(deps).Scrape(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.InDelta(t, 12.50, items[0].Price, 1e-9)
	assert.Equal(t, fmt.Sprintf("%s%s", "https://mannco.store/item/730/", "spliced-item"), items[0].URL)
}
