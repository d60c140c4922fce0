package arbitrage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/storage"
	"github.com/jmcruz/skins-arb/internal/testutil"
	"github.com/jmcruz/skins-arb/pkg/types"
)

func newEngine(t *testing.T) (*arbitrage.Engine, *catalog.Store) {
	t.Helper()
	store := testutil.NewCatalog(t)
	sink := storage.NewFileStorage(store, zap.NewNop())
	engine := arbitrage.New(&arbitrage.Config{
		Store:     store,
		DeepLinks: map[string]string{"waxpeer": "https://waxpeer.com/item/cs-go/"},
		Logger:    zap.NewNop(),
	}, sink)
	return engine, store
}

func TestComputeCompleteMode(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "A", 1.00),
		testutil.Listing("steammarket", "B", 2.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		testutil.Listing("waxpeer", "A", 0.50),
		testutil.Listing("waxpeer", "B", 1.90),
	})

	batch, err := engine.Compute(context.Background(), arbitrage.Options{
		Mode:       "complete",
		MinRatio:   0.05,
		MinPrice:   0.10,
		MaxResults: 100,
	})
	require.NoError(t, err)

	// net(1.00)=0.87: buying A at 0.50 profits 74%.
	// net(2.00)=1.73: buying B at 1.90 is a loss; filtered out.
	require.Len(t, batch.Opportunities, 1)
	opp := batch.Opportunities[0]
	assert.Equal(t, "A", opp.Name)
	assert.Equal(t, "waxpeer", opp.BuySource)
	assert.InDelta(t, 0.50, opp.BuyPrice, 1e-9)
	assert.InDelta(t, 1.00, opp.ReferenceGrossPrice, 1e-9)
	assert.InDelta(t, 0.87, opp.ReferenceNetPrice, 1e-9)
	assert.InDelta(t, 0.37, opp.ProfitAbsolute, 1e-9)
	assert.InDelta(t, 0.74, opp.ProfitRatio, 1e-9)
	assert.NotEmpty(t, opp.ReferenceURL)
}

func TestComputeFastMode(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "B", 2.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		testutil.Listing("waxpeer", "B", 1.90),
	})

	batch, err := engine.Compute(context.Background(), arbitrage.Options{
		Mode:     "fast",
		MinRatio: 0.05,
		MinPrice: 0.10,
	})
	require.NoError(t, err)

	// Fast mode skips fees: 2.00 - 1.90 = 0.10, ratio ~5.26%.
	require.Len(t, batch.Opportunities, 1)
	assert.InDelta(t, 0.10, batch.Opportunities[0].ProfitAbsolute, 1e-9)
	assert.InDelta(t, 2.00, batch.Opportunities[0].ReferenceNetPrice, 1e-9)
}

func TestComputeSortedAndTruncated(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "A", 10.00),
		testutil.Listing("steammarket", "B", 10.00),
		testutil.Listing("steammarket", "C", 10.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		testutil.Listing("waxpeer", "A", 5.00),
		testutil.Listing("waxpeer", "B", 3.00),
		testutil.Listing("waxpeer", "C", 7.00),
	})

	batch, err := engine.Compute(context.Background(), arbitrage.Options{
		Mode:       "complete",
		MinRatio:   0.01,
		MinPrice:   1.00,
		MaxResults: 2,
	})
	require.NoError(t, err)

	require.Len(t, batch.Opportunities, 2)
	assert.Equal(t, "B", batch.Opportunities[0].Name)
	assert.Equal(t, "A", batch.Opportunities[1].Name)
	assert.GreaterOrEqual(t,
		batch.Opportunities[0].ProfitRatio,
		batch.Opportunities[1].ProfitRatio)
}

func TestComputeFilters(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "cheap", 0.50),
		testutil.Listing("steammarket", "inverted", 1.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		// Below min price.
		testutil.Listing("waxpeer", "cheap", 0.20),
		// Buy price above reference gross: trivially non-profitable.
		testutil.Listing("waxpeer", "inverted", 1.50),
		// Absent from the reference table.
		testutil.Listing("waxpeer", "unknown", 2.00),
	})

	batch, err := engine.Compute(context.Background(), arbitrage.Options{
		Mode:     "complete",
		MinRatio: 0.01,
		MinPrice: 1.00,
	})
	require.NoError(t, err)
	assert.Empty(t, batch.Opportunities)
}

func TestComputeReferenceTableTakesMax(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "A", 1.00),
	})
	testutil.WriteSnapshot(t, store, "steamlisting", []types.Listing{
		testutil.Listing("steamlisting", "A", 3.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		testutil.Listing("waxpeer", "A", 1.50),
	})

	batch, err := engine.Compute(context.Background(), arbitrage.Options{
		Mode:     "complete",
		MinRatio: 0.01,
		MinPrice: 1.00,
	})
	require.NoError(t, err)

	require.Len(t, batch.Opportunities, 1)
	assert.InDelta(t, 3.00, batch.Opportunities[0].ReferenceGrossPrice, 1e-9)
}

func TestSnapshotHistoryBound(t *testing.T) {
	engine, store := newEngine(t)

	testutil.WriteSnapshot(t, store, "steammarket", []types.Listing{
		testutil.Listing("steammarket", "A", 1.00),
	})
	testutil.WriteSnapshot(t, store, "waxpeer", []types.Listing{
		testutil.Listing("waxpeer", "A", 0.50),
	})

	for i := 0; i < 13; i++ {
		_, err := engine.Compute(context.Background(), arbitrage.Options{
			Mode:     "complete",
			MinRatio: 0.01,
			MinPrice: 0.10,
		})
		require.NoError(t, err)
	}

	snap, err := storage.LoadSnapshotFile(store)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.LessOrEqual(t, len(snap.History), 10)
	assert.Equal(t, snap.Current.Timestamp, snap.LastUpdated)
}
