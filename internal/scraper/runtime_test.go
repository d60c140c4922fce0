package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/adapters"
	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/internal/httpclient"
	"github.com/jmcruz/skins-arb/pkg/config"
	"github.com/jmcruz/skins-arb/pkg/ratelimit"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// fakeAdapter scripts one source's scrape outcome.
type fakeAdapter struct {
	source string
	items  []types.Listing
	err    error
	runs   int
}

func (f *fakeAdapter) Source() string { return f.source }

func (f *fakeAdapter) Scrape(_ context.Context) ([]types.Listing, error) {
	f.runs++
	return f.items, f.err
}

func newTestRuntime(t *testing.T, adapterSet []adapters.Adapter) (*Runtime, *catalog.Store) {
	t.Helper()

	store, err := catalog.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	client := httpclient.New(&httpclient.Config{
		Limiter: ratelimit.New(10000, 10000),
		Logger:  zap.NewNop(),
	})

	return New(&Config{
		Adapters:      adapterSet,
		Client:        client,
		Catalog:       store,
		Sources:       cfg,
		MaxConcurrent: 4,
		ShutdownGrace: time.Second,
		Logger:        zap.NewNop(),
	}), store
}

func fixtureListing(source, name string) types.Listing {
	return types.Listing{
		Name:       name,
		Price:      1.0,
		Source:     source,
		CapturedAt: time.Now().UTC(),
	}
}

func TestRunOncePersistsAndRecords(t *testing.T) {
	good := &fakeAdapter{
		source: "waxpeer",
		items:  []types.Listing{fixtureListing("waxpeer", "Item A")},
	}
	bad := &fakeAdapter{
		source: "empire",
		err:    errors.New("upstream exploded"),
	}

	rt, store := newTestRuntime(t, []adapters.Adapter{good, bad})

	err := rt.RunOnce(context.Background())
	require.NoError(t, err, "one adapter succeeded, so the set did not fail")

	statuses := rt.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, types.RunSuccess, statuses["waxpeer"].Status)
	assert.Equal(t, 1, statuses["waxpeer"].Items)
	assert.Equal(t, types.RunError, statuses["empire"].Status)
	assert.Contains(t, statuses["empire"].Error, "upstream exploded")

	snap, err := store.LoadSnapshot("waxpeer")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)

	snap, err = store.LoadSnapshot("empire")
	require.NoError(t, err)
	assert.Empty(t, snap.Items, "failed run persists nothing")
}

func TestRunOncePartialSnapshot(t *testing.T) {
	partial := &fakeAdapter{
		source: "tradeit",
		items:  []types.Listing{fixtureListing("tradeit", "Kept Item")},
		err:    errors.New("page 7 timed out"),
	}

	rt, store := newTestRuntime(t, []adapters.Adapter{partial})

	err := rt.RunOnce(context.Background())
	require.NoError(t, err)

	statuses := rt.Statuses()
	assert.Equal(t, types.RunPartial, statuses["tradeit"].Status)

	snap, err := store.LoadSnapshot("tradeit")
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1, "partial results are persisted")
}

func TestRunOnceAllFailed(t *testing.T) {
	rt, _ := newTestRuntime(t, []adapters.Adapter{
		&fakeAdapter{source: "waxpeer", err: errors.New("down")},
		&fakeAdapter{source: "empire", err: errors.New("down")},
	})

	err := rt.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnceOrdersNameidsLast(t *testing.T) {
	var order []string
	listing := &orderedAdapter{source: "steamlisting", order: &order}
	nameids := &orderedAdapter{source: "steamnameids", order: &order}

	rt, _ := newTestRuntime(t, []adapters.Adapter{nameids, listing})

	err := rt.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, order, 2)
	assert.Equal(t, "steamlisting", order[0])
	assert.Equal(t, "steamnameids", order[1])
}

// orderedAdapter appends its source tag on run. RunOnce's first phase has
// a single adapter here, so no synchronization races on the slice.
type orderedAdapter struct {
	source string
	order  *[]string
}

func (o *orderedAdapter) Source() string { return o.source }

func (o *orderedAdapter) Scrape(_ context.Context) ([]types.Listing, error) {
	*o.order = append(*o.order, o.source)
	return []types.Listing{fixtureListing(o.source, "Some Item")}, nil
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	adapter := &fakeAdapter{
		source: "waxpeer",
		items:  []types.Listing{fixtureListing("waxpeer", "Item A")},
	}

	rt, _ := newTestRuntime(t, []adapters.Adapter{adapter})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rt.RunForever(ctx)
	}()

	// Let the immediate first run happen, then stop.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not drain")
	}

	assert.GreaterOrEqual(t, adapter.runs, 1)
}

func TestRegistryBuildUnknownSource(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	deps := &adapters.Deps{Config: cfg, Logger: zap.NewNop()}
	_, err = Build([]string{"nonexistent"}, deps)
	assert.Error(t, err)
}

func TestRegistryBuildAllEnabled(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	deps := &adapters.Deps{Config: cfg, Logger: zap.NewNop()}
	built, err := Build(nil, deps)
	require.NoError(t, err)
	assert.Len(t, built, len(Sources()))

	seen := map[string]bool{}
	for _, a := range built {
		seen[a.Source()] = true
	}
	for _, tag := range Sources() {
		assert.True(t, seen[tag], "missing adapter for %s", tag)
	}
}

func TestExpandGroup(t *testing.T) {
	groups := map[string][]string{"fast": {"waxpeer", "skinport"}}

	tags, err := ExpandGroup(groups, "fast")
	require.NoError(t, err)
	assert.Equal(t, []string{"waxpeer", "skinport"}, tags)

	_, err = ExpandGroup(groups, "missing")
	assert.Error(t, err)
}
