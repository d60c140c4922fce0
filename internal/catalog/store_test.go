package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func listing(source, name string, price float64) types.Listing {
	return types.Listing{
		Name:       name,
		Price:      price,
		Source:     source,
		CapturedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newStore(t)

	snap := &types.Snapshot{
		Source:     "waxpeer",
		CapturedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalItems: 2,
		Items: []types.Listing{
			listing("waxpeer", "A", 1.5),
			listing("waxpeer", "B", 2.5),
		},
		Metrics: &types.RunMetrics{RequestsMade: 1, RequestsSuccessful: 1},
	}
	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot("waxpeer")
	require.NoError(t, err)
	assert.Equal(t, "waxpeer", got.Source)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "A", got.Items[0].Name)
	assert.Equal(t, 1, got.Metrics.RequestsMade)
}

func TestLoadSnapshotBareArray(t *testing.T) {
	s := newStore(t)

	items := []types.Listing{listing("white", "C", 3.0)}
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "white_data.json"), raw, 0o644))

	got, err := s.LoadSnapshot("white")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "C", got.Items[0].Name)
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	s := newStore(t)

	got, err := s.LoadSnapshot("nothing")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestSaveSnapshotLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.SaveSnapshot(&types.Snapshot{
		Source: "waxpeer",
		Items:  []types.Listing{listing("waxpeer", "A", 1)},
	}))

	matches, err := filepath.Glob(filepath.Join(s.Dir(), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSources(t *testing.T) {
	s := newStore(t)

	for _, src := range []string{"waxpeer", "empire", "skinport"} {
		require.NoError(t, s.SaveSnapshot(&types.Snapshot{
			Source: src,
			Items:  []types.Listing{listing(src, "A", 1)},
		}))
	}

	sources, err := s.Sources()
	require.NoError(t, err)
	assert.Equal(t, []string{"empire", "skinport", "waxpeer"}, sources)
}

func TestReferenceTableTakesMaxAcrossFiles(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.SaveSnapshot(&types.Snapshot{
		Source: "steammarket",
		Items: []types.Listing{
			listing("steammarket", "A", 1.00),
			listing("steammarket", "B", 5.00),
		},
	}))
	require.NoError(t, s.SaveSnapshot(&types.Snapshot{
		Source: "steamlisting",
		Items: []types.Listing{
			listing("steamlisting", "A", 2.00),
			listing("steamlisting", "B", 4.00),
		},
	}))

	table, err := s.ReferenceTable()
	require.NoError(t, err)
	assert.InDelta(t, 2.00, table["A"], 1e-9)
	assert.InDelta(t, 5.00, table["B"], 1e-9)
}

func TestReferenceTableSkipsInvalidEntries(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.SaveSnapshot(&types.Snapshot{
		Source: "steammarket",
		Items: []types.Listing{
			{Name: "", Price: 1.0, Source: "steammarket"},
			{Name: "Zero", Price: 0, Source: "steammarket"},
			listing("steammarket", "Good", 1.0),
		},
	}))

	table, err := s.ReferenceTable()
	require.NoError(t, err)
	assert.Len(t, table, 1)
	assert.Contains(t, table, "Good")
}

func TestNameIDsRoundTrip(t *testing.T) {
	s := newStore(t)

	ids, err := s.NameIDs()
	require.NoError(t, err)
	assert.Nil(t, ids)

	want := []types.NameID{
		{Name: "A", ID: "1", LastUpdated: "2024-06-01T12:00:00Z"},
		{Name: "B", ID: "2", LastUpdated: "2024-06-01T12:00:00Z"},
	}
	require.NoError(t, s.SaveNameIDs(want))

	got, err := s.NameIDs()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSnapshotAge(t *testing.T) {
	s := newStore(t)

	_, ok := s.SnapshotAge("waxpeer")
	assert.False(t, ok)

	require.NoError(t, s.SaveSnapshot(&types.Snapshot{
		Source: "waxpeer",
		Items:  []types.Listing{listing("waxpeer", "A", 1)},
	}))

	age, ok := s.SnapshotAge("waxpeer")
	require.True(t, ok)
	assert.Less(t, age, time.Minute)
}
