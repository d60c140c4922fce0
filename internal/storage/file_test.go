package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/internal/catalog"
)

func newFileStore(t *testing.T) (*FileStorage, *catalog.Store) {
	t.Helper()
	store, err := catalog.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return NewFileStorage(store, zap.NewNop()), store
}

func batchN(n int) *arbitrage.Batch {
	return &arbitrage.Batch{
		RunID:     fmt.Sprintf("run-%d", n),
		Timestamp: fmt.Sprintf("2024-06-01T12:00:%02dZ", n),
		Mode:      "complete",
	}
}

func TestFileStorageFirstWrite(t *testing.T) {
	sink, store := newFileStore(t)

	require.NoError(t, sink.StoreBatch(context.Background(), batchN(1)))

	snap, err := LoadSnapshotFile(store)
	require.NoError(t, err)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "run-1", snap.Current.RunID)
	assert.Empty(t, snap.History)
	assert.Equal(t, snap.Current.Timestamp, snap.LastUpdated)
}

func TestFileStorageDisplacesCurrentOntoHistory(t *testing.T) {
	sink, store := newFileStore(t)

	require.NoError(t, sink.StoreBatch(context.Background(), batchN(1)))
	require.NoError(t, sink.StoreBatch(context.Background(), batchN(2)))

	snap, err := LoadSnapshotFile(store)
	require.NoError(t, err)
	assert.Equal(t, "run-2", snap.Current.RunID)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "run-1", snap.History[0].RunID)
}

func TestFileStorageHistoryBound(t *testing.T) {
	sink, store := newFileStore(t)

	for i := 0; i < 15; i++ {
		require.NoError(t, sink.StoreBatch(context.Background(), batchN(i)))
	}

	snap, err := LoadSnapshotFile(store)
	require.NoError(t, err)
	assert.Equal(t, "run-14", snap.Current.RunID)
	require.Len(t, snap.History, 10)
	// Oldest retained is run-4: runs 0..3 aged out.
	assert.Equal(t, "run-4", snap.History[0].RunID)
	assert.Equal(t, "run-13", snap.History[9].RunID)
}

func TestLoadSnapshotFileMissing(t *testing.T) {
	_, store := newFileStore(t)

	snap, err := LoadSnapshotFile(store)
	require.NoError(t, err)
	assert.Nil(t, snap.Current)
}
