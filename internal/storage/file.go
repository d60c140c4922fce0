package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/internal/catalog"
)

// snapshotFileName is the stable on-disk opportunity artifact.
const snapshotFileName = "profitability_data.json"

// FileStorage maintains data/profitability_data.json: the displaced current
// batch moves onto history, history keeps the last ten, and the whole file
// is replaced atomically.
type FileStorage struct {
	store  *catalog.Store
	logger *zap.Logger
}

// NewFileStorage creates the file sink on top of the catalog store.
func NewFileStorage(store *catalog.Store, logger *zap.Logger) *FileStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStorage{store: store, logger: logger}
}

// StoreBatch pushes the batch into the snapshot file.
func (f *FileStorage) StoreBatch(_ context.Context, batch *arbitrage.Batch) error {
	snap := &arbitrage.SnapshotFile{}

	raw, err := f.store.ReadFile(snapshotFileName)
	if err == nil {
		err = json.Unmarshal(raw, snap)
		if err != nil {
			f.logger.Warn("snapshot-file-unreadable-recreating", zap.Error(err))
			snap = &arbitrage.SnapshotFile{}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", snapshotFileName, err)
	}

	snap.Push(batch)

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot file: %w", err)
	}

	err = f.store.WriteFile(snapshotFileName, out)
	if err != nil {
		return fmt.Errorf("write %s: %w", snapshotFileName, err)
	}

	f.logger.Info("opportunity-snapshot-saved",
		zap.Int("opportunities", batch.TotalOpportunities),
		zap.Int("history", len(snap.History)))
	return nil
}

// Close is a no-op for file storage.
func (f *FileStorage) Close() error { return nil }

// LoadSnapshotFile reads the current opportunity snapshot, for the status
// API and CLI display.
func LoadSnapshotFile(store *catalog.Store) (*arbitrage.SnapshotFile, error) {
	raw, err := store.ReadFile(snapshotFileName)
	if err != nil {
		if os.IsNotExist(err) {
			return &arbitrage.SnapshotFile{}, nil
		}
		return nil, err
	}
	var snap arbitrage.SnapshotFile
	err = json.Unmarshal(raw, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
