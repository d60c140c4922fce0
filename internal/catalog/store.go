// Package catalog persists per-source normalized snapshots as JSON
// artifacts on disk and builds the reference price table the arbitrage
// engine compares against.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/pkg/types"
)

// referenceFiles are the snapshots unioned into the reference price table.
// When an item appears in several, the highest price wins.
var referenceFiles = []string{
	"steammarket_data.json",
	"steamlisting_data.json",
	"steamprice_data.json",
}

// Store reads and writes catalog artifacts under one data directory. Each
// file is written by exactly one adapter; writes are atomic (temp + rename)
// so readers never observe a partial snapshot.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates the store, making the data directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) snapshotPath(source string) string {
	return filepath.Join(s.dir, source+"_data.json")
}

// SaveSnapshot persists one source's snapshot, replacing the previous run.
func (s *Store) SaveSnapshot(snap *types.Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Source, err)
	}

	err = s.writeAtomic(s.snapshotPath(snap.Source), raw)
	if err != nil {
		return err
	}

	s.logger.Info("snapshot-saved",
		zap.String("source", snap.Source),
		zap.Int("items", snap.TotalItems))
	return nil
}

// LoadSnapshot reads one source's snapshot. Accepts both the wrapped object
// form and a bare listing array. A missing file returns an empty snapshot.
func (s *Store) LoadSnapshot(source string) (*types.Snapshot, error) {
	raw, err := os.ReadFile(s.snapshotPath(source))
	if err != nil {
		if os.IsNotExist(err) {
			return &types.Snapshot{Source: source}, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", source, err)
	}

	var snap types.Snapshot
	err = json.Unmarshal(raw, &snap)
	if err == nil && len(snap.Items) > 0 {
		return &snap, nil
	}

	var items []types.Listing
	err = json.Unmarshal(raw, &items)
	if err != nil {
		return nil, &types.ParseError{Source: source, Reason: "snapshot is neither wrapped object nor listing array"}
	}

	return &types.Snapshot{
		Source:     source,
		TotalItems: len(items),
		Items:      items,
	}, nil
}

// SnapshotAge returns how old a source's snapshot file is, or false when no
// snapshot exists.
func (s *Store) SnapshotAge(source string) (time.Duration, bool) {
	info, err := os.Stat(s.snapshotPath(source))
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Sources lists the source tags with a snapshot on disk, sorted.
func (s *Store) Sources() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_data.json"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		base := filepath.Base(m)
		out = append(out, base[:len(base)-len("_data.json")])
	}
	sort.Strings(out)
	return out, nil
}

// ReferenceTable unions the reference snapshots into a name -> gross price
// map, keeping the highest price per item.
func (s *Store) ReferenceTable() (map[string]float64, error) {
	table := make(map[string]float64)

	for _, filename := range referenceFiles {
		raw, err := os.ReadFile(filepath.Join(s.dir, filename))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}

		items, err := decodeListings(raw)
		if err != nil {
			s.logger.Warn("reference-file-unreadable",
				zap.String("file", filename),
				zap.Error(err))
			continue
		}

		loaded := 0
		for _, item := range items {
			if item.Name == "" || item.Price <= 0 {
				continue
			}
			if prev, ok := table[item.Name]; !ok || item.Price > prev {
				table[item.Name] = item.Price
				loaded++
			}
		}
		s.logger.Debug("reference-file-loaded",
			zap.String("file", filename),
			zap.Int("items", loaded))
	}

	return table, nil
}

func decodeListings(raw []byte) ([]types.Listing, error) {
	var snap types.Snapshot
	if err := json.Unmarshal(raw, &snap); err == nil && len(snap.Items) > 0 {
		return snap.Items, nil
	}
	var items []types.Listing
	err := json.Unmarshal(raw, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// NameIDs reads data/item_nameids.json, the sibling artifact the
// reference-driven adapter fans out over.
func (s *Store) NameIDs() ([]types.NameID, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, "item_nameids.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read item_nameids.json: %w", err)
	}

	var out []types.NameID
	err = json.Unmarshal(raw, &out)
	if err != nil {
		return nil, &types.ParseError{Source: "steamnameids", Reason: err.Error()}
	}
	return out, nil
}

// SaveNameIDs replaces data/item_nameids.json.
func (s *Store) SaveNameIDs(ids []types.NameID) error {
	raw, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal nameids: %w", err)
	}
	return s.writeAtomic(filepath.Join(s.dir, "item_nameids.json"), raw)
}

// WriteFile atomically writes an arbitrary artifact under the data dir.
func (s *Store) WriteFile(name string, raw []byte) error {
	return s.writeAtomic(filepath.Join(s.dir, name), raw)
}

// ReadFile reads an arbitrary artifact under the data dir.
func (s *Store) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, name))
}

func (s *Store) writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(raw)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
