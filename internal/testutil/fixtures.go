// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/catalog"
	"github.com/jmcruz/skins-arb/pkg/types"
)

// NewCatalog creates a catalog store in a test temp dir.
func NewCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("create catalog store: %v", err)
	}
	return store
}

// Listing builds a minimal valid listing.
func Listing(source, name string, price float64) types.Listing {
	return types.Listing{
		Name:       name,
		Price:      price,
		Source:     source,
		CapturedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// WriteSnapshot persists a snapshot of the given listings.
func WriteSnapshot(t *testing.T, store *catalog.Store, source string, items []types.Listing) {
	t.Helper()
	err := store.SaveSnapshot(&types.Snapshot{
		Source:     source,
		CapturedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		TotalItems: len(items),
		Items:      items,
	})
	if err != nil {
		t.Fatalf("write snapshot %s: %v", source, err)
	}
}
