// Package storage delivers arbitrage batches to their sinks: the
// authoritative JSON snapshot file, a console pretty-printer, and an
// optional Postgres mirror.
package storage

import (
	"context"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
)

// Storage is the interface for storing arbitrage opportunity batches.
type Storage interface {
	// StoreBatch stores one engine run's batch.
	StoreBatch(ctx context.Context, batch *arbitrage.Batch) error

	// Close closes the storage connection.
	Close() error
}

// Multi fans one batch out to several sinks; the first error wins but all
// sinks are attempted.
type Multi []Storage

// StoreBatch delivers to every sink.
func (m Multi) StoreBatch(ctx context.Context, batch *arbitrage.Batch) error {
	var first error
	for _, s := range m {
		err := s.StoreBatch(ctx, batch)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		err := s.Close()
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
