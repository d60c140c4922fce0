package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmcruz/skins-arb/internal/arbitrage"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreBatch pretty-prints the batch to console.
func (c *ConsoleStorage) StoreBatch(_ context.Context, batch *arbitrage.Batch) error {
	rule := "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

	fmt.Println("\n" + rule)
	fmt.Printf("ARBITRAGE OPPORTUNITIES (%d, mode=%s)\n", batch.TotalOpportunities, batch.Mode)
	fmt.Printf("Run: %s  at %s\n", batch.RunID[:8], batch.Timestamp)
	fmt.Println(rule)

	if batch.TotalOpportunities == 0 {
		fmt.Println("  none above thresholds")
		fmt.Println(rule)
		return nil
	}

	for i, opp := range batch.Opportunities {
		fmt.Printf("%3d. %-55s %s\n", i+1, truncate(opp.Name, 55), opp.BuySource)
		fmt.Printf("     buy $%-8.2f ref $%-8.2f net $%-8.2f profit $%.2f (%.1f%%)\n",
			opp.BuyPrice,
			opp.ReferenceGrossPrice,
			opp.ReferenceNetPrice,
			opp.ProfitAbsolute,
			opp.ProfitRatio*100)
	}
	fmt.Println(rule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
