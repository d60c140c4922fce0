package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcruz/skins-arb/internal/app"
	"github.com/jmcruz/skins-arb/internal/arbitrage"
	"github.com/jmcruz/skins-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var arbitrageCmd = &cobra.Command{
	Use:   "arbitrage",
	Short: "Compute opportunities from the current catalog",
	Long: `Runs one arbitrage pass over the catalog on disk without scraping:
loads the reference price table, compares every other source's snapshot,
applies the fee schedule (complete mode) and the profit thresholds, and
updates data/profitability_data.json.`,
	RunE: runArbitrage,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(arbitrageCmd)
	arbitrageCmd.Flags().String("mode", "", "complete (fee-adjusted) or fast (gross)")
	arbitrageCmd.Flags().Float64("min-ratio", 0, "minimum profit ratio (0.05 = 5%)")
	arbitrageCmd.Flags().Float64("min-price", 0, "minimum buy price in USD")
	arbitrageCmd.Flags().Int("max-results", 0, "cap on ranked results")
}

func runArbitrage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// The engine only needs the catalog and sinks, but full wiring keeps
	// one construction path.
	application, err := app.New(cfg, logger, &app.Options{})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	opts := arbitrage.Options{
		Mode:       cfg.ArbMode,
		MinRatio:   cfg.ArbMinRatio,
		MinPrice:   cfg.ArbMinPrice,
		MaxResults: cfg.ArbMaxResults,
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		opts.Mode = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-ratio"); v > 0 {
		opts.MinRatio = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-price"); v > 0 {
		opts.MinPrice = v
	}
	if v, _ := cmd.Flags().GetInt("max-results"); v > 0 {
		opts.MaxResults = v
	}

	batch, err := application.Engine().Compute(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	fmt.Printf("%d opportunities (mode=%s)\n", batch.TotalOpportunities, batch.Mode)
	for i, opp := range batch.Opportunities {
		fmt.Printf("%3d. %-55s %-12s buy $%.2f net $%.2f +%.1f%%\n",
			i+1, opp.Name, opp.BuySource, opp.BuyPrice, opp.ReferenceNetPrice, opp.ProfitRatio*100)
	}
	return nil
}
