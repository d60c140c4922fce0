package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcruz/skins-arb/internal/app"
	"github.com/jmcruz/skins-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scrapeCmd = &cobra.Command{
	Use:   "scrape [sources...]",
	Short: "Run the selected adapters once and refresh the catalog",
	Long: `Runs each selected adapter a single time under the global concurrency
cap, persists per-source snapshots to data/<source>_data.json, then
computes one arbitrage pass over the refreshed catalog.

With no arguments every enabled source runs. Use --group to run a named
group from config/scrapers.json.`,
	RunE: runScrape,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().StringP("group", "g", "", "scraper group from config/scrapers.json")
}

func runScrape(cmd *cobra.Command, args []string) error {
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

	group, _ := cmd.Flags().GetString("group")

	application, err := app.New(cfg, logger, &app.Options{
		Sources: args,
		Group:   group,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	err = application.RunOnce(context.Background())
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	fmt.Println(application.Runtime().Describe())
	return nil
}
