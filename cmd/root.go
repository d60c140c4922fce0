package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var configDir string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "skins-arb",
	Short: "CS2 skin marketplace aggregator and arbitrage engine",
	Long: `skins-arb concurrently scrapes ~15 third-party skin marketplaces plus
the Steam Community Market, normalizes listings into per-source catalog
snapshots, and ranks cross-marketplace arbitrage opportunities against
Steam's fee schedule.

Catalog artifacts live under data/, configuration under config/, and
secrets come from environment variables (BOT_API_KEY_<SOURCE>, proxy
provider tokens).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding settings.json and scrapers.json")
}
