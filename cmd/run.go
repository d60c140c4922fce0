package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcruz/skins-arb/internal/app"
	"github.com/jmcruz/skins-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run [sources...]",
	Short: "Run adapters forever with the status server",
	Long: `Starts forever mode: every selected adapter reruns on its configured
interval, a periodic arbitrage pass keeps data/profitability_data.json
fresh, and the status server exposes /metrics, /health, /ready,
/api/status and /api/opportunities.

Shutdown on SIGINT/SIGTERM lets in-flight adapter runs finish within the
configured grace period.`,
	RunE: runForever,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("group", "g", "", "scraper group from config/scrapers.json")
}

func runForever(cmd *cobra.Command, args []string) error {
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

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
