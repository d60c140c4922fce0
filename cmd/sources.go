package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcruz/skins-arb/internal/scraper"
	"github.com/jmcruz/skins-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered marketplace sources",
	RunE:  runSources,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	for _, tag := range scraper.Sources() {
		sc, ok := cfg.Source(tag)
		if !ok {
			continue
		}

		state := "enabled"
		if !sc.Enabled {
			state = "disabled"
		}
		auth := ""
		if sc.RequiresKey {
			auth = "  (requires BOT_API_KEY_" + strings.ToUpper(tag) + ")"
			if sc.APIKey != "" {
				auth = "  (key set)"
			}
		}
		fmt.Printf("%-14s %-9s every %-8s%s\n", tag, state, sc.Interval(), auth)
	}

	if len(cfg.Groups) > 0 {
		fmt.Println("\ngroups:")
		for name, tags := range cfg.Groups {
			fmt.Printf("  %-12s %v\n", name, tags)
		}
	}
	return nil
}
