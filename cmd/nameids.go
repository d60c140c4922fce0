package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcruz/skins-arb/internal/app"
	"github.com/jmcruz/skins-arb/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var nameidsCmd = &cobra.Command{
	Use:   "nameids",
	Short: "Resolve missing Steam item nameids",
	Long: `Runs the nameids sub-adapter: reads the steamlisting snapshot, finds
items without a known nameid, resolves them from the Steam listing pages,
and merges the result into data/item_nameids.json. The steammarket
adapter fans out over this artifact.`,
	RunE: runNameids,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(nameidsCmd)
}

func runNameids(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, &app.Options{
		Sources: []string{"steamnameids"},
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	err = application.Runtime().RunOnce(context.Background())
	if err != nil {
		return fmt.Errorf("resolve nameids: %w", err)
	}

	ids, err := application.Catalog().NameIDs()
	if err != nil {
		return err
	}
	fmt.Printf("%d nameids known\n", len(ids))
	return nil
}
