// Package commands holds the harvester CLI.
package commands

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/02loveslollipop/wfs-catalog/internal/logging"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/config"
)

var (
	cfg     config.Config
	logger  zerolog.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Harvest WFS capabilities into the geodata catalog",
	Long: `The harvester fetches GetCapabilities documents from WFS endpoints, extracts
service and layer metadata, classifies layers and regions, and stores the
result in the catalog. Layers can be probed with GetFeature to record whether
they are queryable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			loaded.DryRun = true
		}
		if verbose {
			loaded.LogLevel = "debug"
		}
		cfg = loaded
		logger = logging.New(logging.Config{
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  os.Stderr,
			Service: "harvester",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
