package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	probeAll         bool
	probeLimit       int
	probeConcurrency int
	probeJSON        bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check stored layers with a minimal GetFeature request",
	Long: `Probe sends a GetFeature request for one feature to each layer of the active
streams and records whether the layer answered with features, an empty result
or an exception. By default only layers that were never probed are checked.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeAll, "all", false, "probe layers that were checked before too")
	probeCmd.Flags().IntVar(&probeLimit, "limit", 0, "maximum number of layers to probe (0 = no limit)")
	probeCmd.Flags().IntVar(&probeConcurrency, "concurrency", 0, "parallel probes (1-8, default from HARVESTER_CONCURRENCY)")
	probeCmd.Flags().Bool("dry-run", false, "probe without writing results")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, runtimeOptions{needDB: true, noCache: true, concurrency: probeConcurrency})
	if err != nil {
		return err
	}
	defer rt.close()

	targets, err := rt.catalog.ProbeTargets(ctx, !probeAll, probeLimit)
	if err != nil {
		return fmt.Errorf("load probe targets: %w", err)
	}
	if len(targets) == 0 {
		logger.Info().Msg("no layers to probe")
		return nil
	}

	report := rt.scanner.ProbeLayers(ctx, targets)
	if probeJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printProbeReport(cmd.OutOrStdout(), report)
	if report.Error != "" {
		return fmt.Errorf("store probe results: %s", report.Error)
	}
	return nil
}
