package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/utils"
)

var (
	scanFile        string
	scanFromDB      bool
	scanReenrich    bool
	scanConcurrency int
	scanNoCache     bool
	scanJSON        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [url...]",
	Short: "Scan WFS endpoints and store their capabilities",
	Long: `Scan fetches and parses the capabilities of each endpoint and upserts the
stream and its new layers. Endpoints come from arguments, --file (one URL per
line, "-" for stdin) and --from-db (all active catalog streams).`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFile, "file", "", "file with one endpoint URL per line")
	scanCmd.Flags().BoolVar(&scanFromDB, "from-db", false, "rescan all active streams in the catalog")
	scanCmd.Flags().BoolVar(&scanReenrich, "reenrich", false, "overwrite metadata of layers that are already stored")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "parallel scans (1-8, default from HARVESTER_CONCURRENCY)")
	scanCmd.Flags().Bool("dry-run", false, "scan without writing to the catalog")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "ignore the capabilities cache")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, runtimeOptions{
		needDB:      scanFromDB,
		writes:      true,
		noCache:     scanNoCache,
		concurrency: scanConcurrency,
		reenrich:    scanReenrich,
	})
	if err != nil {
		return err
	}
	defer rt.close()

	urls := append([]string{}, args...)
	if scanFile != "" {
		fromFile, err := readURLFile(cmd.InOrStdin(), scanFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if scanFromDB {
		active, err := rt.catalog.ActiveStreamURLs(ctx)
		if err != nil {
			return fmt.Errorf("load active streams: %w", err)
		}
		urls = append(urls, active...)
	}
	if len(urls) == 0 {
		return errors.New("no endpoints given: pass URLs, --file or --from-db")
	}

	report := rt.scanner.ScanAll(ctx, urls)
	if scanJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printScanReport(cmd.OutOrStdout(), report)
	return nil
}

func readURLFile(stdin io.Reader, path string) ([]string, error) {
	if path == "-" {
		return utils.ReadURLList(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url file: %w", err)
	}
	defer f.Close()
	return utils.ReadURLList(f)
}
