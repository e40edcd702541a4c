package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), runtimeOptions{needDB: true, noCache: true})
		if err != nil {
			return err
		}
		defer rt.close()

		if err := rt.catalog.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info().Msg("catalog schema ready")
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate url...",
	Short: "Mark streams as inactive without deleting them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd.Context(), runtimeOptions{needDB: true, noCache: true})
		if err != nil {
			return err
		}
		defer rt.close()

		n, err := rt.catalog.MarkInactive(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d of %d stream(s)\n", n, len(args))
		return nil
	},
}

var invalidateAll bool

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [url...]",
	Short: "Drop cached capabilities documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !invalidateAll {
			return errors.New("pass endpoint URLs or --all")
		}
		rt, err := newRuntime(cmd.Context(), runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.close()

		if !rt.cache.Enabled() {
			logger.Info().Msg("capabilities cache disabled, nothing to invalidate")
			return nil
		}
		if invalidateAll {
			if err := rt.cache.InvalidateAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "invalidated all cached capabilities")
			return nil
		}
		for _, u := range args {
			if err := rt.cache.Invalidate(cmd.Context(), u); err != nil {
				return fmt.Errorf("invalidate %s: %w", u, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d cached document(s)\n", len(args))
		return nil
	},
}

func init() {
	invalidateCmd.Flags().BoolVar(&invalidateAll, "all", false, "drop every cached document")
	rootCmd.AddCommand(migrateCmd, deactivateCmd, invalidateCmd)
}
