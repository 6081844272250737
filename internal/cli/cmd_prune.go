package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odysseus0/svgsafe/internal/store"
)

func newPruneCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:         "prune",
		Short:       "Remove history older than N days",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNeedsStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireStore(getApp)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = app.cfg.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("%w: --days must be > 0", store.ErrInvalidInput)
			}
			n, err := app.store.PruneRunsOlderThan(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("prune runs: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), PruneResponse{Days: days, Removed: n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s) older than %d day(s)\n", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Age in days (defaults to retention_days)")
	return cmd
}
