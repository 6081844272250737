package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get rules, history and stats",
	}

	cmd.AddCommand(newGetRulesCmd(getApp, getOutput))
	cmd.AddCommand(newGetRunsCmd(getApp, getOutput))
	cmd.AddCommand(newGetRunCmd(getApp, getOutput))
	cmd.AddCommand(newGetStatsCmd(getApp, getOutput))
	return cmd
}

func newGetRulesCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the active rule table and limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			resp := RulesResponse{
				Rules:                  app.engine.Rules().Spec(),
				Limits:                 app.engine.Limits(),
				RemoveRemoteReferences: app.engine.RemovesRemoteReferences(),
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			writeRulesTable(cmd.OutOrStdout(), resp, getOutput() == OutputWide)
			return nil
		},
	}
}

func newGetRunsCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var outcome string
	var mode string
	var limit int

	cmd := &cobra.Command{
		Use:         "runs",
		Short:       "List recorded runs",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNeedsStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireStore(getApp)
			if err != nil {
				return err
			}
			runs, err := app.store.ListRuns(cmd.Context(), RunListOptions{
				Outcome: outcome,
				Mode:    mode,
				Limit:   limit,
			})
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			switch getOutput() {
			case OutputJSON:
				return writeJSON(cmd.OutOrStdout(), runs)
			case OutputWide:
				writeRunsTable(cmd.OutOrStdout(), runs, true)
			default:
				writeRunsTable(cmd.OutOrStdout(), runs, false)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "Filter by outcome: accepted, rejected, safe, unsafe")
	cmd.Flags().StringVar(&mode, "mode", "", "Filter by mode: document, text, check, audit")
	cmd.Flags().IntVar(&limit, "limit", 50, "Result limit")
	return cmd
}

func newGetRunCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:         "run <id>",
		Short:       "Get one recorded run",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationNeedsStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireStore(getApp)
			if err != nil {
				return err
			}
			id, err := parseRunID(args[0])
			if err != nil {
				return err
			}
			run, err := app.store.GetRun(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), run)
			}
			writeRunDetail(cmd.OutOrStdout(), run)
			return nil
		},
	}
}

func newGetStatsCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:         "stats",
		Short:       "Get aggregate history stats",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNeedsStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireStore(getApp)
			if err != nil {
				return err
			}
			stats, err := app.store.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}
			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			writeStatsTable(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}
