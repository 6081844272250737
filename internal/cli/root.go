package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odysseus0/svgsafe/internal/config"
)

// Execute loads the configuration and runs the root command against os.Args.
func Execute() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	return NewRootCmd(cfg).Execute()
}

func NewRootCmd(cfg config.Config) *cobra.Command {
	var dbPath string
	var output string
	var logLevel string
	var noHistory bool
	var outFmt OutputFormat
	var app *App

	dbPath = cfg.DBPath
	output = string(OutputTable)
	logLevel = cfg.LogLevel

	getApp := func() *App { return app }
	getOutput := func() OutputFormat { return outFmt }

	cmd := &cobra.Command{
		Use:           "svgsafe",
		Short:         "Sanitize untrusted SVG",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			parsedFmt, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			outFmt = parsedFmt
			if !requiresApp(cmd) {
				return nil
			}
			if app != nil {
				return nil
			}
			runCfg := cfg
			runCfg.LogLevel = logLevel
			if noHistory {
				runCfg.RecordHistory = false
			}
			a, err := NewApp(runCfg, dbPath, runCfg.RecordHistory || needsStore(cmd))
			if err != nil {
				return err
			}
			app = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				_ = app.Close()
				app = nil
			}
		},
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", dbPath, "SQLite history database path")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", output, "Output format: table, json, wide")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level: debug, info, warn, error, off")
	cmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history")

	cmd.AddCommand(newSanitizeCmd(getApp, getOutput))
	cmd.AddCommand(newTextCmd(getApp, getOutput))
	cmd.AddCommand(newCheckCmd(getApp, getOutput))
	cmd.AddCommand(newGetCmd(getApp, getOutput))
	cmd.AddCommand(newPruneCmd(getApp, getOutput))
	cmd.AddCommand(newAuditCmd(getApp, getOutput))

	return cmd
}

func parseOutputFormat(raw string) (OutputFormat, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch OutputFormat(s) {
	case OutputTable, OutputJSON, OutputWide:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("invalid output format %q (expected table|json|wide)", raw)
	}
}

func requiresApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		name := c.Name()
		if name == "help" || name == "completion" {
			return false
		}
	}
	return true
}
