package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/odysseus0/svgsafe/internal/model"
	"github.com/odysseus0/svgsafe/internal/opml"
	"github.com/odysseus0/svgsafe/internal/store"
)

func newAuditCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit SVG found in external sources",
	}
	cmd.AddCommand(newAuditFeedCmd(getApp, getOutput))
	cmd.AddCommand(newAuditOPMLCmd(getApp, getOutput))
	return cmd
}

func newAuditFeedCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "feed <url>",
		Short: "Sanitize every SVG carried by a feed's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			rep, err := auditFeed(cmd, app, args[0])
			if err != nil {
				return err
			}

			switch getOutput() {
			case OutputJSON:
				return writeJSON(cmd.OutOrStdout(), rep)
			case OutputWide:
				writeAuditTable(cmd.OutOrStdout(), rep, true)
			default:
				writeAuditTable(cmd.OutOrStdout(), rep, false)
			}
			return nil
		},
	}
}

func newAuditOPMLCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "opml <file>",
		Short: "Audit every feed listed in an OPML subscription file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			urls, err := opml.ReadFile(args[0])
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("read opml: %w", store.ErrNotFound)
				}
				return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
			}

			reports := make([]AuditReport, 0, len(urls))
			for _, feedURL := range urls {
				rep, err := auditFeed(cmd, app, feedURL)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", feedURL, err)
					continue
				}
				reports = append(reports, rep)
			}

			if getOutput() == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), reports)
			}
			for i, rep := range reports {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				writeAuditTable(cmd.OutOrStdout(), rep, getOutput() == OutputWide)
			}
			return nil
		},
	}
}

// auditFeed audits one feed, reports progress on stderr and records every
// judged item in the history.
func auditFeed(cmd *cobra.Command, app *App, rawURL string) (AuditReport, error) {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	rep, err := app.fetcher.AuditFeed(ctx, rawURL, func(done, total int, item AuditItem) {
		switch {
		case item.Error != "":
			fmt.Fprintf(stderr, "[%d/%d] %s -> error: %s\n", done, total, item.Source, item.Error)
		case item.Reason != "":
			fmt.Fprintf(stderr, "[%d/%d] %s -> %s (%s)\n", done, total, item.Source, item.Outcome, item.Reason)
		default:
			fmt.Fprintf(stderr, "[%d/%d] %s -> %s\n", done, total, item.Source, item.Outcome)
		}
	})
	if err != nil {
		return AuditReport{}, fmt.Errorf("audit feed: %w", err)
	}
	if rep.FeedURL != rawURL {
		fmt.Fprintf(stderr, "Discovered feed URL: %s\n", rep.FeedURL)
	}
	for _, warning := range rep.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	for _, item := range rep.Items {
		if item.Error != "" {
			continue
		}
		app.record(ctx, store.RecordRunInput{
			Mode:       model.ModeAudit,
			Source:     item.Source,
			Input:      item.Data,
			Outcome:    item.Outcome,
			Reason:     item.Reason,
			Signatures: item.Signatures,
		})
	}
	return rep, nil
}
