package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odysseus0/svgsafe/internal/model"
	"github.com/odysseus0/svgsafe/internal/sanitize"
	"github.com/odysseus0/svgsafe/internal/store"
)

func newSanitizeCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var fromURL string
	var outPath string

	cmd := &cobra.Command{
		Use:   "sanitize [file|-]",
		Short: "Sanitize an SVG document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var data []byte
			var source string
			if strings.TrimSpace(fromURL) != "" {
				if len(args) > 0 {
					return fmt.Errorf("%w: pass a file or --url, not both", store.ErrInvalidInput)
				}
				data, source, err = app.fetcher.FetchDocument(ctx, fromURL)
				if err != nil {
					return fmt.Errorf("fetch %s: %w", fromURL, err)
				}
			} else {
				data, source, err = readInput(cmd, args, app.engine.Limits().MaxDocumentBytes)
				if err != nil {
					return err
				}
			}

			out, sanErr := app.engine.SanitizeDocument(data)
			resp := newSanitizeResponse(model.ModeDocument, source, len(data), out, sanErr)
			app.record(ctx, runInput(resp, data, out))
			if sanErr != nil {
				if getOutput() == OutputJSON {
					if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
						return err
					}
				}
				return sanErr
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(out+"\n"), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				resp.OutPath = outPath
			}
			switch {
			case getOutput() == OutputJSON:
				return writeJSON(cmd.OutOrStdout(), resp)
			case outPath != "":
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(out), outPath)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fromURL, "url", "", "Fetch the document from a URL")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the sanitized document to a file")
	return cmd
}

func newTextCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	return &cobra.Command{
		Use:   "text <value>",
		Short: "Sanitize a short value that may or may not be SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			value := args[0]

			out, sanErr := app.engine.SanitizeText(value)
			resp := newSanitizeResponse(model.ModeText, "-", len(value), out, sanErr)
			app.record(cmd.Context(), runInput(resp, []byte(value), out))
			if getOutput() == OutputJSON {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
				return sanErr
			}
			if sanErr != nil {
				return sanErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCheckCmd(getApp func() *App, getOutput func() OutputFormat) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [file|-]",
		Short: "Report whether a document matches any dangerous-content signature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(getApp)
			if err != nil {
				return err
			}
			data, source, err := readInput(cmd, args, app.engine.Limits().MaxDocumentBytes)
			if err != nil {
				return err
			}

			resp := CheckResponse{
				Source:     source,
				Strict:     strict,
				Outcome:    model.OutcomeSafe,
				Signatures: app.engine.Inspect(string(data)),
			}
			var checkErr error
			if strict {
				checkErr = app.engine.ValidateDocument(data)
			} else if len(resp.Signatures) > 0 {
				checkErr = &sanitize.RejectError{
					Reason:    sanitize.ReasonContentSignatureMatch,
					Signature: resp.Signatures[0],
				}
			}
			if checkErr != nil {
				resp.Outcome = model.OutcomeUnsafe
				if reason, ok := sanitize.ReasonOf(checkErr); ok {
					resp.Reason = string(reason)
				}
			}

			app.record(cmd.Context(), store.RecordRunInput{
				Mode:       model.ModeCheck,
				Source:     source,
				Input:      data,
				Outcome:    resp.Outcome,
				Reason:     resp.Reason,
				Signatures: resp.Signatures,
			})

			if getOutput() == OutputJSON {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else {
				writeCheckResult(cmd.OutOrStdout(), resp)
			}
			return checkErr
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Also require the document to parse")
	return cmd
}

func newSanitizeResponse(mode, source string, inputBytes int, out string, err error) SanitizeResponse {
	resp := SanitizeResponse{
		Mode:       mode,
		Source:     source,
		InputBytes: inputBytes,
		Outcome:    model.OutcomeAccepted,
		Output:     out,
	}
	if err != nil {
		resp.Outcome = model.OutcomeRejected
		resp.Output = ""
		var rej *sanitize.RejectError
		if errors.As(err, &rej) {
			resp.Reason = string(rej.Reason)
			resp.Signature = rej.Signature
		}
	}
	return resp
}

func runInput(resp SanitizeResponse, input []byte, out string) store.RecordRunInput {
	in := store.RecordRunInput{
		Mode:    resp.Mode,
		Source:  resp.Source,
		Input:   input,
		Outcome: resp.Outcome,
		Reason:  resp.Reason,
	}
	if resp.Outcome == model.OutcomeAccepted {
		in.Output = out
	}
	if resp.Signature != "" {
		in.Signatures = []string{resp.Signature}
	}
	return in
}
