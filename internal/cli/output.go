package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/odysseus0/svgsafe/internal/rules"
)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCheckResult(out io.Writer, resp CheckResponse) {
	line := resp.Outcome
	if resp.Reason != "" {
		line += " (" + resp.Reason + ")"
	}
	if len(resp.Signatures) > 0 {
		line += ": " + strings.Join(resp.Signatures, ", ")
	}
	fmt.Fprintln(out, line)
}

func writeRulesTable(out io.Writer, resp RulesResponse, wide bool) {
	width := 90
	if wide {
		width = 0
	}
	spec := resp.Rules

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tCOUNT\tVALUES")
	row := func(name string, values []string) {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(values), compactText(strings.Join(values, " "), width))
	}
	row("allowed_tags", spec.AllowedTags)
	row("allowed_attributes", spec.AllowedAttributes)
	row("dangerous_tags", spec.DangerousTags)
	row("dangerous_attribute_names", spec.DangerousAttributeNamePatterns)
	row("dangerous_attribute_values", spec.DangerousAttributeValuePatterns)
	row("content_signatures", signatureIDs(spec.DangerousContentPatterns))
	row("remote_signatures", signatureIDs(spec.RemoteReferencePatterns))
	_ = tw.Flush()

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LIMIT\tVALUE")
	fmt.Fprintf(tw, "max_document_bytes\t%d\n", resp.Limits.MaxDocumentBytes)
	fmt.Fprintf(tw, "max_text_length\t%d\n", resp.Limits.MaxTextLength)
	fmt.Fprintf(tw, "max_depth\t%d\n", resp.Limits.MaxDepth)
	fmt.Fprintf(tw, "remove_remote_references\t%t\n", resp.RemoveRemoteReferences)
	_ = tw.Flush()
}

func writeRunsTable(out io.Writer, runs []Run, wide bool) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if wide {
		fmt.Fprintln(tw, "ID\tMODE\tOUTCOME\tREASON\tSIGNATURES\tIN\tOUT\tINPUT_SHA256\tCREATED\tSOURCE")
		for _, r := range runs {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				r.ID,
				r.Mode,
				r.Outcome,
				fallback(r.Reason, "-"),
				fallback(strings.Join(r.Signatures, ","), "-"),
				r.InputBytes,
				r.OutputBytes,
				r.InputSHA256,
				formatTime(r.CreatedAt),
				r.Source,
			)
		}
	} else {
		fmt.Fprintln(tw, "ID\tMODE\tOUTCOME\tREASON\tSOURCE\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(
				tw,
				"%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID,
				r.Mode,
				r.Outcome,
				fallback(r.Reason, "-"),
				compactText(r.Source, 48),
				humanAgo(r.CreatedAt),
			)
		}
	}
	_ = tw.Flush()
}

func writeRunDetail(out io.Writer, r Run) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%d\n", r.ID)
	fmt.Fprintf(tw, "mode\t%s\n", r.Mode)
	fmt.Fprintf(tw, "source\t%s\n", r.Source)
	fmt.Fprintf(tw, "outcome\t%s\n", r.Outcome)
	fmt.Fprintf(tw, "reason\t%s\n", fallback(r.Reason, "-"))
	fmt.Fprintf(tw, "signatures\t%s\n", fallback(strings.Join(r.Signatures, ", "), "-"))
	fmt.Fprintf(tw, "input\t%s, sha256 %s\n", formatSize(r.InputBytes), shortDigest(r.InputSHA256))
	if r.OutputSHA256 != "" {
		fmt.Fprintf(tw, "output\t%s, sha256 %s\n", formatSize(r.OutputBytes), shortDigest(r.OutputSHA256))
	}
	fmt.Fprintf(tw, "created\t%s\n", formatTime(r.CreatedAt))
	_ = tw.Flush()
}

func writeStatsTable(out io.Writer, st Stats) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tVALUE")
	fmt.Fprintf(tw, "runs\t%d\n", st.Runs)
	fmt.Fprintf(tw, "accepted\t%d\n", st.Accepted)
	fmt.Fprintf(tw, "rejected\t%d\n", st.Rejected)
	fmt.Fprintf(tw, "safe\t%d\n", st.Safe)
	fmt.Fprintf(tw, "unsafe\t%d\n", st.Unsafe)

	reasons := make([]string, 0, len(st.ByReason))
	for reason := range st.ByReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(tw, "reason:%s\t%d\n", reason, st.ByReason[reason])
	}
	for _, sc := range st.TopSignatures {
		fmt.Fprintf(tw, "signature:%s\t%d\n", sc.Signature, sc.Count)
	}
	_ = tw.Flush()
}

func writeAuditTable(out io.Writer, rep AuditReport, wide bool) {
	fmt.Fprintf(out, "# %s\n", fallback(rep.FeedTitle, rep.FeedURL))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if wide {
		fmt.Fprintln(tw, "KIND\tOUTCOME\tREASON\tBYTES\tSIGNATURES\tENTRY\tSOURCE\tERROR")
		for _, it := range rep.Items {
			fmt.Fprintf(
				tw,
				"%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				it.Kind,
				fallback(it.Outcome, "-"),
				fallback(it.Reason, "-"),
				it.Bytes,
				fallback(strings.Join(it.Signatures, ","), "-"),
				compactText(fallback(it.EntryTitle, it.EntryURL), 40),
				it.Source,
				oneLine(it.Error),
			)
		}
	} else {
		fmt.Fprintln(tw, "KIND\tOUTCOME\tREASON\tSIGNATURES\tSOURCE")
		for _, it := range rep.Items {
			outcome := fallback(it.Outcome, "error")
			fmt.Fprintf(
				tw,
				"%s\t%s\t%s\t%s\t%s\n",
				it.Kind,
				outcome,
				fallback(it.Reason, "-"),
				compactText(fallback(strings.Join(it.Signatures, ","), "-"), 40),
				compactText(it.Source, 64),
			)
		}
	}
	_ = tw.Flush()
}

func signatureIDs(specs []rules.SignatureSpec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.ID)
	}
	return out
}
