package model

import "time"

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputWide  OutputFormat = "wide"
)

const (
	ModeDocument = "document"
	ModeText     = "text"
	ModeCheck    = "check"
	ModeAudit    = "audit"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeSafe     = "safe"
	OutcomeUnsafe   = "unsafe"
)

type Run struct {
	ID           int64     `json:"id"`
	Mode         string    `json:"mode"`
	Source       string    `json:"source"`
	InputSHA256  string    `json:"input_sha256"`
	InputBytes   int       `json:"input_bytes"`
	OutputSHA256 string    `json:"output_sha256,omitempty"`
	OutputBytes  int       `json:"output_bytes"`
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Signatures   []string  `json:"signatures,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type RecordRunInput struct {
	Mode       string
	Source     string
	Input      []byte
	Output     string
	Outcome    string
	Reason     string
	Signatures []string
}

type RunListOptions struct {
	Outcome string
	Mode    string
	Limit   int
}

type SignatureCount struct {
	Signature string `json:"signature"`
	Count     int    `json:"count"`
}

type Stats struct {
	Runs          int              `json:"runs"`
	Accepted      int              `json:"accepted"`
	Rejected      int              `json:"rejected"`
	Safe          int              `json:"safe"`
	Unsafe        int              `json:"unsafe"`
	ByReason      map[string]int   `json:"by_reason"`
	TopSignatures []SignatureCount `json:"top_signatures"`
}

// AuditItem is one SVG found while auditing a feed.
type AuditItem struct {
	EntryTitle string   `json:"entry_title,omitempty"`
	EntryURL   string   `json:"entry_url,omitempty"`
	Kind       string   `json:"kind"`
	Source     string   `json:"source"`
	Bytes      int      `json:"bytes"`
	Outcome    string   `json:"outcome"`
	Reason     string   `json:"reason,omitempty"`
	Signatures []string `json:"signatures,omitempty"`
	Error      string   `json:"error,omitempty"`

	// Data is the audited document, kept for the history record.
	Data []byte `json:"-"`
}

type AuditEntry struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Summary string `json:"summary,omitempty"`
	SVGs    int    `json:"svgs"`
}

type AuditReport struct {
	FeedURL   string       `json:"feed_url"`
	FeedTitle string       `json:"feed_title,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Entries   []AuditEntry `json:"entries"`
	Items     []AuditItem  `json:"items"`
	Warnings  []string     `json:"warnings,omitempty"`
}
