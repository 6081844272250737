package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/odysseus0/svgsafe/internal/rules"
	"github.com/odysseus0/svgsafe/internal/sanitize"
	"github.com/odysseus0/svgsafe/internal/store"
)

func TestParseRunID(t *testing.T) {
	id, err := parseRunID(" 42 ")
	if err != nil {
		t.Fatalf("parseRunID: %v", err)
	}
	if id != 42 {
		t.Fatalf("unexpected id: %d", id)
	}
	for _, bad := range []string{"0", "-3", "abc"} {
		if _, err := parseRunID(bad); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("parseRunID(%q) = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int]string{
		0:             "0 B",
		1023:          "1023 B",
		1536:          "1.5 KiB",
		5 * (1 << 20): "5.0 MiB",
	}
	for n, want := range tests {
		if got := formatSize(n); got != want {
			t.Fatalf("formatSize(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine(" dial tcp:\r\nconnection refused\n"); got != "dial tcp: connection refused" {
		t.Fatalf("oneLine = %q", got)
	}
}

func TestFallback(t *testing.T) {
	if got := fallback("value", "x"); got != "value" {
		t.Fatalf("fallback non-empty: %q", got)
	}
	if got := fallback("   ", "x"); got != "x" {
		t.Fatalf("fallback empty: %q", got)
	}
}

func TestErrorExitCodeAndFormat(t *testing.T) {
	rejected := &sanitize.RejectError{Reason: sanitize.ReasonUnparseable, Err: errors.New("bad token")}
	tests := []struct {
		err  error
		code int
		kind string
	}{
		{nil, 0, ""},
		{fmt.Errorf("x: %w", store.ErrInvalidInput), exitInvalidInput, "invalid-input"},
		{fmt.Errorf("load rules: %w", rules.ErrInconsistent), exitInvalidInput, "invalid-input"},
		{fmt.Errorf("get run: %w", store.ErrNotFound), exitNotFound, "not-found"},
		{fmt.Errorf("sanitize: %w", rejected), exitRejected, "rejected"},
		{errors.New("disk on fire"), exitInternal, "internal"},
	}
	for _, tt := range tests {
		if got := ErrorExitCode(tt.err); got != tt.code {
			t.Fatalf("ErrorExitCode(%v) = %d, want %d", tt.err, got, tt.code)
		}
		if tt.err == nil {
			continue
		}
		want := "Error [" + tt.kind + "]: " + tt.err.Error()
		if got := FormatError(tt.err); got != want {
			t.Fatalf("FormatError = %q, want %q", got, want)
		}
	}
}
