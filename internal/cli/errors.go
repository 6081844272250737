package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/odysseus0/svgsafe/internal/rules"
	"github.com/odysseus0/svgsafe/internal/sanitize"
	"github.com/odysseus0/svgsafe/internal/store"
)

const (
	exitInternal     = 1
	exitInvalidInput = 2
	exitNotFound     = 3
	exitRejected     = 4
)

func ErrorExitCode(err error) int {
	switch errorKind(err) {
	case "":
		return 0
	case "invalid-input":
		return exitInvalidInput
	case "not-found":
		return exitNotFound
	case "rejected":
		return exitRejected
	default:
		return exitInternal
	}
}

func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error [%s]: %v", errorKind(err), err)
}

func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err))
}

func errorKind(err error) string {
	if err == nil {
		return ""
	}
	if _, ok := sanitize.ReasonOf(err); ok {
		return "rejected"
	}
	switch {
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, rules.ErrInconsistent):
		return "invalid-input"
	case errors.Is(err, store.ErrNotFound):
		return "not-found"
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid id") || strings.Contains(msg, "invalid output format") {
		return "invalid-input"
	}
	if strings.Contains(msg, "unknown command") || strings.Contains(msg, "unknown flag") || strings.Contains(msg, "accepts ") {
		return "invalid-input"
	}
	return "internal"
}
