package sanitize

import (
	"errors"
	"fmt"
)

// Reason is why an input was rejected.
type Reason string

const (
	ReasonOversized             Reason = "oversized"
	ReasonUnparseable           Reason = "unparseable"
	ReasonStructurallyUnsafe    Reason = "structurally_unsafe"
	ReasonContentSignatureMatch Reason = "content_signature_match"
)

var (
	ErrOversizedInput        = errors.New("input exceeds size limit")
	ErrUnparseableMarkup     = errors.New("markup could not be parsed")
	ErrStructurallyUnsafe    = errors.New("no safe svg root element")
	ErrContentSignatureMatch = errors.New("dangerous content detected")
)

var reasonErrors = map[Reason]error{
	ReasonOversized:             ErrOversizedInput,
	ReasonUnparseable:           ErrUnparseableMarkup,
	ReasonStructurallyUnsafe:    ErrStructurallyUnsafe,
	ReasonContentSignatureMatch: ErrContentSignatureMatch,
}

// RejectError is returned for every rejected input. It matches the sentinel
// for its Reason under errors.Is.
type RejectError struct {
	Reason Reason
	// Signature is the id of the first matching content signature, set only
	// for ReasonContentSignatureMatch.
	Signature string
	Err       error
}

func (e *RejectError) Error() string {
	msg := reasonErrors[e.Reason].Error()
	if e.Signature != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Signature)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

func (e *RejectError) Is(target error) bool {
	return reasonErrors[e.Reason] == target
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

func reject(reason Reason, err error) *RejectError {
	return &RejectError{Reason: reason, Err: err}
}

func signatureMatch(id string) *RejectError {
	return &RejectError{Reason: ReasonContentSignatureMatch, Signature: id}
}
