package quiz

import (
	"errors"
	"fmt"
	"strings"
)

var ErrQuizNotFound = errors.New("quiz not found")
var ErrQuestionNotFound = errors.New("question not found")
var ErrOptionNotFound = errors.New("option not found")

// FieldError pins a validation failure to a payload path, e.g.
// "options[2].match_id".
type FieldError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ValidationError is a payload failing the structural rules of its question
// type. Recoverable: the caller resubmits a corrected payload. Nothing was
// applied.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(path, reason string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Reason: reason})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ReferenceError is a premise match_id that does not resolve to any response
// of the same question, either as submitted or after temp-id resolution.
// Fatal for the whole edit, never a per-option skip.
type ReferenceError struct {
	Path string
	Ref  string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: match reference %q does not resolve to a response of this question", e.Path, e.Ref)
}

// InvariantViolationError is the post-resolution recheck failing. It always
// aborts the transaction and is logged apart from ordinary validation
// failures: it means a temp-id collision or stale client state slipped past
// the earlier checks.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return "reconciliation invariant violated: " + e.Detail
}

// PersistenceError wraps a gateway failure. The transaction was rolled back;
// prior state is untouched.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence: " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
