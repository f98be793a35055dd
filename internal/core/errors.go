package core

import (
	"fmt"
	"strings"
)

// rawPreviewLimit bounds how much raw model output a StageError carries.
const rawPreviewLimit = 500

// SchemaViolationError reports a reply that parsed as JSON but does not have
// the shape a stage requires.
type SchemaViolationError struct {
	Key    string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Key, e.Reason)
}

// StageError wraps any failure inside one generation stage: extraction,
// schema validation, or the transport itself. Raw holds the start of the
// model's reply so the operator can see what came back.
type StageError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Surface renders the operator-facing failure report, raw output included.
func (e *StageError) Surface() string {
	var b strings.Builder
	b.WriteString("⚠️ Parse failed\n\n")
	fmt.Fprintf(&b, "**Error:** %v\n\n", e.Err)
	b.WriteString("**Raw output:**\n```\n")
	b.WriteString(e.Raw)
	b.WriteString("\n```")
	return b.String()
}

func newStageError(stage Stage, raw string, err error) *StageError {
	runes := []rune(raw)
	if len(runes) > rawPreviewLimit {
		raw = string(runes[:rawPreviewLimit]) + "..."
	}
	return &StageError{Stage: stage, Raw: raw, Err: err}
}
