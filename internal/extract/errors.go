package extract

import "fmt"

// previewLimit bounds the amount of raw text carried in an ExtractionError.
const previewLimit = 200

// EmptyInputError reports that the input text was empty or whitespace-only.
// It is returned before any extraction strategy runs.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "input text is empty"
}

// ExtractionError reports that no strategy produced valid JSON. Preview holds
// the first part of the offending text so the operator can see what the model
// actually said without the error message growing unbounded.
type ExtractionError struct {
	Preview string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no valid JSON found in text starting with: %s", e.Preview)
}

// Preview truncates s to previewLimit characters, appending an ellipsis when
// anything was cut.
func makePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "..."
}
