// Package extract recovers structured JSON payloads from free-form LLM
// replies. Models asked to "reply in JSON" wrap the payload in prose,
// markdown fences, comments, or get cut off mid-object; Extract walks an
// ordered chain of recovery strategies and returns the first payload that
// parses strictly. Higher-confidence extractions are attempted before
// riskier heuristics.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	taggedFenceRe = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```")
	bareFenceRe   = regexp.MustCompile("```\\s*([\\s\\S]*?)\\s*```")

	lineCommentRe   = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// attempt is a single recovery strategy. It returns the extracted payload and
// whether extraction succeeded. The chain stops at the first success; no
// strategy panics or returns an error.
type attempt func(text string) (json.RawMessage, bool)

// strategies is the ordered recovery chain.
var strategies = []attempt{
	fromTaggedFences,
	fromBareFences,
	fromBraceSpan,
	fromRepairedBraceSpan,
	fromTruncatedBraceSpan,
	fromBracketSpan,
}

// Extract returns the first syntactically valid JSON object or array found in
// text. The returned bytes always pass a strict json.Unmarshal, so callers
// can decode them into typed records directly. It fails with *EmptyInputError
// for blank input and *ExtractionError when every strategy is exhausted.
func Extract(text string) (json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &EmptyInputError{}
	}
	for _, strategy := range strategies {
		if raw, ok := strategy(text); ok {
			return raw, nil
		}
	}
	return nil, &ExtractionError{Preview: makePreview(text)}
}

// Parse extracts and decodes the payload into a generic value: a
// map[string]any for objects or a []any for arrays.
func Parse(text string) (any, error) {
	raw, err := Extract(text)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Extract only returns strictly parseable bytes.
		return nil, &ExtractionError{Preview: makePreview(text)}
	}
	return v, nil
}

// strictParse attempts a no-tolerance decode of s. Scalars are rejected: a
// payload is always an object or an array.
func strictParse(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return json.RawMessage(s), true
	}
	return nil, false
}

// fromTaggedFences tries every ```json fenced block in order of appearance.
func fromTaggedFences(text string) (json.RawMessage, bool) {
	for _, m := range taggedFenceRe.FindAllStringSubmatch(text, -1) {
		if raw, ok := strictParse(m[1]); ok {
			return raw, true
		}
	}
	return nil, false
}

// fromBareFences tries untagged fenced blocks whose content looks like JSON.
func fromBareFences(text string) (json.RawMessage, bool) {
	for _, m := range bareFenceRe.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(m[1])
		if content == "" || (content[0] != '{' && content[0] != '[') {
			continue
		}
		if raw, ok := strictParse(content); ok {
			return raw, true
		}
	}
	return nil, false
}

// braceSpan slices text from the first '{' to the last '}'.
func braceSpan(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	return text[first : last+1], true
}

func fromBraceSpan(text string) (json.RawMessage, bool) {
	span, ok := braceSpan(text)
	if !ok {
		return nil, false
	}
	return strictParse(span)
}

// fromRepairedBraceSpan re-attempts the brace span after stripping JavaScript
// style comments and trailing commas before a closing brace or bracket.
func fromRepairedBraceSpan(text string) (json.RawMessage, bool) {
	span, ok := braceSpan(text)
	if !ok {
		return nil, false
	}
	repaired := lineCommentRe.ReplaceAllString(span, "")
	repaired = blockCommentRe.ReplaceAllString(repaired, "")
	repaired = trailingCommaRe.ReplaceAllString(repaired, "$1")
	return strictParse(repaired)
}

// fromTruncatedBraceSpan recovers a usable partial payload from a reply that
// was cut off mid-stream. It walks line prefixes of the brace span from
// longest to shortest and returns the first prefix that ends at an object
// boundary and parses. A well-formed object earlier in the text beats no
// result at all.
func fromTruncatedBraceSpan(text string) (json.RawMessage, bool) {
	span, ok := braceSpan(text)
	if !ok {
		return nil, false
	}
	lines := strings.Split(span, "\n")
	for i := len(lines); i >= 1; i-- {
		prefix := strings.Join(lines[:i], "\n")
		if !strings.HasSuffix(strings.TrimSpace(prefix), "}") {
			continue
		}
		if raw, ok := strictParse(prefix); ok {
			return raw, true
		}
	}
	return nil, false
}

// fromBracketSpan is the array-form fallback: first '[' to last ']'.
func fromBracketSpan(text string) (json.RawMessage, bool) {
	first := strings.Index(text, "[")
	last := strings.LastIndex(text, "]")
	if first == -1 || last == -1 || last <= first {
		return nil, false
	}
	return strictParse(text[first : last+1])
}
