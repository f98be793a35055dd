package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFencedPayloadWithProse(t *testing.T) {
	input := "Sure! ```json\n{\"features\":[{\"id\":1,\"name\":\"Login\",\"description\":\"Users can log in\"}]}\n``` Hope that helps!"

	v, err := Parse(input)
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok, "payload should be a mapping")
	features, ok := m["features"].([]any)
	require.True(t, ok)
	require.Len(t, features, 1)

	feature := features[0].(map[string]any)
	assert.Equal(t, float64(1), feature["id"])
	assert.Equal(t, "Login", feature["name"])
	assert.Equal(t, "Users can log in", feature["description"])
}

func TestParseUsesFirstValidFence(t *testing.T) {
	input := "```json\n{\"answer\": 1}\n```\nAnd for comparison:\n```json\n{\"answer\": 2}\n```"

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"answer": float64(1)}, v)
}

func TestParseSkipsInvalidFences(t *testing.T) {
	input := "```json\n{broken\n```\n```json\n{\"ok\": true}\n```"

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, v)
}

func TestParseBareFence(t *testing.T) {
	input := "Here you go:\n```\n[1, 2, 3]\n```"

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, v)
}

func TestParseEmbeddedObjectWithoutFences(t *testing.T) {
	input := "The result is {\"name\": \"checkout\", \"count\": 3} as requested."

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "checkout", "count": float64(3)}, v)
}

func TestParseTrailingComma(t *testing.T) {
	input := "{\"test_points\": [ {\"id\":1,\"name\":\"Valid login\"}, ]}"

	v, err := Parse(input)
	require.NoError(t, err)

	m := v.(map[string]any)
	points := m["test_points"].([]any)
	require.Len(t, points, 1)
	assert.Equal(t, "Valid login", points[0].(map[string]any)["name"])
}

func TestParseStripsComments(t *testing.T) {
	input := `{
  "id": 1, // the identifier
  /* block comment */
  "name": "Search"
}`

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "Search"}, v)
}

func TestParseTruncatedReply(t *testing.T) {
	// A complete object followed by a second reply that was cut off. The
	// stray brace in the tail drags the brace span past the valid object, so
	// only line-prefix recovery finds the boundary.
	input := `{
"test_points": [
{"id": 1, "name": "Valid login"}
]
}
And a second attempt: {"test_points": [{"id": 2, "name": "Wrong}`

	v, err := Parse(input)
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	points := m["test_points"].([]any)
	require.Len(t, points, 1)
	assert.Equal(t, "Valid login", points[0].(map[string]any)["name"])
}

func TestParseTruncationReturnsLongestParseablePrefix(t *testing.T) {
	// Two objects back to back: the two-line prefix is not valid JSON, so
	// recovery settles on the longest prefix that is - the first object.
	input := "{\"id\": 1}\n{\"id\": 2}"

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": float64(1)}, v)
}

func TestParseTruncationWithoutObjectBoundaryFails(t *testing.T) {
	// Cut before any closing brace: no }-terminated prefix exists, so every
	// strategy is exhausted.
	input := `{
"test_points": [
{"id": 1, "name": "Valid`

	_, err := Parse(input)
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
}

func TestParseArrayFallback(t *testing.T) {
	input := "items follow [\"a\", \"b\"] end"

	v, err := Parse(input)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		_, err := Parse(input)
		var emptyErr *EmptyInputError
		require.ErrorAs(t, err, &emptyErr, "input %q", input)
	}
}

func TestParseNoJSONAtAll(t *testing.T) {
	_, err := Parse("not json at all")

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Contains(t, extractErr.Preview, "not json at all")
}

func TestExtractionErrorPreviewIsBounded(t *testing.T) {
	_, err := Parse(strings.Repeat("x", 5000))

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.LessOrEqual(t, len(extractErr.Preview), previewLimit+len("..."))
}

func TestParseScalarIsNotAPayload(t *testing.T) {
	_, err := Parse("```json\n42\n```")

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
}

func TestExtractReturnsStrictlyParseableBytes(t *testing.T) {
	raw, err := Extract("noise {\"a\": [1, 2,]} more noise")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": [1, 2]}`, string(raw))
}
