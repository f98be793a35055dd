package export

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

func sampleSession() *core.Session {
	sess := core.NewSession("PRD body", "shop_prd.md")
	sess.SetFeatures([]core.Feature{
		{ID: 1, Name: "Login", Description: "Users can log in"},
		{ID: 2, Name: "Search", Description: "Users can search"},
	})
	sess.SetTestPoints(0, []core.TestPoint{
		{ID: 1, Name: "Valid login", Type: "functional", Priority: "High"},
		{ID: 2, Name: "Invalid password", Type: "security", Priority: "Medium"},
	})
	sess.SetTestCases(core.Position{Feature: 0, TestPoint: 1}, []core.TestCase{{
		CaseID: "TC-001", Title: "Reject wrong password", Priority: "High",
		TestSteps: []core.TestStep{
			{Step: 1, Action: "Submit wrong password", Expected: "Error shown"},
		},
		TestData: "user / wrong", ExpectedResult: "No session",
	}})
	return sess
}

func TestSnapshotKeysAreStrings(t *testing.T) {
	snap := NewSnapshot(sampleSession())

	out, err := snap.MarshalJSONString()
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	var points map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["test_points"], &points))
	assert.Contains(t, points, "0")

	var cases map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["test_cases"], &cases))
	assert.Contains(t, cases, "0,1")

	assert.Contains(t, out, `"prd_text": "PRD body"`)
}

func TestSnapshotRoundTrip(t *testing.T) {
	sess := sampleSession()
	path := filepath.Join(t.TempDir(), "exports", "session.json")

	require.NoError(t, NewSnapshot(sess).Save(path))

	loaded, err := LoadSession(path)
	require.NoError(t, err)

	assert.Equal(t, sess.Document, loaded.Document)
	assert.Equal(t, sess.DocumentName, loaded.DocumentName)
	assert.Equal(t, sess.Features, loaded.Features)
	assert.Equal(t, sess.TestPoints, loaded.TestPoints)
	assert.Equal(t, sess.TestCases, loaded.TestCases)
}

func TestLoadRejectsBadKeys(t *testing.T) {
	snap := &Snapshot{
		TestCases: map[string][]core.TestCase{"not-a-position": {}},
	}
	_, err := snap.Session()
	require.Error(t, err)
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2026, 8, 25, 14, 30, 5, 0, time.UTC)

	assert.Equal(t, "export_shop_prd.md_20260825_143005.json", DefaultFilename("shop_prd.md", now))
	assert.Equal(t, "export_my_doc_v2__20260825_143005.json", DefaultFilename("my doc/v2!", now))
	assert.Equal(t, "export_unknown_20260825_143005.json", DefaultFilename("", now))
}

func TestWriteCSV(t *testing.T) {
	snap := NewSnapshot(sampleSession())

	var buf strings.Builder
	require.NoError(t, snap.WriteCSV(&buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, csvHeader, records[0])
	row := records[1]
	assert.Equal(t, "Login", row[0])
	assert.Equal(t, "Invalid password", row[1])
	assert.Equal(t, "TC-001", row[2])
	assert.Contains(t, row[6], "1. Submit wrong password => Error shown")
}

func TestVisualize(t *testing.T) {
	out := NewSnapshot(sampleSession()).Visualize()

	assert.Contains(t, out, "## 📄 Document: shop_prd.md")
	assert.Contains(t, out, "| Features | 2 |")
	assert.Contains(t, out, "| Test Points | 2 |")
	assert.Contains(t, out, "| Test Cases | 1 |")
	assert.Contains(t, out, "### 1. Login")
	assert.Contains(t, out, "*No test points generated*") // feature 2 has none
	assert.Contains(t, out, "### Feature: Login > Test Point: Invalid password")
	assert.Contains(t, out, "#### TC-001: Reject wrong password")
}
