// Package export persists sessions to disk and renders them for review.
// The JSON snapshot is the interchange format: map keys are flattened to
// strings ("0" for feature indices, "0,1" for test point slots) so a
// snapshot loads back into the same session it came from.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

// Snapshot is the on-disk form of a session.
type Snapshot struct {
	ExportTime string                      `json:"export_time"`
	Document   DocumentInfo                `json:"document"`
	PRDText    string                      `json:"prd_text"`
	Features   []core.Feature              `json:"features"`
	TestPoints map[string][]core.TestPoint `json:"test_points"`
	TestCases  map[string][]core.TestCase  `json:"test_cases"`
}

// DocumentInfo identifies the source document of a snapshot.
type DocumentInfo struct {
	DisplayName string `json:"display_name"`
}

// NewSnapshot flattens a session into its exportable form.
func NewSnapshot(sess *core.Session) *Snapshot {
	snap := &Snapshot{
		ExportTime: time.Now().Format(time.RFC3339),
		Document:   DocumentInfo{DisplayName: sess.DocumentName},
		PRDText:    sess.Document,
		Features:   sess.Features,
		TestPoints: make(map[string][]core.TestPoint),
		TestCases:  make(map[string][]core.TestCase),
	}
	for idx, points := range sess.TestPoints {
		snap.TestPoints[strconv.Itoa(idx)] = points
	}
	for pos, cases := range sess.TestCases {
		snap.TestCases[pos.String()] = cases
	}
	return snap
}

// Session rebuilds a live session from a snapshot.
func (s *Snapshot) Session() (*core.Session, error) {
	sess := core.NewSession(s.PRDText, s.Document.DisplayName)
	sess.Features = s.Features
	for key, points := range s.TestPoints {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid test point key %q: %w", key, err)
		}
		sess.TestPoints[idx] = points
	}
	for key, cases := range s.TestCases {
		pos, err := core.ParsePosition(key)
		if err != nil {
			return nil, fmt.Errorf("invalid test case key: %w", err)
		}
		sess.TestCases[pos] = cases
	}
	return sess, nil
}

// MarshalJSONString renders the snapshot as pretty-printed JSON.
func (s *Snapshot) MarshalJSONString() (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	return string(b), nil
}

// Save writes the snapshot to path, creating parent directories as needed.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from path.
func Load(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	return &snap, nil
}

// LoadSession reads a snapshot and rebuilds the session in one step.
func LoadSession(path string) (*core.Session, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	return snap.Session()
}

// DefaultFilename derives an export filename from the document name and the
// current time. Characters outside [alnum ._-] are replaced.
func DefaultFilename(documentName string, now time.Time) string {
	if documentName == "" {
		documentName = "unknown"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, documentName)
	return fmt.Sprintf("export_%s_%s.json", cleaned, now.Format("20060102_150405"))
}

// sortedKeys returns map keys in deterministic positional order.
func sortedCaseKeys(cases map[string][]core.TestCase) []string {
	keys := make([]string, 0, len(cases))
	for k := range cases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, erri := core.ParsePosition(keys[i])
		pj, errj := core.ParsePosition(keys[j])
		if erri != nil || errj != nil {
			return keys[i] < keys[j]
		}
		if pi.Feature != pj.Feature {
			return pi.Feature < pj.Feature
		}
		return pi.TestPoint < pj.TestPoint
	})
	return keys
}
