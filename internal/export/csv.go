package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

var csvHeader = []string{
	"feature", "test_point", "case_id", "title", "priority",
	"precondition", "test_steps", "test_data", "expected_result", "postcondition",
}

// WriteCSV writes every test case in the snapshot as one CSV row, ordered by
// position. Steps are flattened into a single numbered cell.
func (s *Snapshot) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, key := range sortedCaseKeys(s.TestCases) {
		pos, err := core.ParsePosition(key)
		if err != nil {
			return fmt.Errorf("invalid test case key: %w", err)
		}
		featureName := "?"
		if pos.Feature >= 0 && pos.Feature < len(s.Features) {
			featureName = s.Features[pos.Feature].Name
		}
		pointName := "?"
		if points, ok := s.TestPoints[fmt.Sprint(pos.Feature)]; ok && pos.TestPoint >= 0 && pos.TestPoint < len(points) {
			pointName = points[pos.TestPoint].Name
		}

		for _, tc := range s.TestCases[key] {
			row := []string{
				featureName,
				pointName,
				tc.CaseID,
				tc.Title,
				tc.Priority,
				tc.Precondition,
				flattenSteps(tc.TestSteps),
				tc.TestData,
				tc.ExpectedResult,
				tc.Postcondition,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func flattenSteps(steps []core.TestStep) string {
	var parts []string
	for _, step := range steps {
		parts = append(parts, fmt.Sprintf("%d. %s => %s", step.Step, step.Action, step.Expected))
	}
	return strings.Join(parts, "\n")
}
