// Package quality scores generated content against rule-based checklists.
// Scores are advisory: nothing here blocks a pipeline run, duplicates and
// thin descriptions are only flagged for the operator.
package quality

import (
	"fmt"
	"strings"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

// Criterion is one scored checklist entry.
type Criterion struct {
	Name   string
	Score  float64
	Max    float64
	Issues []string
}

// Evaluation is the scored result for one batch of records.
type Evaluation struct {
	TotalScore float64
	Criteria   []Criterion
	Summary    string
}

func summarize(total float64) string {
	switch {
	case total >= 90:
		return "Excellent quality"
	case total >= 75:
		return "Good quality"
	case total >= 60:
		return "Acceptable quality"
	case total >= 40:
		return "Needs improvement"
	default:
		return "Poor quality"
	}
}

func finish(criteria []Criterion) Evaluation {
	var total float64
	for i := range criteria {
		if criteria[i].Score < 0 {
			criteria[i].Score = 0
		}
		total += criteria[i].Score
	}
	return Evaluation{TotalScore: total, Criteria: criteria, Summary: summarize(total)}
}

func isBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n/a", "无":
		return true
	}
	return false
}

// EvaluateFeatures scores a feature batch on completeness, clarity, quantity
// and name uniqueness.
func EvaluateFeatures(features []core.Feature) Evaluation {
	if len(features) == 0 {
		return Evaluation{Summary: "No features to evaluate"}
	}

	completeness := Criterion{Name: "completeness", Score: 30, Max: 30}
	for i, f := range features {
		var missing []string
		if f.ID == 0 {
			missing = append(missing, "id")
		}
		if f.Name == "" {
			missing = append(missing, "name")
		}
		if f.Description == "" {
			missing = append(missing, "description")
		}
		if len(missing) > 0 {
			completeness.Issues = append(completeness.Issues, fmt.Sprintf("Feature %d: missing %s", i+1, strings.Join(missing, ", ")))
			completeness.Score -= 10 / float64(len(features))
		}
	}

	clarity := Criterion{Name: "clarity", Score: 30, Max: 30}
	for i, f := range features {
		descLen := len([]rune(f.Description))
		nameLen := len([]rune(f.Name))
		if descLen < 20 {
			clarity.Issues = append(clarity.Issues, fmt.Sprintf("Feature %d: description too short (%d chars)", i+1, descLen))
			clarity.Score -= 5
		} else if descLen < 50 {
			clarity.Score -= 2
		}
		if nameLen < 3 {
			clarity.Issues = append(clarity.Issues, fmt.Sprintf("Feature %d: name too short", i+1))
			clarity.Score -= 3
		} else if nameLen > 50 {
			clarity.Issues = append(clarity.Issues, fmt.Sprintf("Feature %d: name too long", i+1))
			clarity.Score -= 2
		}
	}

	quantity := Criterion{Name: "quantity", Score: 20, Max: 20}
	switch n := len(features); {
	case n < 2:
		quantity.Issues = append(quantity.Issues, fmt.Sprintf("Too few features (%d)", n))
		quantity.Score -= 10
	case n < 3:
		quantity.Score -= 5
	case n > 20:
		quantity.Issues = append(quantity.Issues, fmt.Sprintf("Too many features (%d), may be too granular", n))
		quantity.Score -= 5
	}

	uniqueness := Criterion{Name: "uniqueness", Score: 20, Max: 20}
	seen := map[string]bool{}
	duplicates := map[string]bool{}
	for _, f := range features {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if seen[name] {
			duplicates[name] = true
		}
		seen[name] = true
	}
	if len(duplicates) > 0 {
		var names []string
		for name := range duplicates {
			names = append(names, name)
		}
		uniqueness.Issues = append(uniqueness.Issues, "Duplicate names: "+strings.Join(names, ", "))
		uniqueness.Score -= 10 * float64(len(duplicates))
	}

	return finish([]Criterion{completeness, clarity, quantity, uniqueness})
}

// EvaluateTestPoints scores a test point batch on completeness, type
// coverage, priority distribution and level of detail.
func EvaluateTestPoints(points []core.TestPoint) Evaluation {
	if len(points) == 0 {
		return Evaluation{Summary: "No test points to evaluate"}
	}

	completeness := Criterion{Name: "completeness", Score: 25, Max: 25}
	for i, tp := range points {
		var missing []string
		if tp.ID == 0 {
			missing = append(missing, "id")
		}
		if tp.Name == "" {
			missing = append(missing, "name")
		}
		if tp.Type == "" {
			missing = append(missing, "type")
		}
		if tp.Priority == "" {
			missing = append(missing, "priority")
		}
		if tp.Description == "" {
			missing = append(missing, "description")
		}
		if len(missing) > 0 {
			completeness.Issues = append(completeness.Issues, fmt.Sprintf("Test point %d: missing %s", i+1, strings.Join(missing, ", ")))
			completeness.Score -= 5 / float64(len(points))
		}
	}

	coverage := Criterion{Name: "coverage", Score: 25, Max: 25}
	expectedTypes := map[string]bool{"functional": true, "performance": true, "security": true, "compatibility": true, "usability": true}
	covered := map[string]bool{}
	for _, tp := range points {
		typ := strings.ToLower(tp.Type)
		if expectedTypes[typ] {
			covered[typ] = true
		}
	}
	switch {
	case len(covered) < 2:
		coverage.Issues = append(coverage.Issues, "Limited test type coverage")
		coverage.Score -= 15
	case len(covered) < 3:
		coverage.Score -= 5
	}
	hasNegative := false
	for _, tp := range points {
		name := strings.ToLower(tp.Name)
		for _, marker := range []string{"negative", "error", "fail", "invalid"} {
			if strings.Contains(name, marker) {
				hasNegative = true
			}
		}
	}
	if !hasNegative {
		coverage.Issues = append(coverage.Issues, "No negative/error test scenarios found")
		coverage.Score -= 5
	}

	priority := Criterion{Name: "priority", Score: 25, Max: 25}
	highCount := 0
	for _, tp := range points {
		p := strings.ToLower(tp.Priority)
		if strings.Contains(p, "high") || strings.Contains(p, "高") {
			highCount++
		}
	}
	switch {
	case highCount == len(points):
		priority.Issues = append(priority.Issues, "All test points marked as high priority")
		priority.Score -= 10
	case highCount == 0:
		priority.Issues = append(priority.Issues, "No high priority test points")
		priority.Score -= 5
	}

	detail := Criterion{Name: "detail", Score: 25, Max: 25}
	for i, tp := range points {
		if len([]rune(tp.Description)) < 20 {
			detail.Issues = append(detail.Issues, fmt.Sprintf("Test point %d: description too brief", i+1))
			detail.Score -= 3
		}
		if isBlank(tp.Precondition) {
			detail.Score -= 1
		}
		if isBlank(tp.ExpectedResult) {
			detail.Issues = append(detail.Issues, fmt.Sprintf("Test point %d: missing expected result", i+1))
			detail.Score -= 3
		}
	}

	return finish([]Criterion{completeness, coverage, priority, detail})
}

// EvaluateTestCases scores a test case batch on completeness, step quality,
// test data and clarity. Duplicate case IDs are flagged here, never rejected.
func EvaluateTestCases(cases []core.TestCase) Evaluation {
	if len(cases) == 0 {
		return Evaluation{Summary: "No test cases to evaluate"}
	}

	completeness := Criterion{Name: "completeness", Score: 25, Max: 25}
	for i, tc := range cases {
		var missing []string
		if tc.CaseID == "" {
			missing = append(missing, "case_id")
		}
		if tc.Title == "" {
			missing = append(missing, "title")
		}
		if tc.Priority == "" {
			missing = append(missing, "priority")
		}
		if tc.Precondition == "" {
			missing = append(missing, "precondition")
		}
		if tc.ExpectedResult == "" {
			missing = append(missing, "expected_result")
		}
		if len(missing) > 0 {
			completeness.Issues = append(completeness.Issues, fmt.Sprintf("Test case %d: missing %s", i+1, strings.Join(missing, ", ")))
			completeness.Score -= 5 / float64(len(cases))
		}
	}

	steps := Criterion{Name: "steps", Score: 30, Max: 30}
	for i, tc := range cases {
		switch {
		case len(tc.TestSteps) == 0:
			steps.Issues = append(steps.Issues, fmt.Sprintf("Test case %d: no test steps", i+1))
			steps.Score -= 10
		case len(tc.TestSteps) < 2:
			steps.Issues = append(steps.Issues, fmt.Sprintf("Test case %d: too few steps (%d)", i+1, len(tc.TestSteps)))
			steps.Score -= 5
		default:
			for _, step := range tc.TestSteps {
				if step.Action == "" {
					steps.Score -= 2
				}
				if step.Expected == "" {
					steps.Score -= 1
				}
			}
		}
	}

	data := Criterion{Name: "test_data", Score: 20, Max: 20}
	for i, tc := range cases {
		if isBlank(tc.TestData) {
			data.Issues = append(data.Issues, fmt.Sprintf("Test case %d: no test data provided", i+1))
			data.Score -= 5
		}
	}

	clarity := Criterion{Name: "clarity", Score: 25, Max: 25}
	for i, tc := range cases {
		if len([]rune(tc.Title)) < 10 {
			clarity.Issues = append(clarity.Issues, fmt.Sprintf("Test case %d: title too short", i+1))
			clarity.Score -= 3
		}
		if len([]rune(tc.ExpectedResult)) < 10 {
			clarity.Issues = append(clarity.Issues, fmt.Sprintf("Test case %d: expected result too brief", i+1))
			clarity.Score -= 3
		}
	}
	ids := map[string]bool{}
	hasDuplicateID := false
	for _, tc := range cases {
		if ids[tc.CaseID] {
			hasDuplicateID = true
		}
		ids[tc.CaseID] = true
	}
	if hasDuplicateID {
		clarity.Issues = append(clarity.Issues, "Duplicate case IDs found")
		clarity.Score -= 5
	}

	return finish([]Criterion{completeness, steps, data, clarity})
}
