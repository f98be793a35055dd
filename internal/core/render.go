package core

import (
	"fmt"
	"strings"
)

// RenderFeatures produces the operator-facing markdown for a feature batch.
func RenderFeatures(features []Feature) string {
	var b strings.Builder
	b.WriteString("## Generated Features\n\n")
	for _, f := range features {
		fmt.Fprintf(&b, "### %d. %s\n", f.ID, orDefault(f.Name, "Unknown"))
		fmt.Fprintf(&b, "%s\n\n", orDefault(f.Description, "No description"))
	}
	return b.String()
}

// RenderTestPoints produces the markdown for one feature's test points.
func RenderTestPoints(feature Feature, points []TestPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Feature: %s\n\n", feature.Name)
	b.WriteString("### Test Points\n\n")
	for _, tp := range points {
		fmt.Fprintf(&b, "#### %d. %s\n", tp.ID, orDefault(tp.Name, "Unknown"))
		fmt.Fprintf(&b, "- **Type**: %s\n", orDefault(tp.Type, "Unspecified"))
		fmt.Fprintf(&b, "- **Priority**: %s\n", orDefault(tp.Priority, "Unspecified"))
		fmt.Fprintf(&b, "- **Description**: %s\n", orDefault(tp.Description, "No description"))
		fmt.Fprintf(&b, "- **Precondition**: %s\n", orDefault(tp.Precondition, "None"))
		fmt.Fprintf(&b, "- **Expected Result**: %s\n\n", orDefault(tp.ExpectedResult, "None"))
	}
	return b.String()
}

// RenderTestCases produces the markdown for one test point's cases.
func RenderTestCases(feature Feature, point TestPoint, cases []TestCase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Feature: %s\n", feature.Name)
	fmt.Fprintf(&b, "### Test Point: %s\n\n", point.Name)
	b.WriteString("### Test Cases\n\n")
	for _, tc := range cases {
		fmt.Fprintf(&b, "#### %s: %s\n", orDefault(tc.CaseID, "?"), orDefault(tc.Title, "Unknown"))
		fmt.Fprintf(&b, "- **Priority**: %s\n", orDefault(tc.Priority, "Unspecified"))
		fmt.Fprintf(&b, "- **Precondition**: %s\n", orDefault(tc.Precondition, "None"))
		b.WriteString("- **Test Steps**:\n")
		if len(tc.TestSteps) == 0 {
			b.WriteString("  (No test steps)\n")
		}
		for _, step := range tc.TestSteps {
			fmt.Fprintf(&b, "  %d. %s\n", step.Step, orDefault(step.Action, "No action"))
			fmt.Fprintf(&b, "     - Expected: %s\n", orDefault(step.Expected, "None"))
		}
		fmt.Fprintf(&b, "- **Test Data**: %s\n", orDefault(tc.TestData, "None"))
		fmt.Fprintf(&b, "- **Expected Result**: %s\n", orDefault(tc.ExpectedResult, "None"))
		fmt.Fprintf(&b, "- **Postcondition**: %s\n\n", orDefault(tc.Postcondition, "None"))
	}
	return b.String()
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
