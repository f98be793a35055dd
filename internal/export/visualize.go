package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

// Visualize renders the snapshot as a markdown overview: statistics, the
// feature/test-point hierarchy, and a detail section for every test case.
func (s *Snapshot) Visualize() string {
	var b strings.Builder
	b.WriteString("# 📊 Test Case Data Visualization\n\n")

	docName := s.Document.DisplayName
	if docName == "" {
		docName = "N/A"
	}
	fmt.Fprintf(&b, "## 📄 Document: %s\n\n", docName)

	totalPoints := 0
	for _, points := range s.TestPoints {
		totalPoints += len(points)
	}
	totalCases := 0
	for _, cases := range s.TestCases {
		totalCases += len(cases)
	}

	b.WriteString("### 📈 Statistics\n\n")
	b.WriteString("| Metric | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Features | %d |\n", len(s.Features))
	fmt.Fprintf(&b, "| Test Points | %d |\n", totalPoints)
	fmt.Fprintf(&b, "| Test Cases | %d |\n\n", totalCases)

	b.WriteString("---\n\n## 🗂️ Features & Test Points\n\n")
	for i, feature := range s.Features {
		fmt.Fprintf(&b, "### %d. %s\n", feature.ID, feature.Name)
		fmt.Fprintf(&b, "> %s\n\n", feature.Description)

		points, ok := s.TestPoints[strconv.Itoa(i)]
		if !ok || len(points) == 0 {
			b.WriteString("*No test points generated*\n\n")
			continue
		}
		fmt.Fprintf(&b, "**Test Points (%d):**\n\n", len(points))
		for j, tp := range points {
			fmt.Fprintf(&b, "- **%d. %s**\n", tp.ID, tp.Name)
			fmt.Fprintf(&b, "  - Type: `%s` | Priority: `%s`\n", orNA(tp.Type), orNA(tp.Priority))
			pos := core.Position{Feature: i, TestPoint: j}
			if cases, ok := s.TestCases[pos.String()]; ok {
				fmt.Fprintf(&b, "  - Test Cases: %d\n", len(cases))
			}
		}
		b.WriteString("\n")
	}

	if len(s.TestCases) > 0 {
		b.WriteString("---\n\n## 📝 Test Cases Detail\n\n")
		for _, key := range sortedCaseKeys(s.TestCases) {
			pos, err := core.ParsePosition(key)
			if err != nil {
				continue
			}
			featureName := "Unknown"
			if pos.Feature >= 0 && pos.Feature < len(s.Features) {
				featureName = s.Features[pos.Feature].Name
			}
			pointName := "Unknown"
			if points, ok := s.TestPoints[strconv.Itoa(pos.Feature)]; ok && pos.TestPoint >= 0 && pos.TestPoint < len(points) {
				pointName = points[pos.TestPoint].Name
			}
			fmt.Fprintf(&b, "### Feature: %s > Test Point: %s\n\n", featureName, pointName)

			for _, tc := range s.TestCases[key] {
				fmt.Fprintf(&b, "#### %s: %s\n", tc.CaseID, tc.Title)
				fmt.Fprintf(&b, "- **Priority**: %s\n", orNA(tc.Priority))
				fmt.Fprintf(&b, "- **Precondition**: %s\n", orNA(tc.Precondition))
				fmt.Fprintf(&b, "- **Expected Result**: %s\n", orNA(tc.ExpectedResult))
				if len(tc.TestSteps) > 0 {
					b.WriteString("- **Steps**:\n")
					for _, step := range tc.TestSteps {
						fmt.Fprintf(&b, "  %d. %s\n", step.Step, step.Action)
					}
				}
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
