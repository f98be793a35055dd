package quality

import (
	"fmt"
	"strings"
)

// maxReportedIssues bounds the issue list in a rendered report.
const maxReportedIssues = 10

// RenderMarkdown formats an evaluation as a markdown report.
func RenderMarkdown(eval Evaluation, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## 📊 %s\n\n", title)

	badge := "🔴"
	switch {
	case eval.TotalScore >= 90:
		badge = "🟢"
	case eval.TotalScore >= 75:
		badge = "🟡"
	case eval.TotalScore >= 60:
		badge = "🟠"
	}
	fmt.Fprintf(&b, "**Overall Score: %s %.1f/100** (%s)\n\n", badge, eval.TotalScore, eval.Summary)

	b.WriteString("| Criterion | Score | Max | Status |\n")
	b.WriteString("|-----------|-------|-----|--------|\n")
	for _, c := range eval.Criteria {
		pct := 0.0
		if c.Max > 0 {
			pct = c.Score / c.Max * 100
		}
		status := "❌"
		switch {
		case pct >= 90:
			status = "✅"
		case pct >= 70:
			status = "⚠️"
		}
		fmt.Fprintf(&b, "| %s | %.1f | %.0f | %s |\n", titleCase(c.Name), c.Score, c.Max, status)
	}

	var issues []string
	for _, c := range eval.Criteria {
		issues = append(issues, c.Issues...)
	}
	if len(issues) > 0 {
		b.WriteString("\n### ⚠️ Issues Found\n\n")
		for i, issue := range issues {
			if i == maxReportedIssues {
				fmt.Fprintf(&b, "- ... and %d more issues\n", len(issues)-maxReportedIssues)
				break
			}
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}

	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
