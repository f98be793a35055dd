package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/export"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/quality"
)

// EvalCmd scores a saved session with the rule-based quality checklists.
var EvalCmd = &cobra.Command{
	Use:   "eval <session.json>",
	Short: "Evaluate the quality of a saved session",
	Long: `Score every generated batch in a session snapshot.

Evaluation is rule-based and advisory: it flags missing fields, thin
descriptions, flat priorities and duplicate names, but never rejects
anything. Use the reports to decide which slots to regenerate.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	sess, err := export.LoadSession(args[0])
	if err != nil {
		return err
	}

	fmt.Println(quality.RenderMarkdown(quality.EvaluateFeatures(sess.Features), "Feature Quality"))

	featureIdxs := make([]int, 0, len(sess.TestPoints))
	for idx := range sess.TestPoints {
		featureIdxs = append(featureIdxs, idx)
	}
	sort.Ints(featureIdxs)
	for _, idx := range featureIdxs {
		title := fmt.Sprintf("Test Point Quality (feature %d)", idx+1)
		fmt.Println(quality.RenderMarkdown(quality.EvaluateTestPoints(sess.TestPoints[idx]), title))
	}

	positions := make([]core.Position, 0, len(sess.TestCases))
	for pos := range sess.TestCases {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Feature != positions[j].Feature {
			return positions[i].Feature < positions[j].Feature
		}
		return positions[i].TestPoint < positions[j].TestPoint
	})
	for _, pos := range positions {
		title := fmt.Sprintf("Test Case Quality (feature %d, point %d)", pos.Feature+1, pos.TestPoint+1)
		fmt.Println(quality.RenderMarkdown(quality.EvaluateTestCases(sess.TestCases[pos]), title))
	}

	return nil
}
