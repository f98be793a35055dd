package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/export"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/llm"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/tui"
)

var (
	regenConfigFile  string
	regenStage       string
	regenFeature     int
	regenPosition    string
	regenInstruction string
	regenPromptDir   string
	regenSavePath    string
)

// RegenCmd re-runs one stage of a saved session, optionally steered by an
// extra instruction.
var RegenCmd = &cobra.Command{
	Use:   "regen <session.json>",
	Short: "Regenerate one stage of a saved session",
	Long: `Re-run a single generation stage against a saved session snapshot.

The regenerated batch replaces the old one wholesale. Regenerating features
invalidates all test points and test cases; regenerating one feature's test
points drops only that feature's test cases.

Examples:
  testgen regen session.json --stage features -i "split login and registration"
  testgen regen session.json --stage test-points --feature 2
  testgen regen session.json --stage test-cases --position 2,1`,
	Args: cobra.ExactArgs(1),
	RunE: runRegen,
}

func init() {
	RegenCmd.Flags().StringVar(&regenConfigFile, "config", "", "Config file (default: .testgen.yaml)")
	RegenCmd.Flags().StringVar(&regenStage, "stage", "", "Stage to regenerate (features/test-points/test-cases)")
	RegenCmd.Flags().IntVar(&regenFeature, "feature", 0, "Feature number for test-points (1-based)")
	RegenCmd.Flags().StringVar(&regenPosition, "position", "", "Feature,test-point numbers for test-cases (1-based, e.g. 2,1)")
	RegenCmd.Flags().StringVarP(&regenInstruction, "instruction", "i", "", "Extra requirement appended to the stage prompt")
	RegenCmd.Flags().StringVar(&regenPromptDir, "prompts", "", "Directory of prompt template overrides")
	RegenCmd.Flags().StringVar(&regenSavePath, "save", "", "Save the updated snapshot here (default: overwrite input)")
	_ = RegenCmd.MarkFlagRequired("stage")
}

func runRegen(cmd *cobra.Command, args []string) error {
	sessionPath := args[0]

	cfg, cfgPath, err := loadFileConfig(regenConfigFile)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		fmt.Printf("Loaded config from: %s\n", cfgPath)
	}
	if cmd.Flags().Changed("prompts") {
		cfg.PromptDir = regenPromptDir
	}

	sess, err := export.LoadSession(sessionPath)
	if err != nil {
		return err
	}

	adapter, err := llm.DetectAdapter(cfg.llmConfig())
	if err != nil {
		return err
	}
	fmt.Printf("Using LLM: %s\n\n", tui.ModelStyle.Render(adapter.Name()))

	pipeline := core.NewPipeline(adapter, &core.Library{Dir: cfg.PromptDir}, cfg.pipelineConfig())
	opts := core.StageOptions{
		Instruction: regenInstruction,
		OnSnapshot: func(text string) {
			fmt.Printf("\r\033[K  ~%s tokens streamed", tui.FormatTokens(tui.EstimateTokens(len(text))))
		},
	}

	ctx := context.Background()
	var surface string
	switch regenStage {
	case "features":
		_, surface, err = pipeline.GenerateFeatures(ctx, sess, opts)
	case "test-points":
		if regenFeature < 1 {
			return fmt.Errorf("--feature is required for test-points (1-based)")
		}
		_, surface, err = pipeline.GenerateTestPoints(ctx, sess, regenFeature-1, opts)
	case "test-cases":
		if regenPosition == "" {
			return fmt.Errorf("--position is required for test-cases (1-based, e.g. 2,1)")
		}
		pos, perr := core.ParsePosition(regenPosition)
		if perr != nil {
			return perr
		}
		pos.Feature--
		pos.TestPoint--
		_, surface, err = pipeline.GenerateTestCases(ctx, sess, pos, opts)
	default:
		return fmt.Errorf("unknown stage %q (want features, test-points or test-cases)", regenStage)
	}

	fmt.Print("\r\033[K")
	if err != nil {
		var stageErr *core.StageError
		if errors.As(err, &stageErr) {
			fmt.Println(stageErr.Surface())
		}
		return fmt.Errorf("regeneration failed: %w", err)
	}
	fmt.Println(surface)

	savePath := regenSavePath
	if savePath == "" {
		savePath = sessionPath
	}
	if err := export.NewSnapshot(sess).Save(savePath); err != nil {
		return err
	}
	fmt.Printf("Saved session to: %s\n", savePath)
	return nil
}
