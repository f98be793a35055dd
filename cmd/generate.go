package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/export"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/llm"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/quality"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/tui"
)

var (
	genConfigFile    string
	genProvider      string
	genBaseURL       string
	genModel         string
	genFeatureModel  string
	genPointModel    string
	genCaseModel     string
	genMaxFeatures   int
	genMaxTestPoints int
	genInstruction   string
	genPromptDir     string
	genSavePath      string
	genCSVPath       string
	genNoStream      bool
	genEval          bool
	genShowOutput    bool
)

// GenerateCmd runs the whole pipeline against a requirements document.
var GenerateCmd = &cobra.Command{
	Use:   "generate <prd-file>",
	Short: "Generate features, test points and test cases from a PRD",
	Long: `Run the full generation pipeline against a requirements document.

The pipeline runs three stages:
- Features: extract product features from the document
- Test points: enumerate verification concerns per feature
- Test cases: write executable cases per test point

A failed branch is reported and skipped; the rest of the run continues.
The resulting session can be saved as a JSON snapshot and exported to CSV.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().StringVar(&genConfigFile, "config", "", "Config file (default: .testgen.yaml)")
	GenerateCmd.Flags().StringVar(&genProvider, "provider", "", "LLM provider (openai/anthropic, default: auto)")
	GenerateCmd.Flags().StringVar(&genBaseURL, "base-url", "", "OpenAI-compatible endpoint root")
	GenerateCmd.Flags().StringVarP(&genModel, "model", "m", "", "Default model for all stages")
	GenerateCmd.Flags().StringVar(&genFeatureModel, "feature-model", "", "Model override for the feature stage")
	GenerateCmd.Flags().StringVar(&genPointModel, "test-point-model", "", "Model override for the test point stage")
	GenerateCmd.Flags().StringVar(&genCaseModel, "test-case-model", "", "Model override for the test case stage")
	GenerateCmd.Flags().IntVar(&genMaxFeatures, "max-features", 0, "Cap on features expanded into test points (0 = no cap)")
	GenerateCmd.Flags().IntVar(&genMaxTestPoints, "max-test-points", 0, "Cap on test points per feature expanded into cases (0 = no cap)")
	GenerateCmd.Flags().StringVarP(&genInstruction, "instruction", "i", "", "Extra requirement appended to every stage prompt")
	GenerateCmd.Flags().StringVar(&genPromptDir, "prompts", "", "Directory of prompt template overrides")
	GenerateCmd.Flags().StringVar(&genSavePath, "save", "", "Save the session snapshot to this JSON file")
	GenerateCmd.Flags().StringVar(&genCSVPath, "csv", "", "Export generated test cases to this CSV file")
	GenerateCmd.Flags().BoolVar(&genNoStream, "no-stream", false, "Disable streaming progress")
	GenerateCmd.Flags().BoolVar(&genEval, "eval", false, "Print quality evaluations after generation")
	GenerateCmd.Flags().BoolVar(&genShowOutput, "show-output", false, "Print each stage's markdown output")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prdPath := args[0]

	cfg, cfgPath, err := loadFileConfig(genConfigFile)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		fmt.Printf("Loaded config from: %s\n", cfgPath)
	}
	applyGenerateFlags(cmd, &cfg)

	prdContent, err := os.ReadFile(prdPath)
	if err != nil {
		return fmt.Errorf("reading PRD: %w", err)
	}

	adapter, err := llm.DetectAdapter(cfg.llmConfig())
	if err != nil {
		return err
	}
	fmt.Printf("Using LLM: %s\n\n", tui.ModelStyle.Render(adapter.Name()))

	pipeline := core.NewPipeline(adapter, &core.Library{Dir: cfg.PromptDir}, cfg.pipelineConfig())
	sess := core.NewSession(string(prdContent), filepath.Base(prdPath))

	var stages []tui.StageInfo
	stageStart := time.Now()

	opts := core.RunOptions{
		Instruction: genInstruction,
		OnStageStart: func(stage core.Stage, pos core.Position) {
			stageStart = time.Now()
			model := cfg.pipelineConfig().ModelForStage(stage)
			if model == "" {
				model = cfg.Model
			}
			fmt.Println(tui.RenderStageStart(stage, pos, model))
		},
		OnStageDone: func(stage core.Stage, pos core.Position, surface string, err error) {
			if !genNoStream {
				fmt.Print("\r\033[K")
			}
			info := tui.StageInfo{
				Stage: stage, Pos: pos,
				StartTime: stageStart, EndTime: time.Now(),
				IsComplete: true, Failed: err != nil,
				OutputChars: len(surface),
			}
			stages = append(stages, info)
			if err != nil {
				fmt.Println(tui.RenderStageFailed(stage, pos, err))
			} else {
				fmt.Println(tui.RenderStageComplete(stage, pos, time.Since(stageStart), len(surface)))
			}
			if genShowOutput && surface != "" {
				fmt.Println()
				fmt.Println(surface)
			}
		},
	}
	if !genNoStream {
		opts.OnSnapshot = func(stage core.Stage, pos core.Position, text string) {
			fmt.Printf("\r\033[K  ~%s tokens streamed", tui.FormatTokens(tui.EstimateTokens(len(text))))
		}
	}

	report, err := pipeline.Run(context.Background(), sess, opts)
	if err != nil {
		var stageErr *core.StageError
		if errors.As(err, &stageErr) {
			fmt.Println()
			fmt.Println(stageErr.Surface())
		}
		return fmt.Errorf("generation failed: %w", err)
	}

	fmt.Println(tui.RenderRunSummary(stages))
	for _, failure := range report.Failures {
		fmt.Println(tui.RenderStageFailed(failure.Stage, failure.Pos, failure.Err))
	}

	if genEval {
		printEvaluations(sess)
	}

	return saveOutputs(sess, genSavePath, genCSVPath)
}

func applyGenerateFlags(cmd *cobra.Command, cfg *fileConfig) {
	if cmd.Flags().Changed("provider") {
		cfg.Provider = genProvider
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = genBaseURL
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = genModel
	}
	if cmd.Flags().Changed("feature-model") {
		cfg.FeatureModel = genFeatureModel
	}
	if cmd.Flags().Changed("test-point-model") {
		cfg.TestPointModel = genPointModel
	}
	if cmd.Flags().Changed("test-case-model") {
		cfg.TestCaseModel = genCaseModel
	}
	if cmd.Flags().Changed("max-features") {
		cfg.MaxFeatures = genMaxFeatures
	}
	if cmd.Flags().Changed("max-test-points") {
		cfg.MaxTestPoints = genMaxTestPoints
	}
	if cmd.Flags().Changed("prompts") {
		cfg.PromptDir = genPromptDir
	}
}

// printEvaluations scores every generated batch and prints the reports.
func printEvaluations(sess *core.Session) {
	fmt.Println(quality.RenderMarkdown(quality.EvaluateFeatures(sess.Features), "Feature Quality"))
	for idx, points := range sess.TestPoints {
		title := fmt.Sprintf("Test Point Quality (feature %d)", idx+1)
		fmt.Println(quality.RenderMarkdown(quality.EvaluateTestPoints(points), title))
	}
	for pos, cases := range sess.TestCases {
		title := fmt.Sprintf("Test Case Quality (feature %d, point %d)", pos.Feature+1, pos.TestPoint+1)
		fmt.Println(quality.RenderMarkdown(quality.EvaluateTestCases(cases), title))
	}
}

// saveOutputs writes the snapshot and CSV exports when paths are set.
func saveOutputs(sess *core.Session, savePath, csvPath string) error {
	if savePath == "" && csvPath == "" {
		return nil
	}
	snap := export.NewSnapshot(sess)
	if savePath != "" {
		if err := snap.Save(savePath); err != nil {
			return err
		}
		fmt.Printf("Saved session to: %s\n", savePath)
	}
	if csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("creating CSV file: %w", err)
		}
		defer f.Close()
		if err := snap.WriteCSV(f); err != nil {
			return err
		}
		fmt.Printf("Exported test cases to: %s\n", csvPath)
	}
	return nil
}
