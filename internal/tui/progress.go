package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
)

// StageInfo tracks one generation stage for display.
type StageInfo struct {
	Stage       core.Stage
	Pos         core.Position
	Model       string
	StartTime   time.Time
	EndTime     time.Time
	IsComplete  bool
	Failed      bool
	OutputChars int
}

// Label names the stage for the operator, with the branch position when one
// applies.
func (s StageInfo) Label() string {
	switch s.Stage {
	case core.StageFeatures:
		return "features"
	case core.StageTestPoints:
		return fmt.Sprintf("test points (feature %d)", s.Pos.Feature+1)
	case core.StageTestCases:
		return fmt.Sprintf("test cases (feature %d, point %d)", s.Pos.Feature+1, s.Pos.TestPoint+1)
	}
	return string(s.Stage)
}

// snapshotMsg carries the latest streamed text into the display.
type snapshotMsg string

// ProgressDisplay is a Bubble Tea model showing pipeline progress with a
// live tail of the streamed reply.
type ProgressDisplay struct {
	spinner    spinner.Model
	stages     []StageInfo
	currentIdx int
	isRunning  bool
	tail       string
	quitting   bool
}

// NewProgressDisplay creates a new progress display.
func NewProgressDisplay() *ProgressDisplay {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &ProgressDisplay{
		spinner:    s,
		currentIdx: -1,
	}
}

// StartStage begins tracking a new stage.
func (p *ProgressDisplay) StartStage(stage core.Stage, pos core.Position, model string) {
	p.stages = append(p.stages, StageInfo{
		Stage:     stage,
		Pos:       pos,
		Model:     model,
		StartTime: time.Now(),
	})
	p.currentIdx = len(p.stages) - 1
	p.isRunning = true
	p.tail = ""
}

// Snapshot records the accumulated reply text for the running stage.
func (p *ProgressDisplay) Snapshot(text string) {
	p.tail = text
	if p.currentIdx >= 0 && p.currentIdx < len(p.stages) {
		p.stages[p.currentIdx].OutputChars = len(text)
	}
}

// CompleteStage marks the current stage as finished.
func (p *ProgressDisplay) CompleteStage(outputChars int, failed bool) {
	if p.currentIdx >= 0 && p.currentIdx < len(p.stages) {
		stage := &p.stages[p.currentIdx]
		stage.IsComplete = true
		stage.Failed = failed
		stage.EndTime = time.Now()
		if outputChars > 0 {
			stage.OutputChars = outputChars
		}
	}
	p.isRunning = false
}

// Stop ends the display.
func (p *ProgressDisplay) Stop() {
	p.isRunning = false
	p.quitting = true
}

// Init implements tea.Model.
func (p *ProgressDisplay) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update implements tea.Model.
func (p *ProgressDisplay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			p.quitting = true
			return p, tea.Quit
		}

	case snapshotMsg:
		p.Snapshot(string(msg))
		return p, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}

	return p, nil
}

// View implements tea.Model.
func (p *ProgressDisplay) View() string {
	if p.quitting {
		return p.summaryView()
	}
	if p.currentIdx < 0 || p.currentIdx >= len(p.stages) {
		return ""
	}

	stage := p.stages[p.currentIdx]
	elapsed := time.Since(stage.StartTime).Truncate(time.Second)

	var status string
	if p.isRunning {
		status = p.spinner.View()
	} else if stage.Failed {
		status = ErrorStyle.Render("✗")
	} else {
		status = SuccessStyle.Render("✓")
	}

	line := fmt.Sprintf("%s %s  %s  %s  ~%s output",
		status,
		StageStyle.Render(stage.Label()),
		ModelStyle.Render(stage.Model),
		HelpStyle.Render(elapsed.String()),
		FormatTokens(EstimateTokens(stage.OutputChars)),
	)

	if tail := lastLine(p.tail); tail != "" {
		line += "\n" + HelpStyle.Render("  "+tail)
	}
	return line
}

// summaryView shows the final summary after completion.
func (p *ProgressDisplay) summaryView() string {
	return RenderRunSummary(p.stages)
}

// lastLine returns the final non-empty line of streamed text, truncated for
// a single display row.
func lastLine(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > 80 {
			return string(runes[:80]) + "…"
		}
		return line
	}
	return ""
}

// RenderStageStart returns a stage start line for non-interactive mode.
func RenderStageStart(stage core.Stage, pos core.Position, model string) string {
	info := StageInfo{Stage: stage, Pos: pos, Model: model}
	return fmt.Sprintf("%s %s  %s",
		SpinnerStyle.Render("→"),
		StageStyle.Render(info.Label()),
		ModelStyle.Render(model),
	)
}

// RenderStageComplete returns a stage completion line for non-interactive mode.
func RenderStageComplete(stage core.Stage, pos core.Position, duration time.Duration, outputChars int) string {
	info := StageInfo{Stage: stage, Pos: pos}
	return fmt.Sprintf("%s %s  %s  ~%s tokens",
		SuccessStyle.Render("✓"),
		StageStyle.Render(info.Label()),
		HelpStyle.Render(duration.Truncate(time.Second).String()),
		FormatTokens(EstimateTokens(outputChars)),
	)
}

// RenderStageFailed returns a stage failure line for non-interactive mode.
func RenderStageFailed(stage core.Stage, pos core.Position, err error) string {
	info := StageInfo{Stage: stage, Pos: pos}
	return fmt.Sprintf("%s %s  %s",
		ErrorStyle.Render("✗"),
		StageStyle.Render(info.Label()),
		ErrorStyle.Render(err.Error()),
	)
}

// RenderRunSummary returns the end-of-run summary.
func RenderRunSummary(stages []StageInfo) string {
	if len(stages) == 0 {
		return ""
	}

	var totalOutputTokens, failed int
	var totalDuration time.Duration
	for _, stage := range stages {
		totalOutputTokens += EstimateTokens(stage.OutputChars)
		if stage.IsComplete {
			totalDuration += stage.EndTime.Sub(stage.StartTime)
		}
		if stage.Failed {
			failed++
		}
	}

	status := TitleStyle.Render("Generation Complete")
	if failed > 0 {
		status = WarningStyle.Render(fmt.Sprintf("Generation Complete (%d branch failures)", failed))
	}
	return fmt.Sprintf("\n%s\n  Stages: %d  Tokens: ~%s out  Time: %s\n",
		status,
		len(stages),
		FormatTokens(totalOutputTokens),
		totalDuration.Truncate(time.Second).String(),
	)
}
