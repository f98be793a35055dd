package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/llm"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/tui"
)

var resetConfig bool

// SetupCmd represents the setup command.
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	Long: `Configure testgen with an interactive wizard.

This wizard helps you select models for each generation stage:
- Feature model: extracts features from the PRD (Stage 1)
- Test point model: enumerates test points per feature (Stage 2)
- Test case model: writes test cases per test point (Stage 3)

Configuration is saved to ~/.testgen.yaml`,
	RunE: runSetup,
}

func init() {
	SetupCmd.Flags().BoolVar(&resetConfig, "reset", false, "Reset configuration to defaults")
}

// setupConfig holds the configuration being built.
type setupConfig struct {
	FeatureModel   string `yaml:"feature_model,omitempty"`
	TestPointModel string `yaml:"test_point_model,omitempty"`
	TestCaseModel  string `yaml:"test_case_model,omitempty"`
}

func runSetup(cmd *cobra.Command, args []string) error {
	configPath := defaultConfigPath()

	if resetConfig {
		if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove config: %w", err)
		}
		fmt.Println(tui.SuccessStyle.Render("✓") + " Configuration reset to defaults")
		fmt.Printf("  Removed: %s\n", configPath)
		return nil
	}

	models := llm.AllModels()
	if len(models) == 0 {
		return fmt.Errorf("no LLM providers detected - set OPENAI_BASE_URL or ANTHROPIC_API_KEY first")
	}

	p := tea.NewProgram(newSetupModel(models))
	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	finalModel := m.(setupModel)
	if finalModel.cancelled {
		fmt.Println("Setup cancelled")
		return nil
	}

	config := setupConfig{
		FeatureModel:   finalModel.selectedModels[0],
		TestPointModel: finalModel.selectedModels[1],
		TestCaseModel:  finalModel.selectedModels[2],
	}
	if err := saveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.SuccessStyle.Render("✓") + " Configuration saved to " + configPath)
	fmt.Println()
	fmt.Println("Selected models:")
	fmt.Printf("  Features:    %s\n", tui.ModelStyle.Render(config.FeatureModel))
	fmt.Printf("  Test points: %s\n", tui.ModelStyle.Render(config.TestPointModel))
	fmt.Printf("  Test cases:  %s\n", tui.ModelStyle.Render(config.TestCaseModel))

	return nil
}

func saveConfig(path string, config setupConfig) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Bubble Tea model for the setup wizard

type setupModel struct {
	step           int // 0=features, 1=test points, 2=test cases
	lists          []list.Model
	selectedModels []string
	cancelled      bool
	width          int
	height         int
}

type modelItem struct {
	info llm.ModelInfo
}

func (m modelItem) Title() string       { return m.info.Name }
func (m modelItem) Description() string { return m.info.Description }
func (m modelItem) FilterValue() string { return m.info.Name }

func newSetupModel(models []llm.ModelInfo) setupModel {
	items := make([]list.Item, len(models))
	for i, m := range models {
		items[i] = modelItem{info: m}
	}

	lists := make([]list.Model, 3)
	titles := []string{
		"Select Feature Model (Stage 1)",
		"Select Test Point Model (Stage 2)",
		"Select Test Case Model (Stage 3)",
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("#9b59b6"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("#95a5a6"))

	for i := 0; i < 3; i++ {
		l := list.New(items, delegate, 60, 14)
		l.Title = titles[i]
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)
		l.Styles.Title = tui.TitleStyle
		lists[i] = l
	}

	return setupModel{
		lists:          lists,
		selectedModels: make([]string, 3),
	}
}

func (m setupModel) Init() tea.Cmd {
	return nil
}

func (m setupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for i := range m.lists {
			m.lists[i].SetWidth(msg.Width)
			m.lists[i].SetHeight(msg.Height - 4)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit

		case "enter":
			if item, ok := m.lists[m.step].SelectedItem().(modelItem); ok {
				m.selectedModels[m.step] = item.info.ID
			}
			m.step++
			if m.step >= 3 {
				return m, tea.Quit
			}
			return m, nil

		case "left", "h":
			if m.step > 0 {
				m.step--
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.lists[m.step], cmd = m.lists[m.step].Update(msg)
	return m, cmd
}

func (m setupModel) View() string {
	if m.cancelled {
		return ""
	}

	steps := []string{"Features", "Test Points", "Test Cases"}
	progress := "\n  "
	for i, s := range steps {
		if i == m.step {
			progress += tui.SelectedStyle.Render(fmt.Sprintf("[%s]", s))
		} else if i < m.step {
			progress += tui.SuccessStyle.Render(fmt.Sprintf("✓ %s", s))
		} else {
			progress += tui.UnselectedStyle.Render(fmt.Sprintf("○ %s", s))
		}
		if i < len(steps)-1 {
			progress += " → "
		}
	}
	progress += "\n\n"

	help := tui.HelpStyle.Render("\n  ↑/↓: navigate • enter: select • ←: back • q: quit")

	return progress + m.lists[m.step].View() + help
}
