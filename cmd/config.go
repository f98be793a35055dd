package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/core"
	"github.com/csdY123/Neusoft-TestCaseGen/internal/llm"
)

// configFileName is looked up in the working directory, then the home
// directory.
const configFileName = ".testgen.yaml"

// fileConfig is the YAML config file structure. Flags override anything set
// here; API keys come from the environment only.
type fileConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	MaxFeatures   int `yaml:"max_features"`
	MaxTestPoints int `yaml:"max_test_points"`

	FeatureModel   string `yaml:"feature_model"`
	TestPointModel string `yaml:"test_point_model"`
	TestCaseModel  string `yaml:"test_case_model"`

	PromptDir string `yaml:"prompt_dir"`
}

// loadFileConfig reads the config file. An explicit path must exist; the
// default lookup returns an empty config when no file is found.
func loadFileConfig(explicit string) (fileConfig, string, error) {
	path := explicit
	if path == "" {
		if _, err := os.Stat(configFileName); err == nil {
			path = configFileName
		} else if home, err := os.UserHomeDir(); err == nil {
			homePath := filepath.Join(home, configFileName)
			if _, err := os.Stat(homePath); err == nil {
				path = homePath
			}
		}
	}
	if path == "" {
		return fileConfig{}, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, "", fmt.Errorf("reading config file: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, "", fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, path, nil
}

func (c fileConfig) llmConfig() llm.Config {
	out := llm.DefaultConfig()
	out.Provider = c.Provider
	out.BaseURL = c.BaseURL
	out.Model = c.Model
	if c.MaxTokens > 0 {
		out.MaxTokens = c.MaxTokens
	}
	if c.Temperature > 0 {
		out.Temperature = c.Temperature
	}
	return out
}

func (c fileConfig) pipelineConfig() core.PipelineConfig {
	cfg := core.DefaultPipelineConfig()
	cfg.MaxFeatures = c.MaxFeatures
	cfg.MaxTestPoints = c.MaxTestPoints
	cfg.FeatureModel = c.FeatureModel
	cfg.TestPointModel = c.TestPointModel
	cfg.TestCaseModel = c.TestCaseModel
	return cfg
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(home, configFileName)
}
