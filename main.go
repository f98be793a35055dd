package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/csdY123/Neusoft-TestCaseGen/cmd"
)

var version = "0.1.0"

func main() {
	// Endpoint credentials may live in a local .env file.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "testgen",
		Short:   "Generate test cases from requirements documents with LLMs",
		Version: version,
	}

	rootCmd.AddCommand(cmd.GenerateCmd)
	rootCmd.AddCommand(cmd.RegenCmd)
	rootCmd.AddCommand(cmd.EvalCmd)
	rootCmd.AddCommand(cmd.ExportCmd)
	rootCmd.AddCommand(cmd.SetupCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
