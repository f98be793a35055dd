package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/csdY123/Neusoft-TestCaseGen/internal/export"
)

var (
	exportCSVPath      string
	exportMarkdownPath string
)

// ExportCmd converts a saved session into review formats.
var ExportCmd = &cobra.Command{
	Use:   "export <session.json>",
	Short: "Export a saved session to CSV or markdown",
	Long: `Convert a session snapshot into review formats.

With --csv, every test case becomes one row with its steps flattened.
With --markdown, the session is rendered as a hierarchy overview with a
detail section per test case. With neither flag the markdown overview is
printed to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	ExportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write test cases to this CSV file")
	ExportCmd.Flags().StringVar(&exportMarkdownPath, "markdown", "", "Write the markdown overview to this file")
}

func runExport(cmd *cobra.Command, args []string) error {
	snap, err := export.Load(args[0])
	if err != nil {
		return err
	}

	if exportCSVPath == "" && exportMarkdownPath == "" {
		fmt.Println(snap.Visualize())
		return nil
	}

	if exportCSVPath != "" {
		f, err := os.Create(exportCSVPath)
		if err != nil {
			return fmt.Errorf("creating CSV file: %w", err)
		}
		defer f.Close()
		if err := snap.WriteCSV(f); err != nil {
			return err
		}
		fmt.Printf("Exported test cases to: %s\n", exportCSVPath)
	}

	if exportMarkdownPath != "" {
		if err := os.WriteFile(exportMarkdownPath, []byte(snap.Visualize()), 0o644); err != nil {
			return fmt.Errorf("writing markdown overview: %w", err)
		}
		fmt.Printf("Wrote overview to: %s\n", exportMarkdownPath)
	}

	return nil
}
