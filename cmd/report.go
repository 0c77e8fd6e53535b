package cmd

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/internal/report"
)

var reportCmd = &cobra.Command{
	Use:     "report <log>",
	Short:   "Generate a summary report of a log",
	Long:    `Generate a Markdown summary of a Kismet log: server, tables, datasources, devices and alerts.`,
	GroupID: "info",
	Args:    cobra.ExactArgs(1),
	RunE:    runReport,
}

var (
	reportFormat string
	reportOutput string
	reportTop    int
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "T", "markdown", "Output format: markdown, json")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file (default: stdout)")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Entries in each ranking")
}

func runReport(cmd *cobra.Command, args []string) error {
	switch reportFormat {
	case "markdown", "md", "json":
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}

	ctx := context.Background()

	// Generate report
	data, err := report.Generate(ctx, report.Config{
		Path:      args[0],
		Immutable: settings.Immutable,
		Top:       reportTop,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	// Output
	out, err := createOutput(reportOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	if reportFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return report.WriteMarkdown(out, data)
}
