package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/internal/app"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// csv command flags
var (
	csvTable   string
	csvOutput  string
	csvFilters []string
	csvWhere   string
)

var csvCmd = &cobra.Command{
	Use:   "csv <log>",
	Short: "Convert a log table to tab-separated text",
	Long: `Write the metadata columns of one table as tab-separated values with a
header line. The output defaults to <log>-<table>.csv.`,
	Example: `  kismetdb csv survey.kismet
  kismetdb csv survey.kismet -t packets -o - -f phyname=IEEE802.11`,
	Args:    cobra.ExactArgs(1),
	GroupID: "convert",
	RunE:    runCSV,
}

func init() {
	csvCmd.Flags().StringVarP(&csvTable, "table", "t", schema.TableDevices, "Table to convert")
	csvCmd.Flags().StringVarP(&csvOutput, "output", "o", "", "Output file (- for stdout)")
	csvCmd.Flags().StringArrayVarP(&csvFilters, "filter", "f", nil, "Filter as name=value")
	csvCmd.Flags().StringVarP(&csvWhere, "where", "w", "", "Row expression")
}

func runCSV(cmd *cobra.Command, args []string) error {
	filters, err := app.ParseFilters(csvFilters)
	if err != nil {
		return err
	}

	name := csvOutput
	if name == "" {
		name = fmt.Sprintf("%s-%s.csv", args[0], csvTable)
		if _, err := os.Stat(name); err == nil {
			return fmt.Errorf("output file %s already exists", name)
		}
	}
	out, err := createOutput(name)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg := source(args[0], csvTable)
	cfg.Filters = filters
	cfg.Where = csvWhere

	n, err := app.RunCSV(context.Background(), out, cfg)
	if err != nil {
		return err
	}
	if name != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", n, name)
	}
	return nil
}
