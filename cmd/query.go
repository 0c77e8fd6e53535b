package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/export"
	"github.com/Zerofisher/kismetdb/internal/app"
)

// query command flags
var (
	queryFilters []string
	queryWhere   string
	queryMeta    bool
	queryFormat  string
	queryCount   int
	queryVerbose bool
	queryHex     bool
	queryFields  []string
)

var queryCmd = &cobra.Command{
	Use:   "query <table> <log>",
	Short: "Query rows of a log table",
	Long: `Query one table of a Kismet log and print the matching rows.

Filters are passed as name=value with -f. Repeat a name to match any of
several values. Unknown filter names are ignored; run
"kismetdb list filters <table>" to see the ones a table supports.`,
	Example: `  kismetdb query devices survey.kismet
  kismetdb query devices survey.kismet -f devmac=00:11:22:33:44:55 -f devmac=00:11:22:33:44:66
  kismetdb query packets survey.kismet -f ts_sec_gt="2018-01-01 12:00" -f min_signal=-60 -c 20
  kismetdb query packets survey.kismet -V -x -c 1
  kismetdb query alerts survey.kismet --meta -T jsonl
  kismetdb query packets survey.kismet --meta -T fields -e sourcemac -e signal -w 'signal > -50'`,
	Args:    cobra.ExactArgs(2),
	GroupID: "query",
	RunE:    runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil,
		"Filter as name=value (can be specified multiple times)")
	queryCmd.Flags().StringVarP(&queryWhere, "where", "w", "",
		"Row expression evaluated over decoded rows")
	queryCmd.Flags().BoolVar(&queryMeta, "meta", false, "Omit the bulk column")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "T", "text",
		"Output format: text, json, jsonl, fields")
	queryCmd.Flags().IntVarP(&queryCount, "count", "c", 0, "Stop after n rows (0 = unlimited)")
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "V", false, "Show row details")
	queryCmd.Flags().BoolVarP(&queryHex, "hex", "x", false, "Show hex dump of the bulk column")
	queryCmd.Flags().StringArrayVarP(&queryFields, "field", "e", nil,
		"Column to extract with -T fields (can be specified multiple times)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(queryFormat)
	if err != nil {
		return err
	}
	if format == export.FormatFields {
		if err := app.ValidateFields(queryFields); err != nil {
			return err
		}
	}
	filters, err := app.ParseFilters(queryFilters)
	if err != nil {
		return err
	}

	cfg := app.ExportConfig{
		SourceConfig: source(args[1], args[0]),
		Meta:         queryMeta,
		Format:       format,
		MaxCount:     queryCount,
		ShowDetail:   queryVerbose,
		ShowHex:      queryHex,
		Fields:       queryFields,
	}
	cfg.Filters = filters
	cfg.Where = queryWhere

	return app.RunExport(context.Background(), os.Stdout, cfg)
}
