package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/internal/app"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// json command flags
var (
	jsonOutput    string
	jsonLines     bool
	jsonStartTime string
	jsonMinSignal string
	jsonSSID      string
	jsonWhere     string
)

var jsonCmd = &cobra.Command{
	Use:   "json <log>",
	Short: "Export device records as JSON",
	Long: `Write the full JSON record of every device. By default the records are
written as one indented array. With --lines each record is written on its
own line with empty legacy subtrees removed, for log shippers such as
filebeat.`,
	Example: `  kismetdb json survey.kismet -o devices.json
  kismetdb json survey.kismet --lines | filebeat -e`,
	Args:    cobra.ExactArgs(1),
	GroupID: "convert",
	RunE:    runJSON,
}

func init() {
	jsonCmd.Flags().StringVarP(&jsonOutput, "output", "o", "", "Output file (default: stdout)")
	jsonCmd.Flags().BoolVar(&jsonLines, "lines", false, "One record per line")
	jsonCmd.Flags().StringVar(&jsonStartTime, "start-time", "", "Only devices seen after this time")
	jsonCmd.Flags().StringVar(&jsonMinSignal, "min-signal", "", "Only devices with a best signal above this")
	jsonCmd.Flags().StringVar(&jsonSSID, "ssid", "", "Only devices advertising a matching SSID (regex)")
	jsonCmd.Flags().StringVarP(&jsonWhere, "where", "w", "", "Row expression")
}

func runJSON(cmd *cobra.Command, args []string) error {
	out, err := createOutput(jsonOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg := app.JSONConfig{
		DeviceConfig: app.DeviceConfig{
			SourceConfig: source(args[0], schema.TableDevices),
			SSID:         jsonSSID,
		},
		Lines: jsonLines,
	}
	cfg.Filters = deviceFilters(jsonStartTime, jsonMinSignal)
	cfg.Where = jsonWhere

	n, err := app.RunDeviceJSON(context.Background(), out, cfg)
	if err != nil {
		return err
	}
	if jsonOutput != "" && jsonOutput != "-" {
		fmt.Fprintf(os.Stderr, "Exported %d devices to %s\n", n, jsonOutput)
	}
	return nil
}
