package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/internal/app"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// kml command flags
var (
	kmlOutput    string
	kmlStartTime string
	kmlMinSignal string
	kmlStrongest bool
	kmlTitle     string
	kmlSSID      string
	kmlWhere     string
)

var kmlCmd = &cobra.Command{
	Use:   "kml <log>",
	Short: "Plot devices as KML placemarks",
	Long: `Write a KML document with one placemark per device that has a
location. Devices are placed at their average location, or with
--strongest-point at the location of their strongest signal.`,
	Example: `  kismetdb kml survey.kismet -o survey.kml
  kismetdb kml survey.kismet -o cafe.kml --ssid 'Coffee.*' --strongest-point
  kismetdb kml survey.kismet -o recent.kml --start-time "2018-01-01 12:00" --min-signal -70`,
	Args:    cobra.ExactArgs(1),
	GroupID: "convert",
	RunE:    runKML,
}

func init() {
	kmlCmd.Flags().StringVarP(&kmlOutput, "output", "o", "", "Output file (default: stdout)")
	kmlCmd.Flags().StringVar(&kmlStartTime, "start-time", "", "Only devices seen after this time")
	kmlCmd.Flags().StringVar(&kmlMinSignal, "min-signal", "", "Only devices with a best signal above this")
	kmlCmd.Flags().BoolVar(&kmlStrongest, "strongest-point", false, "Plot devices at their strongest signal")
	kmlCmd.Flags().StringVar(&kmlTitle, "title", "Kismet", "Title embedded in the KML document")
	kmlCmd.Flags().StringVar(&kmlSSID, "ssid", "", "Only devices advertising a matching SSID (regex)")
	kmlCmd.Flags().StringVarP(&kmlWhere, "where", "w", "", "Row expression")
}

// deviceFilters maps the common device selection flags to filters.
func deviceFilters(startTime, minSignal string) model.Filters {
	filters := model.Filters{}
	if startTime != "" {
		filters["first_time_gt"] = startTime
	}
	if minSignal != "" {
		filters["strongest_signal_gt"] = minSignal
	}
	return filters
}

func runKML(cmd *cobra.Command, args []string) error {
	out, err := createOutput(kmlOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg := app.KMLConfig{
		DeviceConfig: app.DeviceConfig{
			SourceConfig: source(args[0], schema.TableDevices),
			SSID:         kmlSSID,
		},
		Title:          kmlTitle,
		StrongestPoint: kmlStrongest,
	}
	cfg.Filters = deviceFilters(kmlStartTime, kmlMinSignal)
	cfg.Where = kmlWhere

	n, err := app.RunKML(context.Background(), out, cfg)
	if err != nil {
		return err
	}
	if kmlOutput != "" && kmlOutput != "-" {
		fmt.Fprintf(os.Stderr, "Exported %d devices to %s\n", n, kmlOutput)
	}
	return nil
}
