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

// pcap command flags
var (
	pcapOutput    string
	pcapLimit     int
	pcapSources   []string
	pcapStartTime string
	pcapEndTime   string
	pcapMinSignal string
	pcapWhere     string
)

var pcapCmd = &cobra.Command{
	Use:   "pcap <log>",
	Short: "Export captured packets to pcap",
	Long: `Write the packets stored in a log to classic pcap files. Only packets
with a link type are exported; the file header uses the link type of the
first packet. With --limit-packets the output is split into files named
<output>-<n>.pcap.`,
	Example: `  kismetdb pcap survey.kismet -o survey.pcap
  kismetdb pcap survey.kismet -o survey --limit-packets 100000
  kismetdb pcap survey.kismet -o wlan0.pcap --source-uuid 5FE308BD-0000-0000-0000-4C0A5CE5ADB0`,
	Args:    cobra.ExactArgs(1),
	GroupID: "convert",
	RunE:    runPcap,
}

func init() {
	pcapCmd.Flags().StringVarP(&pcapOutput, "output", "o", "", "Output file, or file name prefix with --limit-packets")
	pcapCmd.Flags().IntVar(&pcapLimit, "limit-packets", 0, "Packets per output file (0 = single file)")
	pcapCmd.Flags().StringArrayVar(&pcapSources, "source-uuid", nil, "Only packets from this datasource (can be repeated)")
	pcapCmd.Flags().StringVar(&pcapStartTime, "start-time", "", "Only packets after this time")
	pcapCmd.Flags().StringVar(&pcapEndTime, "end-time", "", "Only packets before this time")
	pcapCmd.Flags().StringVar(&pcapMinSignal, "min-signal", "", "Only packets with a signal above this")
	pcapCmd.Flags().StringVarP(&pcapWhere, "where", "w", "", "Row expression")
	_ = pcapCmd.MarkFlagRequired("output")
}

func runPcap(cmd *cobra.Command, args []string) error {
	filters := model.Filters{}
	if len(pcapSources) > 0 {
		filters["datasource"] = pcapSources
	}
	if pcapStartTime != "" {
		filters["ts_sec_gt"] = pcapStartTime
	}
	if pcapEndTime != "" {
		filters["ts_sec_lt"] = pcapEndTime
	}
	if pcapMinSignal != "" {
		filters["min_signal"] = pcapMinSignal
	}

	cfg := app.PcapConfig{
		SourceConfig: source(args[0], schema.TablePackets),
		Title:        pcapOutput,
		Limit:        pcapLimit,
	}
	cfg.Filters = filters
	cfg.Where = pcapWhere

	res, err := app.RunPcap(context.Background(), cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d packets to %d file(s)\n", res.Packets, len(res.Files))
	return nil
}
