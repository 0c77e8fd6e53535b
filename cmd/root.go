// Package cmd provides the CLI commands for kismetdb using Cobra.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/internal/app"
	"github.com/Zerofisher/kismetdb/internal/config"
	"github.com/Zerofisher/kismetdb/internal/logger"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// global flags and the settings resolved from them
var (
	configFile string
	settings   = &config.Config{}
	log        = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "kismetdb",
	Short: "Query and convert Kismet log files",
	Long: `kismetdb reads the SQLite logs written by Kismet (.kismet files) for
schema versions 4 through 8. It supports:

  - Filtered queries over devices, packets, data, datasources, alerts,
    messages and snapshots
  - Row expressions evaluated over decoded rows
  - CSV, KML, device JSON and pcap conversion
  - Server information and summary reports

Examples:
  kismetdb query devices survey.kismet -f phyname=IEEE802.11      # List Wi-Fi devices
  kismetdb query packets survey.kismet -f ts_sec_gt=2018-01-01 -c 10
  kismetdb pcap survey.kismet -o survey.pcap                     # Export packets
  kismetdb kml survey.kismet -o survey.kml --min-signal -70      # Plot devices
  kismetdb info survey.kismet                                    # Show server info`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	defer func() { _ = log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Define command groups for organized help output
	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Query Commands:"},
		&cobra.Group{ID: "convert", Title: "Conversion Commands:"},
		&cobra.Group{ID: "info", Title: "Information Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (YAML)")
	pf.String(config.KeyLogLevel, "warn", "Log level: debug, info, warn, error")
	pf.String(config.KeyLogFormat, "console", "Log format: console, json")
	pf.Bool(config.KeyImmutable, false, "Open logs as immutable (read-only media)")
	pf.Bool(config.KeyInverted, false, "Use the legacy inverted comparison for ts_gt/ts_lt filters")

	// Add subcommands
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(csvCmd)
	rootCmd.AddCommand(kmlCmd)
	rootCmd.AddCommand(jsonCmd)
	rootCmd.AddCommand(pcapCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(listCmd)
}

// setup resolves settings and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogFormat})
	if err != nil {
		return err
	}
	settings = cfg
	log = l
	return nil
}

// source builds the app config for a table of a log.
func source(path, table string) app.SourceConfig {
	return app.SourceConfig{
		Path:               path,
		Table:              table,
		Immutable:          settings.Immutable,
		InvertedTimestamps: settings.InvertedTimestamps,
		Logger:             log,
	}
}

// nopCloser wraps stdout so callers can always Close their output.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// createOutput opens name for writing; "" and "-" mean stdout.
func createOutput(name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
