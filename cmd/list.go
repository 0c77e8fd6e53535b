package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/pkg/schema"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List available resources",
	Long:    `List the supported tables, their columns and their filters.`,
	GroupID: "info",
}

var listTablesCmd = &cobra.Command{
	Use:     "tables",
	Short:   "List supported tables",
	Long:    `Display the tables kismetdb can read and the schema versions each supports.`,
	Example: `  kismetdb list tables`,
	Args:    cobra.NoArgs,
	RunE:    runListTables,
}

// columns and filters subcommand flags
var listVersion int

var listColumnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "List the columns of a table",
	Long:  `Display the stored columns of a table at a schema version, and the columns added when they are missing.`,
	Example: `  kismetdb list columns packets
  kismetdb list columns packets --version 4`,
	Args: cobra.ExactArgs(1),
	RunE: runListColumns,
}

var listFiltersCmd = &cobra.Command{
	Use:   "filters <table>",
	Short: "List the filters of a table",
	Long:  `Display the filter names a table accepts at a schema version.`,
	Example: `  kismetdb list filters alerts
  kismetdb list filters messages --version 4`,
	Args: cobra.ExactArgs(1),
	RunE: runListFilters,
}

func init() {
	for _, c := range []*cobra.Command{listColumnsCmd, listFiltersCmd} {
		c.Flags().IntVar(&listVersion, "version", schema.MaxVersion, "Schema version")
	}

	listCmd.AddCommand(listTablesCmd)
	listCmd.AddCommand(listColumnsCmd)
	listCmd.AddCommand(listFiltersCmd)
}

// runListTables lists the registered tables
func runListTables(cmd *cobra.Command, args []string) error {
	fmt.Println("Supported tables:")
	fmt.Println(strings.Repeat("-", 60))

	for _, name := range schema.Tables() {
		d, _ := schema.Lookup(name)
		versions := d.SupportedVersions()
		bulk := d.Bulk
		if bulk == "" {
			bulk = "-"
		}
		fmt.Printf("%-12s versions %d-%d\tbulk: %s\n", name, versions[0], versions[len(versions)-1], bulk)
	}
	return nil
}

func resolve(table string) (*schema.Resolved, error) {
	d, ok := schema.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q (see 'kismetdb list tables')", table)
	}
	return d.Resolve(listVersion)
}

// runListColumns lists the columns of a table
func runListColumns(cmd *cobra.Command, args []string) error {
	r, err := resolve(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Columns of %s at version %d:\n", r.Table, r.Version)
	fmt.Println(strings.Repeat("-", 60))
	for _, c := range r.Columns {
		note := ""
		if c == r.Bulk {
			note = "\t(bulk)"
		}
		if kind, ok := r.Converters[c]; ok {
			note += fmt.Sprintf("\t[%s]", kind)
		}
		fmt.Printf("%s%s\n", c, note)
	}
	for _, f := range r.Defaults {
		fmt.Printf("%s\t(default %v)\n", f.Name, f.Value)
	}
	return nil
}

// runListFilters lists the filters of a table
func runListFilters(cmd *cobra.Command, args []string) error {
	r, err := resolve(args[0])
	if err != nil {
		return err
	}

	names := r.FilterNames()
	if len(names) == 0 {
		fmt.Printf("%s has no filters.\n", r.Table)
		return nil
	}
	fmt.Printf("Filters of %s at version %d:\n", r.Table, r.Version)
	fmt.Println(strings.Repeat("-", 60))
	for _, name := range names {
		kind := "virtual timestamp"
		if spec, ok := r.Predicate(name); ok {
			kind = spec.Kind.String()
			if spec.Column != "" {
				kind += " on " + spec.Column
			}
		}
		fmt.Printf("%-24s %s\n", name, kind)
	}
	return nil
}
