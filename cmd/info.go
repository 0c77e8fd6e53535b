package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/serverinfo"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <log>",
	Short: "Show the server that wrote a log",
	Long:  `Show the Kismet version, schema version and server description recorded in a log.`,
	Example: `  kismetdb info survey.kismet
  kismetdb info survey.kismet --json`,
	Args:    cobra.ExactArgs(1),
	GroupID: "info",
	RunE:    runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output as JSON")
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	opts := source(args[0], "").Options()

	control, err := serverinfo.LoadControl(ctx, args[0], opts...)
	if err != nil {
		return err
	}
	info, err := serverinfo.Load(ctx, args[0], opts...)
	if err != nil && !errors.Is(err, serverinfo.ErrNoSystemSnapshot) {
		return err
	}

	if infoJSON {
		data, err := json.MarshalIndent(struct {
			Control *serverinfo.Control `json:"control"`
			Server  *serverinfo.Info    `json:"server,omitempty"`
		}{control, info}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Kismet version:  %s\n", control.KismetVersion)
	fmt.Printf("Schema version:  %d\n", control.DBVersion)
	fmt.Printf("Log module:      %s\n", control.DBModule)
	if info == nil {
		fmt.Fprintln(os.Stderr, "No server snapshot recorded in this log.")
		return nil
	}
	fmt.Printf("Server version:  %s (%s)\n", info.Version, info.Git)
	fmt.Printf("Server name:     %s\n", info.Name)
	fmt.Printf("Server UUID:     %s\n", info.UUID)
	fmt.Printf("Location:        %s\n", info.Location)
	fmt.Printf("Description:     %s\n", info.Description)
	fmt.Printf("User:            %s\n", info.User)
	fmt.Printf("Recorded:        %s\n", convert.TimestampToISO(info.Timestamp.Sec))
	return nil
}
