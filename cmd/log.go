package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/facematch"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List the attendance log",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("name", "", "Only show entries of this person")
	logCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var entries []attendance.Entry
	if name := mustGetString(cmd, "name"); name != "" {
		entries, err = attendance.EntriesFor(ctx, a.log, facematch.IdentityKey(name))
	} else {
		entries, err = a.log.Entries(ctx)
	}
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		if entries == nil {
			entries = []attendance.Entry{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No attendance entries")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tACTION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Format(constants.LogTimeLayout), facematch.DisplayName(e.Key), e.Action)
	}
	return w.Flush()
}
