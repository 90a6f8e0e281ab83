package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/facematch"
)

var presenceCmd = &cobra.Command{
	Use:   "presence",
	Short: "Show who is currently checked in",
	Long:  "Replay the attendance log and list everyone whose last entry is IN.",
	Args:  cobra.NoArgs,
	RunE:  runPresence,
}

func init() {
	rootCmd.AddCommand(presenceCmd)
}

func runPresence(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.registry.Snapshot()
	fmt.Printf("%d present\n", len(entries))
	if len(entries) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSINCE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", facematch.DisplayName(e.Key), e.CheckedIn.Format(constants.LogTimeLayout))
	}
	return w.Flush()
}
