package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/station"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <image>",
	Short: "Recognise one image and record attendance",
	Long: `Recognise the face in an image file and immediately record an IN or OUT
entry for the matched person. Unknown faces are reported and not recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp(ctx, appOptions{loadGallery: true})
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.station.Snapshot(ctx, data)
	if err != nil {
		if text := station.StatusText(err); text != "" {
			fmt.Println(text)
		}
		return err
	}
	fmt.Println(outcome.Message())
	return nil
}
