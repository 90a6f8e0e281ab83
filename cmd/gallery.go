package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/gallery"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Load the known faces and list the identities",
	Args:  cobra.NoArgs,
	RunE:  runGallery,
}

func init() {
	rootCmd.AddCommand(galleryCmd)

	galleryCmd.Flags().Bool("json", false, "Output as JSON")
}

type galleryOutput struct {
	Identities []gallery.Worker   `json:"identities"`
	Report     gallery.LoadReport `json:"report"`
}

func runGallery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if jsonOutput {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Embedding faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
			)
		}
		bar.Set(done)
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.store.Reload(ctx, progress)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	workers, err := a.store.Workers()
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(galleryOutput{Identities: workers, Report: report})
	}

	fmt.Printf("Loaded %d of %d images\n\n", report.Loaded, report.Files)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tEMPLOYEE ID\tDEPARTMENT\tPOSITION")
	for _, wk := range workers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", wk.Key, wk.FullName, wk.EmployeeID, wk.Department, wk.Position)
	}
	w.Flush()

	if len(report.Skipped) > 0 {
		fmt.Printf("\nSkipped %d images:\n", len(report.Skipped))
		for _, sk := range report.Skipped {
			fmt.Printf("  %s: %s\n", sk.File, sk.Reason)
		}
	}
	return nil
}
