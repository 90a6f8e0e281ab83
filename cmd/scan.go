package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/camera"
	"github.com/kozaktomas/presence-station/internal/station"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the kiosk capture loop on a camera",
	Long: `Read frames from the camera until a face is captured, then ask whether to
confirm the capture (records IN/OUT), retake it or quit.

With --dir the frames are replayed from the images of a directory instead.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("device", -1, "Video device index (overrides CAMERA_DEVICE)")
	scanCmd.Flags().String("dir", "", "Replay frames from the images in this directory")
	scanCmd.Flags().Bool("yes", false, "Confirm every capture without asking")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{mirror: true, loadGallery: true})
	if err != nil {
		return err
	}
	defer a.Close()
	go a.buzzer.Run(ctx)

	src, err := openSource(cmd, a.cfg.Camera.Device)
	if err != nil {
		return err
	}
	defer src.Close()

	prompt := &linePrompter{in: bufio.NewReader(os.Stdin), auto: mustGetBool(cmd, "yes")}
	fmt.Printf("Scanning with %d known faces. Look at the camera.\n", len(a.store.Gallery()))
	return station.NewKiosk(a.station, src, prompt, os.Stdout, "cli").Run(ctx)
}

// linePrompter reads answers from stdin. In auto mode every capture is confirmed
// and a capture whose confirm failed is retaken.
type linePrompter struct {
	in   *bufio.Reader
	auto bool
}

func (p *linePrompter) Ask(_ context.Context, retry bool) (station.Choice, error) {
	if p.auto {
		if retry {
			return station.ChoiceRetake, nil
		}
		return station.ChoiceConfirm, nil
	}

	if retry {
		fmt.Print("Try again? ")
	}
	fmt.Print("[c]onfirm, [r]etake or [q]uit? ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return station.ChoiceQuit, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "c", "confirm", "":
		return station.ChoiceConfirm, nil
	case "q", "quit":
		return station.ChoiceQuit, nil
	default:
		return station.ChoiceRetake, nil
	}
}

// openSource opens the frame directory or the camera device.
func openSource(cmd *cobra.Command, defaultDevice int) (camera.Source, error) {
	if dir := mustGetString(cmd, "dir"); dir != "" {
		return camera.OpenDir(dir)
	}
	device := mustGetInt(cmd, "device")
	if device < 0 {
		device = defaultDevice
	}
	src, err := camera.OpenDevice(device)
	if err != nil {
		return nil, err
	}
	// Give the sensor time to adjust exposure.
	time.Sleep(500 * time.Millisecond)
	return src, nil
}
