package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var climateCmd = &cobra.Command{
	Use:   "climate",
	Short: "Environmental controller commands",
}

var climateReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Run one control cycle and print the result",
	Long: `Read the temperature once (with retries) and apply the fan and light rules
for the people currently checked in, as a single controller tick would.`,
	Args: cobra.NoArgs,
	RunE: runClimateRead,
}

func init() {
	rootCmd.AddCommand(climateCmd)
	climateCmd.AddCommand(climateReadCmd)
}

func runClimateRead(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.climate.Tick(ctx)
	st := a.climate.State()

	if report.SensorErr != nil {
		fmt.Printf("Sensor:    read failed: %v\n", report.SensorErr)
	} else {
		fmt.Printf("Sensor:    %.1f°C, %.0f%% humidity\n", report.Reading.Temperature, report.Reading.Humidity)
	}
	fmt.Printf("Occupancy: %d\n", report.Occupancy)
	fmt.Printf("Fan:       %s (%s, threshold %.1f°C)\n", onOff(st.Fan.On), st.Fan.Mode, st.Threshold)
	fmt.Printf("Light:     %s\n", onOff(st.Light.On))
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
