package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/presence-station/internal/gallery"
)

var registerCmd = &cobra.Command{
	Use:   "register <image>",
	Short: "Register a new worker",
	Long: `Store the photo and details of a worker in the gallery.
The identity key is the full name with spaces replaced by underscores.
Registering an existing name replaces the photo and details.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Full name (required)")
	registerCmd.Flags().String("employee-id", "", "Employee ID")
	registerCmd.Flags().String("department", "", "Department")
	registerCmd.Flags().String("position", "", "Position")
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	name := mustGetString(cmd, "name")
	if name == "" {
		return errors.New("--name is required")
	}
	photo, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	w, err := a.store.Register(ctx, gallery.Registration{
		Worker: gallery.Worker{
			FullName:   name,
			EmployeeID: mustGetString(cmd, "employee-id"),
			Department: mustGetString(cmd, "department"),
			Position:   mustGetString(cmd, "position"),
		},
		Photo: photo,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s registered successfully (%d identities)\n", w.Key, len(a.store.Gallery()))
	return nil
}
