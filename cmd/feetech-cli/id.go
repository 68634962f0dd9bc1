package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/feetech"
)

var idCmd = &cobra.Command{
	Use:   "id <current-id> <new-id>",
	Short: "Change a servo's bus ID",
	Long:  `Disables torque, writes the new ID, and re-pings at the new ID to confirm the change.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSetID,
}

func init() {
	rootCmd.AddCommand(idCmd)
}

func runSetID(cmd *cobra.Command, args []string) error {
	currentID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid current id %q: %w", args[0], err)
	}
	newID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid new id %q: %w", args[1], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, currentID)
	if err := servo.SetID(ctx, newID); err != nil {
		return fmt.Errorf("set id: %w", err)
	}

	if _, err := bus.Ping(ctx, newID); err != nil {
		return fmt.Errorf("id changed but servo did not respond at %d: %w", newID, err)
	}
	fmt.Printf("servo %d is now id %d\n", currentID, newID)
	return nil
}
