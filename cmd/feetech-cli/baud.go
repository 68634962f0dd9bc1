package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/feetech"
)

var baudCmd = &cobra.Command{
	Use:   "baud <id> <rate>",
	Short: "Change a servo's baud rate",
	Long:  `Disables torque and writes the new baud rate. Reconnect with --baud set to the new rate to talk to it afterward.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSetBaud,
}

func init() {
	rootCmd.AddCommand(baudCmd)
}

func runSetBaud(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	rate, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid baud rate %q: %w", args[1], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	servo := feetech.NewServo(bus, id)
	if err := servo.SetBaudRate(context.Background(), rate); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}
	fmt.Printf("servo %d now expects %d baud\n", id, rate)
	return nil
}
