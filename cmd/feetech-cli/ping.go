package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping <id>",
	Short: "Ping a single servo ID and print its status",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	status, err := bus.Ping(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Printf("id %d: status %#02x, torque_enabled=%v, errors=%v\n", id, status.Raw, status.TorqueEnabled, status.Errors)
	return nil
}
