package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/feetech"
)

var rawAccess bool

var readCmd = &cobra.Command{
	Use:   "read <id> <register>",
	Short: "Read a named register from a servo (raw debug access)",
	Args:  cobra.ExactArgs(2),
	RunE:  runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <id> <register> <value>",
	Short: "Write a named register on a servo (raw debug access)",
	Args:  cobra.ExactArgs(3),
	RunE:  runWrite,
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	readCmd.Flags().BoolVar(&rawAccess, "raw", false, "read the raw integer instead of the converted value")
	writeCmd.Flags().BoolVar(&rawAccess, "raw", false, "write the raw integer instead of a converted value")
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	mode := feetech.Converted
	if rawAccess {
		mode = feetech.Raw
	}

	v, err := bus.ReadRegister(context.Background(), id, args[1], mode)
	if err != nil {
		return err
	}
	fmt.Printf("%s = %v\n", args[1], v)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[2], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	mode := feetech.Converted
	if rawAccess {
		mode = feetech.Raw
	}

	status, err := bus.WriteRegister(context.Background(), id, args[1], value, mode, true)
	if err != nil {
		return err
	}
	fmt.Printf("ok, status %#02x\n", status.Raw)
	return nil
}
