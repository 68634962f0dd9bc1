package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	scanStart int
	scanEnd   int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep a range of IDs with individual PINGs and report which respond",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanStart, "start", 0, "first ID to ping")
	scanCmd.Flags().IntVar(&scanEnd, "end", 20, "last ID to ping")
}

func runScan(cmd *cobra.Command, args []string) error {
	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	found, err := bus.Scan(context.Background(), scanStart, scanEnd)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		fmt.Println("no servos responded")
		return nil
	}
	for _, f := range found {
		fmt.Printf("id %3d  status %#02x\n", f.ID, f.Status.Raw)
	}
	return nil
}
