package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/internal/config"
)

var configIDs string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the current --port/--baud/--timeout flags to servobus.json",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVar(&configIDs, "ids", "", "comma-separated servo IDs to remember alongside the connection")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if portName == "" {
		return fmt.Errorf("missing --port")
	}

	cfg := &config.Config{
		Port:      portName,
		BaudRate:  baudRate,
		TimeoutMs: int(timeout.Milliseconds()),
		ServoIDs:  parseIDList(configIDs),
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("save %s: %w", config.DefaultConfigFile, err)
	}
	fmt.Printf("wrote %s\n", config.DefaultConfigFile)
	return nil
}

func parseIDList(s string) []int {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
