package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/feetech"
	"github.com/feetech-drivers/servobus/internal/config"
)

var (
	portName string
	baudRate int
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:     "feetech-cli",
	Short:   "Operator CLI for the Feetech TTL servo bus driver",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "serial port device (e.g. /dev/ttyUSB0)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 1_000_000, "baud rate")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", time.Second, "per-transaction timeout")
}

// openBus resolves the --port/--baud/--timeout flags. When --port is
// unset and servobus.json exists in the current directory, it takes the
// port from that file, and also its baud rate and timeout for any of
// those flags left at its default, so the CLI can be run bare after
// `feetech-cli config` has saved a config once.
func openBus() (*feetech.Bus, error) {
	port, baud, to := portName, baudRate, timeout

	if port == "" && config.Exists() {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", config.DefaultConfigFile, err)
		}
		port = cfg.Port
		if baud == 1_000_000 && cfg.BaudRate != 0 {
			baud = cfg.BaudRate
		}
		if to == time.Second && cfg.TimeoutMs != 0 {
			to = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}
	}

	if port == "" {
		return nil, fmt.Errorf("missing --port (and no %s found)", config.DefaultConfigFile)
	}

	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Timeout:  to,
	})
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "feetech-cli: %v\n", err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
