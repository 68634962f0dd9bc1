package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/feetech-drivers/servobus/calibration"
	"github.com/feetech-drivers/servobus/feetech"
)

var (
	calibFile     string
	calibRangeMin int
	calibRangeMax int
	calibInvert   bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <id>",
	Short: "Set a homing offset and usable range for a servo, saved to a calibration file",
	Long: `Reads the servo's current present_position as its raw center, derives a
homing offset that zeroes it, writes the offset to the servo, and saves
the resulting calibration (range + drive direction) to --file.`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().StringVar(&calibFile, "file", "calibration.json", "calibration file to update")
	calibrateCmd.Flags().IntVar(&calibRangeMin, "range-min", 500, "usable range minimum (raw steps)")
	calibrateCmd.Flags().IntVar(&calibRangeMax, "range-max", 3500, "usable range maximum (raw steps)")
	calibrateCmd.Flags().BoolVar(&calibInvert, "invert", false, "invert drive direction")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, id)

	center, err := servo.ReadRegister(ctx, "present_position", feetech.Raw)
	if err != nil {
		return fmt.Errorf("read present_position: %w", err)
	}

	cal := calibration.NewMotorCalibration(id)
	cal.RangeMin = calibRangeMin
	cal.RangeMax = calibRangeMax
	cal.HomingOffset = cal.GetCenterPosition() - int(center)
	if calibInvert {
		cal.DriveMode = 1
	}
	if err := cal.Validate(); err != nil {
		return fmt.Errorf("invalid calibration: %w", err)
	}

	if err := cal.ApplyHomingOffset(ctx, servo); err != nil {
		return fmt.Errorf("apply homing offset: %w", err)
	}

	existing, err := calibration.LoadCalibrations(calibFile)
	if err != nil {
		existing = make(map[int]*calibration.MotorCalibration)
	}
	existing[id] = cal

	if err := calibration.SaveCalibrations(calibFile, existing, nil); err != nil {
		return fmt.Errorf("save %s: %w", calibFile, err)
	}

	fmt.Printf("%s\nwrote %s\n", cal, calibFile)
	return nil
}
