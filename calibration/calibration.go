// Package calibration implements operator-facing position normalization
// layered above the core control table: homing offset, drive-direction
// inversion, and range remapping between a servo's raw step range and
// degrees/percent/raw units.
package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/feetech-drivers/servobus/feetech"
)

// Normalization modes.
const (
	NormModeRaw       = 0 // raw servo step values
	NormModeRange100  = 1 // normalized to 0-100
	NormModeRangeM100 = 2 // normalized to -100..+100
	NormModeDegrees   = 3 // normalized to -180..+180 degrees
)

// MotorCalibration holds per-servo calibration: homing offset, drive
// direction, and the usable raw-step range mapped to a normalization mode.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
	NormMode     int `json:"norm_mode,omitempty"`
}

// NewMotorCalibration returns a calibration spanning the full STS3215
// step range (0-4095) with no offset or inversion.
func NewMotorCalibration(id int) *MotorCalibration {
	return &MotorCalibration{
		ID:       id,
		RangeMin: 0,
		RangeMax: 4095,
		NormMode: NormModeDegrees,
	}
}

// Validate checks the calibration's internal consistency.
func (c *MotorCalibration) Validate() error {
	if c.ID < 0 || c.ID > feetech.MaxServoID {
		return fmt.Errorf("invalid servo ID: %d (must be 0-%d)", c.ID, feetech.MaxServoID)
	}
	if c.RangeMin >= c.RangeMax {
		return fmt.Errorf("invalid range: min (%d) must be less than max (%d)", c.RangeMin, c.RangeMax)
	}
	if c.RangeMin < 0 || c.RangeMax > 4095 {
		return fmt.Errorf("range values must be between 0-4095, got min=%d max=%d", c.RangeMin, c.RangeMax)
	}
	if c.NormMode < NormModeRaw || c.NormMode > NormModeDegrees {
		return fmt.Errorf("invalid normalization mode: %d", c.NormMode)
	}
	return nil
}

// Clone returns a copy of c.
func (c *MotorCalibration) Clone() *MotorCalibration {
	clone := *c
	return &clone
}

// GetRangeSize returns the usable range size in raw steps.
func (c *MotorCalibration) GetRangeSize() int {
	return c.RangeMax - c.RangeMin
}

// GetCenterPosition returns the center of the calibrated range in raw steps.
func (c *MotorCalibration) GetCenterPosition() int {
	return (c.RangeMin + c.RangeMax) / 2
}

// NormalizationModeString returns a human-readable name for NormMode.
func (c *MotorCalibration) NormalizationModeString() string {
	switch c.NormMode {
	case NormModeRaw:
		return "Raw"
	case NormModeRange100:
		return "0-100"
	case NormModeRangeM100:
		return "-100 to +100"
	case NormModeDegrees:
		return "Degrees (-180 to +180)"
	default:
		return "Unknown"
	}
}

func (c *MotorCalibration) String() string {
	direction := "Normal"
	if c.DriveMode != 0 {
		direction = "Inverted"
	}
	return fmt.Sprintf("ID %d: Range[%d-%d] %s %s (offset: %d)",
		c.ID, c.RangeMin, c.RangeMax, c.NormalizationModeString(), direction, c.HomingOffset)
}

// LoadCalibrations loads a flat motor-name-keyed JSON file into a
// servo-ID-keyed map.
func LoadCalibrations(filename string) (map[int]*MotorCalibration, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var motorMap map[string]*MotorCalibration
	if err := json.Unmarshal(data, &motorMap); err != nil {
		return nil, fmt.Errorf("parse calibration file: %w", err)
	}

	result := make(map[int]*MotorCalibration)
	for motorName, cal := range motorMap {
		if cal.NormMode == 0 {
			cal.NormMode = NormModeDegrees
		}
		if err := cal.Validate(); err != nil {
			return nil, fmt.Errorf("invalid calibration for motor %s: %w", motorName, err)
		}
		if _, exists := result[cal.ID]; exists {
			return nil, fmt.Errorf("duplicate servo ID %d found in calibration file", cal.ID)
		}
		result[cal.ID] = cal
	}
	return result, nil
}

// SaveCalibrations writes calibrations back out as a flat motor-name-keyed
// JSON file.
func SaveCalibrations(filename string, calibrations map[int]*MotorCalibration, motorNames map[int]string) error {
	motorMap := make(map[string]*MotorCalibration)
	for id, cal := range calibrations {
		motorName, exists := motorNames[id]
		if !exists {
			motorName = fmt.Sprintf("motor_%d", id)
		}
		motorMap[motorName] = cal
	}

	data, err := json.MarshalIndent(motorMap, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal calibrations: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

// CreateRobotArmCalibration returns a conservative default calibration
// set for a linked chain of servos, restricted to raw steps 500-3500 of
// the full 0-4095 range to avoid mechanical endstops.
func CreateRobotArmCalibration(servoIDs []int) map[int]*MotorCalibration {
	calibrations := make(map[int]*MotorCalibration)
	for _, id := range servoIDs {
		cal := NewMotorCalibration(id)
		cal.RangeMin = 500
		cal.RangeMax = 3500
		calibrations[id] = cal
	}
	return calibrations
}

// Normalize maps a raw servo step value (as already adjusted by the
// servo's own homing offset register) into the calibration's normalized
// unit.
func (c *MotorCalibration) Normalize(rawValue int) (float64, error) {
	var normalized float64

	switch c.NormMode {
	case NormModeRaw:
		normalized = float64(rawValue)
	case NormModeRange100:
		if c.RangeMax == c.RangeMin {
			return 0, fmt.Errorf("invalid calibration: min and max are equal")
		}
		normalized = float64(rawValue-c.RangeMin) / float64(c.RangeMax-c.RangeMin) * 100.0
		normalized = math.Max(0, math.Min(100, normalized))
	case NormModeRangeM100:
		if c.RangeMax == c.RangeMin {
			return 0, fmt.Errorf("invalid calibration: min and max are equal")
		}
		center := float64(c.RangeMin+c.RangeMax) / 2.0
		halfRange := float64(c.RangeMax-c.RangeMin) / 2.0
		normalized = (float64(rawValue) - center) / halfRange * 100.0
		normalized = math.Max(-100, math.Min(100, normalized))
	case NormModeDegrees:
		center := float64(c.RangeMin+c.RangeMax) / 2.0
		halfRange := float64(c.RangeMax-c.RangeMin) / 2.0
		normalized = (float64(rawValue) - center) / halfRange * 180.0
		normalized = math.Max(-180, math.Min(180, normalized))
	default:
		return 0, fmt.Errorf("unknown normalization mode: %d", c.NormMode)
	}

	if c.DriveMode != 0 {
		normalized = c.invert(normalized)
	}
	return normalized, nil
}

func (c *MotorCalibration) invert(normalized float64) float64 {
	switch c.NormMode {
	case NormModeRaw:
		center := float64(c.RangeMin+c.RangeMax) / 2.0
		return 2*center - normalized
	case NormModeRange100:
		return 100.0 - normalized
	default: // NormModeRangeM100, NormModeDegrees
		return -normalized
	}
}

// Denormalize maps a normalized value back to a raw servo step value,
// clamped to the calibration's range.
func (c *MotorCalibration) Denormalize(normalizedValue float64) (int, error) {
	adjustedValue := normalizedValue
	if c.DriveMode != 0 {
		adjustedValue = c.invert(normalizedValue)
	}

	var rawValue int
	switch c.NormMode {
	case NormModeRaw:
		rawValue = int(math.Round(adjustedValue))
	case NormModeRange100:
		if c.RangeMax == c.RangeMin {
			return 0, fmt.Errorf("invalid calibration: min and max are equal")
		}
		clamped := math.Max(0, math.Min(100, adjustedValue))
		rawValue = int(math.Round(clamped/100.0*float64(c.RangeMax-c.RangeMin) + float64(c.RangeMin)))
	case NormModeRangeM100:
		if c.RangeMax == c.RangeMin {
			return 0, fmt.Errorf("invalid calibration: min and max are equal")
		}
		clamped := math.Max(-100, math.Min(100, adjustedValue))
		center := float64(c.RangeMin+c.RangeMax) / 2.0
		halfRange := float64(c.RangeMax-c.RangeMin) / 2.0
		rawValue = int(math.Round(center + clamped/100.0*halfRange))
	case NormModeDegrees:
		clamped := math.Max(-180, math.Min(180, adjustedValue))
		center := float64(c.RangeMin+c.RangeMax) / 2.0
		halfRange := float64(c.RangeMax-c.RangeMin) / 2.0
		rawValue = int(math.Round(center + clamped/180.0*halfRange))
	default:
		return 0, fmt.Errorf("unknown normalization mode: %d", c.NormMode)
	}

	if rawValue < c.RangeMin {
		rawValue = c.RangeMin
	}
	if rawValue > c.RangeMax {
		rawValue = c.RangeMax
	}
	return rawValue, nil
}

// ApplyHomingOffset writes the calibration's homing offset to the
// servo's position_offset register.
func (c *MotorCalibration) ApplyHomingOffset(ctx context.Context, servo *feetech.Servo) error {
	return servo.WriteRegister(ctx, "position_offset", float64(c.HomingOffset), feetech.Converted)
}

// GetHomingOffset returns the calibration's homing offset.
func (c *MotorCalibration) GetHomingOffset() int {
	return c.HomingOffset
}
