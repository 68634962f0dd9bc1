package feetech

import "context"

// Servo is a named-register convenience wrapper around a Bus and a
// specific servo ID. It has no state of its own beyond the ID and model
// binding; every operation goes straight through to the Bus.
type Servo struct {
	bus   *Bus
	id    int
	model *Model
}

// NewServo binds a Servo to bus/id, defaulting to the STS3215 model
// until DetectModel or SetModel overrides it.
func NewServo(bus *Bus, id int) *Servo {
	return &Servo{bus: bus, id: id, model: STS3215}
}

// ID returns the servo's bus address.
func (s *Servo) ID() int { return s.id }

// Model returns the servo's currently bound model.
func (s *Servo) Model() *Model { return s.model }

// SetModel records m as the servo's model, without touching the bus.
// Register reads and writes still use the Bus's own control table.
func (s *Servo) SetModel(m *Model) { s.model = m }

// Ping pings the servo and returns its status info.
func (s *Servo) Ping(ctx context.Context) (Status, error) {
	return s.bus.Ping(ctx, s.id)
}

// DetectModel reads the model_number register (if present in the
// current table) and rebinds the servo if a matching model is
// registered. STS-family models carry no model_number register in this
// table; SCS-family tables do.
func (s *Servo) DetectModel(ctx context.Context) (*Model, error) {
	if _, err := s.model.ControlTable.Lookup("model_number"); err != nil {
		return s.model, nil
	}
	v, err := s.bus.ReadRegister(ctx, s.id, "model_number", Raw)
	if err != nil {
		return nil, err
	}
	if m, ok := GetModelByNumber(int(v)); ok {
		s.model = m
	}
	return s.model, nil
}

func (s *Servo) read(ctx context.Context, name string) (float64, error) {
	return s.bus.ReadRegister(ctx, s.id, name, Converted)
}

func (s *Servo) write(ctx context.Context, name string, value float64, await bool) error {
	_, err := s.bus.WriteRegister(ctx, s.id, name, value, Converted, await)
	return err
}

// Position returns present_position in radians.
func (s *Servo) Position(ctx context.Context) (float64, error) {
	return s.read(ctx, "present_position")
}

// SetPosition writes goal_position in radians.
func (s *Servo) SetPosition(ctx context.Context, radians float64) error {
	return s.write(ctx, "goal_position", radians, true)
}

// SetPositionWithSpeed writes goal_position then goal_speed.
func (s *Servo) SetPositionWithSpeed(ctx context.Context, radians, speed float64) error {
	if err := s.write(ctx, "goal_position", radians, true); err != nil {
		return err
	}
	return s.write(ctx, "goal_speed", speed, true)
}

// SetPositionWithTime writes goal_position then goal_time (milliseconds).
func (s *Servo) SetPositionWithTime(ctx context.Context, radians, goalTimeMs float64) error {
	if err := s.write(ctx, "goal_position", radians, true); err != nil {
		return err
	}
	return s.write(ctx, "goal_time", goalTimeMs, true)
}

// Velocity returns present_speed in radians/sec, signed.
func (s *Servo) Velocity(ctx context.Context) (float64, error) {
	return s.read(ctx, "present_speed")
}

// SetVelocity writes goal_speed.
func (s *Servo) SetVelocity(ctx context.Context, radiansPerSec float64) error {
	return s.write(ctx, "goal_speed", radiansPerSec, true)
}

// TorqueEnabled reads torque_enable as a bool.
func (s *Servo) TorqueEnabled(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, "torque_enable")
	return v != 0, err
}

// SetTorqueEnabled writes torque_enable.
func (s *Servo) SetTorqueEnabled(ctx context.Context, enabled bool) error {
	v := 0.0
	if enabled {
		v = 1
	}
	return s.write(ctx, "torque_enable", v, true)
}

// Enable is shorthand for SetTorqueEnabled(ctx, true).
func (s *Servo) Enable(ctx context.Context) error { return s.SetTorqueEnabled(ctx, true) }

// Disable is shorthand for SetTorqueEnabled(ctx, false).
func (s *Servo) Disable(ctx context.Context) error { return s.SetTorqueEnabled(ctx, false) }

// Moving reads the moving flag.
func (s *Servo) Moving(ctx context.Context) (bool, error) {
	v, err := s.read(ctx, "moving")
	return v != 0, err
}

// Load returns present_load as a signed fraction (-1.0..1.0 nominal).
func (s *Servo) Load(ctx context.Context) (float64, error) {
	v, err := s.read(ctx, "present_load")
	return v / 100, err
}

// Voltage returns present_voltage in volts.
func (s *Servo) Voltage(ctx context.Context) (float64, error) {
	return s.read(ctx, "present_voltage")
}

// Temperature returns present_temperature in degrees Celsius.
func (s *Servo) Temperature(ctx context.Context) (float64, error) {
	return s.read(ctx, "present_temperature")
}

// OperatingMode reads mode.
func (s *Servo) OperatingMode(ctx context.Context) (Mode, error) {
	v, err := s.read(ctx, "mode")
	return Mode(int(v)), err
}

// SetOperatingMode writes mode.
func (s *Servo) SetOperatingMode(ctx context.Context, m Mode) error {
	return s.write(ctx, "mode", float64(m), true)
}

// PositionLimits reads min_angle_limit/max_angle_limit in radians.
func (s *Servo) PositionLimits(ctx context.Context) (min, max float64, err error) {
	min, err = s.read(ctx, "min_angle_limit")
	if err != nil {
		return 0, 0, err
	}
	max, err = s.read(ctx, "max_angle_limit")
	return min, max, err
}

// SetPositionLimits writes min_angle_limit/max_angle_limit in radians.
func (s *Servo) SetPositionLimits(ctx context.Context, min, max float64) error {
	if err := s.write(ctx, "min_angle_limit", min, true); err != nil {
		return err
	}
	return s.write(ctx, "max_angle_limit", max, true)
}

// SetID disables torque, writes a new bus ID, and rebinds this Servo's
// id on success.
func (s *Servo) SetID(ctx context.Context, newID int) error {
	if err := s.Disable(ctx); err != nil {
		return err
	}
	if err := s.write(ctx, "id", float64(newID), true); err != nil {
		return err
	}
	s.id = newID
	return nil
}

// SetBaudRate disables torque and writes a new baud rate (the servo's
// reported bps value, per the control table's closed baud_rate mapping).
func (s *Servo) SetBaudRate(ctx context.Context, bps int) error {
	if err := s.Disable(ctx); err != nil {
		return err
	}
	return s.write(ctx, "baud_rate", float64(bps), true)
}

// ReadRegister reads an arbitrary named register in the given mode.
func (s *Servo) ReadRegister(ctx context.Context, name string, mode AccessMode) (float64, error) {
	return s.bus.ReadRegister(ctx, s.id, name, mode)
}

// WriteRegister writes an arbitrary named register in the given mode.
func (s *Servo) WriteRegister(ctx context.Context, name string, value float64, mode AccessMode) error {
	_, err := s.bus.WriteRegister(ctx, s.id, name, value, mode, true)
	return err
}
