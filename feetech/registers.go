package feetech

import "math"

// Control-table registry (C3): a pluggable, per-model mapping from
// register name to (address, length, conversion), plus the encode/decode
// machinery that converts between user units and raw register bytes.

// Conversion identifies how a register's raw bytes map to a user value.
// This is the closed set the spec allows; there is no escape hatch for an
// arbitrary caller-supplied conversion.
type Conversion int

const (
	ConvNone Conversion = iota
	ConvBool
	ConvScale
	ConvPosition
	ConvSpeed
	ConvSpeedSigned
	ConvLoadSigned
	ConvPositionOffset
	ConvMode
	ConvBaudRate
)

// Sign-magnitude bit positions fixed by the wire format, independent of
// any particular model's register table.
const (
	positionSignBit       = 15
	speedSignBit          = 15
	loadSignBit           = 10
	positionOffsetSignBit = 11
)

// RegisterDef is one entry of a control table: a register's wire address,
// byte length, and semantic conversion. Scale is only meaningful for
// ConvScale.
type RegisterDef struct {
	Address  byte
	Length   int
	Conv     Conversion
	Scale    float64
	ReadOnly bool
}

// Mode is the small enum ConvMode registers decode to.
type Mode int

const (
	ModePosition Mode = iota
	ModeVelocity
	ModePWM
	ModeStep
	ModeUnknown
)

// BaudRates is the closed raw<->bps mapping shared by every model that
// uses ConvBaudRate (index position is the raw byte value).
var BaudRates = []int{1_000_000, 500_000, 250_000, 128_000, 115_200, 76_800, 57_600, 38_400}

// DefaultBaudRate is the fallback raw_to_baud_rate yields on an
// unrecognised raw byte.
const DefaultBaudRate = 1_000_000

// ControlTable is a model's full register set plus the scale constants
// the position/speed conversions depend on.
type ControlTable struct {
	ModelName          string
	StepsPerRevolution int
	PositionScale      float64 // radians per step
	SpeedScale         float64 // radians/sec per speed unit
	Registers          map[string]RegisterDef
}

func (t *ControlTable) lookup(name string) (RegisterDef, error) {
	def, ok := t.Registers[name]
	if !ok {
		return RegisterDef{}, ErrUnknownRegister
	}
	return def, nil
}

// Lookup resolves name to its register definition.
func (t *ControlTable) Lookup(name string) (RegisterDef, error) {
	return t.lookup(name)
}

// ModeToRaw maps a Mode to its raw byte. ModeUnknown has no canonical raw
// value and maps to 0 (position), matching the servo's own power-on default.
func (t *ControlTable) ModeToRaw(m Mode) byte {
	switch m {
	case ModePosition:
		return 0
	case ModeVelocity:
		return 1
	case ModePWM:
		return 2
	case ModeStep:
		return 3
	default:
		return 0
	}
}

// RawToMode maps a raw byte to a Mode, yielding ModeUnknown on any value
// outside the known enum rather than an error.
func (t *ControlTable) RawToMode(raw byte) Mode {
	switch raw {
	case 0:
		return ModePosition
	case 1:
		return ModeVelocity
	case 2:
		return ModePWM
	case 3:
		return ModeStep
	default:
		return ModeUnknown
	}
}

// BaudRateToRaw maps a bps value to its raw index, or 0 (1 Mbps) if bps is
// not one of the closed set.
func (t *ControlTable) BaudRateToRaw(bps int) byte {
	for i, v := range BaudRates {
		if v == bps {
			return byte(i)
		}
	}
	return 0
}

// RawToBaudRate maps a raw index to its bps value, defaulting to
// DefaultBaudRate on an out-of-range index.
func (t *ControlTable) RawToBaudRate(raw byte) int {
	if int(raw) < len(BaudRates) {
		return BaudRates[raw]
	}
	return DefaultBaudRate
}

// EncodeRaw little-endian encodes intValue with no semantic conversion,
// at the register's defined length.
func (t *ControlTable) EncodeRaw(name string, intValue int64) ([]byte, error) {
	def, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	return EncodeUint(intValue, def.Length), nil
}

// DecodeRaw little-endian decodes data with no semantic conversion.
func (t *ControlTable) DecodeRaw(name string, data []byte) (int64, error) {
	if _, err := t.lookup(name); err != nil {
		return 0, err
	}
	return DecodeUint(data), nil
}

// EncodeUser converts a user-unit value into the register's raw bytes per
// its conversion.
func (t *ControlTable) EncodeUser(name string, value float64) ([]byte, error) {
	def, err := t.lookup(name)
	if err != nil {
		return nil, err
	}

	switch def.Conv {
	case ConvNone:
		return EncodeUint(roundHalfAwayFromZero(value), def.Length), nil
	case ConvBool:
		if value != 0 {
			return EncodeUint(1, def.Length), nil
		}
		return EncodeUint(0, def.Length), nil
	case ConvScale:
		return EncodeUint(roundHalfAwayFromZero(value/def.Scale), def.Length), nil
	case ConvPosition:
		return EncodeSignMagnitude(roundHalfAwayFromZero(value/t.PositionScale), positionSignBit, def.Length), nil
	case ConvSpeed:
		return EncodeUint(roundHalfAwayFromZero(value/t.SpeedScale), def.Length), nil
	case ConvSpeedSigned:
		return EncodeSignMagnitude(roundHalfAwayFromZero(value/t.SpeedScale), speedSignBit, def.Length), nil
	case ConvLoadSigned:
		return EncodeSignMagnitude(roundHalfAwayFromZero(value/0.1), loadSignBit, def.Length), nil
	case ConvPositionOffset:
		return EncodeSignMagnitude(roundHalfAwayFromZero(value), positionOffsetSignBit, def.Length), nil
	case ConvMode:
		return EncodeUint(int64(t.ModeToRaw(Mode(int(value)))), def.Length), nil
	case ConvBaudRate:
		return EncodeUint(int64(t.BaudRateToRaw(int(value))), def.Length), nil
	default:
		return nil, ErrUnknownRegister
	}
}

// DecodeUser converts a register's raw bytes into a user-unit value per
// its conversion.
func (t *ControlTable) DecodeUser(name string, data []byte) (float64, error) {
	def, err := t.lookup(name)
	if err != nil {
		return 0, err
	}

	switch def.Conv {
	case ConvNone:
		return float64(DecodeUint(data)), nil
	case ConvBool:
		if DecodeUint(data) != 0 {
			return 1, nil
		}
		return 0, nil
	case ConvScale:
		return float64(DecodeUint(data)) * def.Scale, nil
	case ConvPosition:
		return float64(DecodeSignMagnitude(data, positionSignBit)) * t.PositionScale, nil
	case ConvSpeed:
		return float64(DecodeUint(data)) * t.SpeedScale, nil
	case ConvSpeedSigned:
		return float64(DecodeSignMagnitude(data, speedSignBit)) * t.SpeedScale, nil
	case ConvLoadSigned:
		return float64(DecodeSignMagnitude(data, loadSignBit)) * 0.1, nil
	case ConvPositionOffset:
		return float64(DecodeSignMagnitude(data, positionOffsetSignBit)), nil
	case ConvMode:
		return float64(t.RawToMode(data[0])), nil
	case ConvBaudRate:
		return float64(t.RawToBaudRate(data[0])), nil
	default:
		return 0, ErrUnknownRegister
	}
}

const sts3215StepsPerRevolution = 4096

var sts3215PositionScale = 2 * math.Pi / float64(sts3215StepsPerRevolution)
var sts3215SpeedScale = 50 * sts3215PositionScale

// STS3215ControlTable is the reference control table from section 6: the
// STS3215's full named register set.
var STS3215ControlTable = &ControlTable{
	ModelName:          "STS3215",
	StepsPerRevolution: sts3215StepsPerRevolution,
	PositionScale:      sts3215PositionScale,
	SpeedScale:         sts3215SpeedScale,
	Registers: map[string]RegisterDef{
		"firmware_version_main": {Address: 0, Length: 1, Conv: ConvNone, ReadOnly: true},
		"firmware_version_sub":  {Address: 1, Length: 1, Conv: ConvNone, ReadOnly: true},
		"servo_version_main":    {Address: 3, Length: 1, Conv: ConvNone, ReadOnly: true},
		"servo_version_sub":     {Address: 4, Length: 1, Conv: ConvNone, ReadOnly: true},
		"id":                    {Address: 5, Length: 1, Conv: ConvNone},
		"baud_rate":             {Address: 6, Length: 1, Conv: ConvBaudRate},
		"return_delay":          {Address: 7, Length: 1, Conv: ConvNone},
		"status_return_level":  {Address: 8, Length: 1, Conv: ConvNone},
		"min_angle_limit":       {Address: 9, Length: 2, Conv: ConvPosition},
		"max_angle_limit":       {Address: 11, Length: 2, Conv: ConvPosition},
		"max_temperature":       {Address: 13, Length: 1, Conv: ConvNone, ReadOnly: true},
		"max_input_voltage":     {Address: 14, Length: 1, Conv: ConvScale, Scale: 0.1},
		"min_input_voltage":     {Address: 15, Length: 1, Conv: ConvScale, Scale: 0.1},
		"max_torque":            {Address: 16, Length: 2, Conv: ConvScale, Scale: 0.001},
		"position_p_gain":       {Address: 21, Length: 1, Conv: ConvNone},
		"position_d_gain":       {Address: 22, Length: 1, Conv: ConvNone},
		"position_i_gain":       {Address: 23, Length: 1, Conv: ConvNone},
		"position_offset":       {Address: 31, Length: 2, Conv: ConvPositionOffset},
		"mode":                  {Address: 33, Length: 1, Conv: ConvMode},
		"torque_enable":         {Address: 40, Length: 1, Conv: ConvBool},
		"acceleration":          {Address: 41, Length: 1, Conv: ConvNone},
		"goal_position":         {Address: 42, Length: 2, Conv: ConvPosition},
		"goal_time":             {Address: 44, Length: 2, Conv: ConvNone},
		"goal_speed":            {Address: 46, Length: 2, Conv: ConvSpeed},
		"torque_limit":          {Address: 48, Length: 2, Conv: ConvScale, Scale: 0.001},
		"lock":                  {Address: 55, Length: 1, Conv: ConvBool},
		"present_position":      {Address: 56, Length: 2, Conv: ConvPosition, ReadOnly: true},
		"present_speed":         {Address: 58, Length: 2, Conv: ConvSpeedSigned, ReadOnly: true},
		"present_load":          {Address: 60, Length: 2, Conv: ConvLoadSigned, ReadOnly: true},
		"present_voltage":       {Address: 62, Length: 1, Conv: ConvScale, Scale: 0.1, ReadOnly: true},
		"present_temperature":   {Address: 63, Length: 1, Conv: ConvNone, ReadOnly: true},
		"hardware_error_status": {Address: 65, Length: 1, Conv: ConvNone, ReadOnly: true},
		"moving":                {Address: 66, Length: 1, Conv: ConvBool, ReadOnly: true},
		"present_current":       {Address: 69, Length: 2, Conv: ConvNone, ReadOnly: true},
	},
}

// STS3250ControlTable shares the STS3215's register layout; the STS3250
// is electrically and protocol-compatible, differing only in mechanical
// spec and model number reported at address 3/4.
var STS3250ControlTable = STS3215ControlTable

// scs0009Registers is the narrower SCS0009/SCS15 family control table:
// fewer registers and a 1024-step range.
var scs0009Registers = map[string]RegisterDef{
	"model_number":     {Address: 3, Length: 2, Conv: ConvNone, ReadOnly: true},
	"id":                {Address: 5, Length: 1, Conv: ConvNone},
	"baud_rate":         {Address: 6, Length: 1, Conv: ConvBaudRate},
	"min_angle_limit":   {Address: 9, Length: 2, Conv: ConvPosition},
	"max_angle_limit":   {Address: 11, Length: 2, Conv: ConvPosition},
	"torque_enable":     {Address: 40, Length: 1, Conv: ConvBool},
	"goal_position":     {Address: 42, Length: 2, Conv: ConvPosition},
	"running_time":      {Address: 44, Length: 2, Conv: ConvNone},
	"running_speed":     {Address: 46, Length: 2, Conv: ConvSpeed},
	"present_position":  {Address: 56, Length: 2, Conv: ConvPosition, ReadOnly: true},
	"present_speed":     {Address: 58, Length: 2, Conv: ConvSpeedSigned, ReadOnly: true},
	"present_load":      {Address: 60, Length: 2, Conv: ConvLoadSigned, ReadOnly: true},
	"present_voltage":   {Address: 62, Length: 1, Conv: ConvScale, Scale: 0.1, ReadOnly: true},
	"present_temperature": {Address: 63, Length: 1, Conv: ConvNone, ReadOnly: true},
	"moving":            {Address: 66, Length: 1, Conv: ConvBool, ReadOnly: true},
}

const scs0009StepsPerRevolution = 1024

var scs0009PositionScale = 2 * math.Pi / float64(scs0009StepsPerRevolution)
var scs0009SpeedScale = 50 * scs0009PositionScale

// SCS0009ControlTable is the SCS0009's control table (1024 steps/rev).
var SCS0009ControlTable = &ControlTable{
	ModelName:          "SCS0009",
	StepsPerRevolution: scs0009StepsPerRevolution,
	PositionScale:      scs0009PositionScale,
	SpeedScale:         scs0009SpeedScale,
	Registers:          scs0009Registers,
}

// SCS15ControlTable shares the SCS0009's register layout.
var SCS15ControlTable = &ControlTable{
	ModelName:          "SCS15",
	StepsPerRevolution: scs0009StepsPerRevolution,
	PositionScale:      scs0009PositionScale,
	SpeedScale:         scs0009SpeedScale,
	Registers:          scs0009Registers,
}

// Model identifies a servo model: its name, its reported model number,
// and its control table.
type Model struct {
	Name         string
	Number       int
	ControlTable *ControlTable
}

var (
	STS3215 = &Model{Name: "STS3215", Number: 777, ControlTable: STS3215ControlTable}
	STS3250 = &Model{Name: "STS3250", Number: 1540, ControlTable: STS3250ControlTable}
	SCS0009 = &Model{Name: "SCS0009", Number: 9, ControlTable: SCS0009ControlTable}
	SCS15   = &Model{Name: "SCS15", Number: 15, ControlTable: SCS15ControlTable}
)

type modelRegistry struct {
	byName   map[string]*Model
	byNumber map[int]*Model
}

var models = &modelRegistry{byName: map[string]*Model{}, byNumber: map[int]*Model{}}

func init() {
	for _, m := range []*Model{STS3215, STS3250, SCS0009, SCS15} {
		RegisterModel(m)
	}
}

// RegisterModel adds (or replaces) a model in the package-wide registry.
func RegisterModel(m *Model) {
	models.byName[m.Name] = m
	models.byNumber[m.Number] = m
}

// GetModel looks up a registered model by name.
func GetModel(name string) (*Model, bool) {
	m, ok := models.byName[name]
	return m, ok
}

// GetModelByNumber looks up a registered model by its reported model
// number (the value of the model_number/servo_version registers).
func GetModelByNumber(number int) (*Model, bool) {
	m, ok := models.byNumber[number]
	return m, ok
}

// ListModels returns every registered model.
func ListModels() []*Model {
	out := make([]*Model, 0, len(models.byName))
	for _, m := range models.byName {
		out = append(out, m)
	}
	return out
}
