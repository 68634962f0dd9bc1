package feetech

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeUser_GoalPosition(t *testing.T) {
	got, err := STS3215ControlTable.EncodeUser("goal_position", math.Pi)
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	want := []byte{0x00, 0x08}
	if !bytes.Equal(got, want) {
		t.Errorf("got %X, want %X", got, want)
	}
}

func TestEncodeUser_GoalPositionNegative(t *testing.T) {
	got, err := STS3215ControlTable.EncodeUser("goal_position", -math.Pi)
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	want := []byte{0x00, 0x88}
	if !bytes.Equal(got, want) {
		t.Errorf("got %X, want %X", got, want)
	}
}

func TestDecodeUser_PresentPosition(t *testing.T) {
	got, err := STS3215ControlTable.DecodeUser("present_position", []byte{0x00, 0x08})
	if err != nil {
		t.Fatalf("DecodeUser: %v", err)
	}
	if math.Abs(got-math.Pi) > 1e-3 {
		t.Errorf("got %v, want ~%v", got, math.Pi)
	}
}

func TestEncodeDecodeUser_PositionOffset(t *testing.T) {
	got, err := STS3215ControlTable.EncodeUser("position_offset", -1000)
	if err != nil {
		t.Fatalf("EncodeUser: %v", err)
	}
	want := []byte{0xE8, 0x0B}
	if !bytes.Equal(got, want) {
		t.Errorf("got %X, want %X", got, want)
	}

	back, err := STS3215ControlTable.DecodeUser("position_offset", got)
	if err != nil {
		t.Fatalf("DecodeUser: %v", err)
	}
	if back != -1000 {
		t.Errorf("round-trip: got %v, want -1000", back)
	}
}

func TestLookup_UnknownRegister(t *testing.T) {
	_, err := STS3215ControlTable.Lookup("not_a_register")
	if err != ErrUnknownRegister {
		t.Errorf("got %v, want ErrUnknownRegister", err)
	}
}

func TestRawToMode_Unknown(t *testing.T) {
	if m := STS3215ControlTable.RawToMode(0xFE); m != ModeUnknown {
		t.Errorf("got %v, want ModeUnknown", m)
	}
}

func TestRawToBaudRate_DefaultFallback(t *testing.T) {
	if r := STS3215ControlTable.RawToBaudRate(0xFF); r != DefaultBaudRate {
		t.Errorf("got %d, want %d", r, DefaultBaudRate)
	}
}

func TestBaudRateRoundTrip(t *testing.T) {
	for _, bps := range BaudRates {
		raw := STS3215ControlTable.BaudRateToRaw(bps)
		back := STS3215ControlTable.RawToBaudRate(raw)
		if back != bps {
			t.Errorf("round-trip %d: got %d", bps, back)
		}
	}
}

func TestEncodeDecodeUser_RoundTripScale(t *testing.T) {
	conversions := []string{"present_voltage", "max_torque", "torque_limit"}
	for _, name := range conversions {
		got, err := STS3215ControlTable.EncodeUser(name, 5.0)
		if err != nil {
			t.Fatalf("%s: EncodeUser: %v", name, err)
		}
		back, err := STS3215ControlTable.DecodeUser(name, got)
		if err != nil {
			t.Fatalf("%s: DecodeUser: %v", name, err)
		}
		def, _ := STS3215ControlTable.Lookup(name)
		if math.Abs(back-5.0) > def.Scale {
			t.Errorf("%s: round-trip got %v, want ~5.0", name, back)
		}
	}
}

func TestGetModelByNumber(t *testing.T) {
	m, ok := GetModelByNumber(777)
	if !ok || m.Name != "STS3215" {
		t.Errorf("got %v, %v, want STS3215", m, ok)
	}
}

func TestListModels(t *testing.T) {
	if len(ListModels()) < 4 {
		t.Errorf("expected at least the 4 built-in models registered")
	}
}
