package feetech

import (
	"bytes"
	"testing"
)

func TestEncodeUint(t *testing.T) {
	tests := []struct {
		value int64
		n     int
		want  []byte
	}{
		{0x1234, 2, []byte{0x34, 0x12}},
		{5, 1, []byte{0x05}},
		{0x12345678, 4, []byte{0x78, 0x56, 0x34, 0x12}},
	}
	for _, tt := range tests {
		got := EncodeUint(tt.value, tt.n)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeUint(%#x, %d): got %X, want %X", tt.value, tt.n, got, tt.want)
		}
	}
}

func TestDecodeUint(t *testing.T) {
	if v := DecodeUint([]byte{0x34, 0x12}); v != 0x1234 {
		t.Errorf("DecodeUint: got %#x, want 0x1234", v)
	}
}

func TestDecodeIntSigned(t *testing.T) {
	tests := []struct {
		data []byte
		want int64
	}{
		{[]byte{0xFF, 0xFF}, -1},
		{[]byte{0x00, 0x80}, -32768},
		{[]byte{0x00, 0x00}, 0},
	}
	for _, tt := range tests {
		got := DecodeIntSigned(tt.data)
		if got != tt.want {
			t.Errorf("DecodeIntSigned(%X): got %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestEncodeSignMagnitude(t *testing.T) {
	got := EncodeSignMagnitude(-1000, 11, 2)
	want := []byte{0xE8, 0x0B}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeSignMagnitude(-1000, 11, 2): got %X, want %X", got, want)
	}
}

func TestDecodeSignMagnitude(t *testing.T) {
	if v := DecodeSignMagnitude([]byte{0xE8, 0x0B}, 11); v != -1000 {
		t.Errorf("DecodeSignMagnitude: got %d, want -1000", v)
	}
	if v := DecodeSignMagnitude([]byte{0xE8, 0x03}, 11); v != 1000 {
		t.Errorf("DecodeSignMagnitude positive: got %d, want 1000", v)
	}
}

func TestSignMagnitudeRoundTrip(t *testing.T) {
	signBit := 15
	n := 2
	max := int64(1)<<signBit - 1
	for v := -max; v <= max; v += 37 {
		encoded := EncodeSignMagnitude(v, signBit, n)
		decoded := DecodeSignMagnitude(encoded, signBit)
		if decoded != v {
			t.Errorf("round-trip %d: got %d", v, decoded)
		}
	}
}
