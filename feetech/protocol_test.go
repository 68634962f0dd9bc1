package feetech

import (
	"bytes"
	"testing"
)

func TestPingPacket(t *testing.T) {
	tests := []struct {
		id   byte
		want []byte
	}{
		{1, []byte{0xFF, 0xFF, 0x01, 0x02, 0x01, 0xFB}},
		{5, []byte{0xFF, 0xFF, 0x05, 0x02, 0x01, 0xF7}},
	}
	for _, tt := range tests {
		got := PingPacket(tt.id)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("PingPacket(%d): got %X, want %X", tt.id, got, tt.want)
		}
	}
}

func TestReadPacket(t *testing.T) {
	got := ReadPacket(1, 0x38, 2)
	want := []byte{0xFF, 0xFF, 0x01, 0x04, 0x02, 0x38, 0x02, 0xBE}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadPacket: got %X, want %X", got, want)
	}
}

func TestWritePacket(t *testing.T) {
	got := WritePacket(1, 0x2A, []byte{0x00, 0x08})
	want := []byte{0xFF, 0xFF, 0x01, 0x05, 0x03, 0x2A, 0x00, 0x08, 0xC4}
	if !bytes.Equal(got, want) {
		t.Errorf("WritePacket: got %X, want %X", got, want)
	}
}

func TestActionPacket(t *testing.T) {
	got := ActionPacket()
	want := []byte{0xFF, 0xFF, 0xFE, 0x02, 0x05, 0xFA}
	if !bytes.Equal(got, want) {
		t.Errorf("ActionPacket: got %X, want %X", got, want)
	}
}

func TestParseResponse_Ping(t *testing.T) {
	pkt, err := ParseResponse([]byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if pkt.ID != 1 || pkt.Status != 0 || len(pkt.Parameters) != 0 {
		t.Errorf("got %+v, want {ID:1 Status:0 Parameters:[]}", pkt)
	}
}

func TestParseResponse_Read(t *testing.T) {
	pkt, err := ParseResponse([]byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0x18, 0x05, 0xDD})
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if pkt.ID != 1 || pkt.Status != 0 {
		t.Errorf("got ID=%d Status=%d, want ID=1 Status=0", pkt.ID, pkt.Status)
	}
	if v := DecodeUint(pkt.Parameters); v != 1304 {
		t.Errorf("DecodeUint(params) = %d, want 1304", v)
	}
}

func TestParseResponse_InvalidChecksum(t *testing.T) {
	_, err := ParseResponse([]byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0x00})
	if err != ErrInvalidChecksum {
		t.Errorf("got %v, want ErrInvalidChecksum", err)
	}
}

func TestParseResponse_InvalidHeader(t *testing.T) {
	_, err := ParseResponse([]byte{0x00, 0x00, 0x01, 0x02, 0x00, 0xFC})
	if err != ErrInvalidHeader {
		t.Errorf("got %v, want ErrInvalidHeader", err)
	}
}

func TestParseResponse_IncompletePacket(t *testing.T) {
	_, err := ParseResponse([]byte{0xFF, 0xFF, 0x01})
	if err != ErrIncompletePacket {
		t.Errorf("got %v, want ErrIncompletePacket", err)
	}
}

func TestExtractPacket_GarbagePrefix(t *testing.T) {
	frame, rest, ok := ExtractPacket([]byte{0x00, 0x00, 0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC})
	if !ok {
		t.Fatal("expected complete")
	}
	want := []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC}
	if !bytes.Equal(frame, want) {
		t.Errorf("frame: got %X, want %X", frame, want)
	}
	if len(rest) != 0 {
		t.Errorf("rest: got %X, want empty", rest)
	}
}

func TestExtractPacket_Incomplete(t *testing.T) {
	_, rest, ok := ExtractPacket([]byte{0xFF, 0xFF, 0x01, 0x04, 0x00})
	if ok {
		t.Fatal("expected incomplete")
	}
	if len(rest) != 5 {
		t.Errorf("rest: got %d bytes, want 5 preserved", len(rest))
	}
}

func TestExtractPacket_TrailingLoneHeaderByte(t *testing.T) {
	_, rest, ok := ExtractPacket([]byte{0x01, 0x02, 0xFF})
	if ok {
		t.Fatal("expected incomplete")
	}
	if !bytes.Equal(rest, []byte{0xFF}) {
		t.Errorf("rest: got %X, want [FF]", rest)
	}
}

func TestExtractPacket_NoHeader(t *testing.T) {
	_, rest, ok := ExtractPacket([]byte{0x01, 0x02, 0x03})
	if ok || rest != nil {
		t.Errorf("got rest=%X ok=%v, want nil/false", rest, ok)
	}
}

func TestExtractPacket_Idempotent(t *testing.T) {
	one := []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC}
	two := []byte{0xFF, 0xFF, 0x02, 0x02, 0x00, 0xFB}
	buf := append(append([]byte{0x00, 0x00}, one...), two...)

	frame1, rest, ok := ExtractPacket(buf)
	if !ok || !bytes.Equal(frame1, one) {
		t.Fatalf("first packet: frame=%X ok=%v", frame1, ok)
	}
	frame2, rest2, ok := ExtractPacket(rest)
	if !ok || !bytes.Equal(frame2, two) {
		t.Fatalf("second packet: frame=%X ok=%v", frame2, ok)
	}
	if len(rest2) != 0 {
		t.Errorf("final rest: got %X, want empty", rest2)
	}
}

func TestSyncWritePacket(t *testing.T) {
	data := map[byte][]byte{
		1: {0x00, 0x08},
		2: {0x00, 0x08},
	}
	packet, err := SyncWritePacket(0x2A, 2, data, []byte{1, 2})
	if err != nil {
		t.Fatalf("SyncWritePacket: %v", err)
	}
	if packet[2] != BroadcastID {
		t.Error("expected broadcast ID")
	}
	if packet[4] != InstSyncWrite {
		t.Error("wrong instruction")
	}
	if packet[5] != 0x2A || packet[6] != 2 {
		t.Error("wrong address/length header")
	}
}

func TestSyncWritePacket_MissingID(t *testing.T) {
	data := map[byte][]byte{1: {0x00, 0x08}}
	_, err := SyncWritePacket(0x2A, 2, data, []byte{1, 2})
	if err == nil {
		t.Error("expected error for missing servo 2 data")
	}
}

func TestSyncWritePacket_WrongLength(t *testing.T) {
	data := map[byte][]byte{1: {0x00}}
	_, err := SyncWritePacket(0x2A, 2, data, []byte{1})
	if err == nil {
		t.Error("expected error for wrong-length data")
	}
}

func TestChecksumInvariant(t *testing.T) {
	packets := [][]byte{
		PingPacket(1),
		ReadPacket(1, 0x38, 2),
		WritePacket(1, 0x2A, []byte{0x00, 0x08}),
		ActionPacket(),
	}
	for _, p := range packets {
		want := calculateChecksum(p[2 : len(p)-1])
		if p[len(p)-1] != want {
			t.Errorf("packet %X: checksum byte %X, want %X", p, p[len(p)-1], want)
		}
	}
}
