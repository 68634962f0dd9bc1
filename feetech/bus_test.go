package feetech

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/feetech-drivers/servobus/transports"
)

func TestBus_Ping(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC},
	}
	bus, err := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	status, err := bus.Ping(context.Background(), 1)
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if status.Raw != 0 {
		t.Errorf("status: got %#x, want 0", status.Raw)
	}
	if len(mock.WriteData) < 6 || mock.WriteData[4] != InstPing {
		t.Errorf("wrong packet written: %X", mock.WriteData)
	}
}

func TestBus_ReadRegister(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0x00, 0x08, 0xF2}, // position 2048
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	v, err := bus.ReadRegister(context.Background(), 1, "present_position", Raw)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if v != 2048 {
		t.Errorf("got %v, want 2048", v)
	}
}

func TestBus_WriteRegister(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	_, err := bus.WriteRegister(context.Background(), 1, "goal_position", 2048, Raw, true)
	if err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if mock.WriteData[4] != InstWrite {
		t.Errorf("wrong instruction: %#x", mock.WriteData[4])
	}
	if mock.WriteData[5] != 42 { // goal_position address
		t.Errorf("wrong address: %#x", mock.WriteData[5])
	}
}

func TestBus_WriteRegister_NoAwaitStillConsumesReply(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	_, err := bus.WriteRegister(context.Background(), 1, "goal_position", 2048, Raw, false)
	if err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if len(bus.recvBuf) != 0 {
		t.Errorf("expected reply fully consumed, recvBuf has %d bytes left", len(bus.recvBuf))
	}
}

func TestBus_SyncWrite(t *testing.T) {
	mock := &transports.MockTransport{}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	err := bus.SyncWrite(context.Background(), "goal_position", map[int]float64{1: 2048, 2: 2048}, Raw)
	if err != nil {
		t.Fatalf("SyncWrite: %v", err)
	}
	if mock.WriteData[2] != BroadcastID {
		t.Errorf("not broadcast: %#x", mock.WriteData[2])
	}
	if mock.WriteData[4] != InstSyncWrite {
		t.Errorf("wrong instruction: %#x", mock.WriteData[4])
	}
}

func TestBus_SyncRead(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{
			0xFF, 0xFF, 0x01, 0x04, 0x00, 0x00, 0x08, 0xF2, // ID 1, position 2048
			0xFF, 0xFF, 0x02, 0x04, 0x00, 0x00, 0x04, 0xF5, // ID 2, position 1024
		},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	vals, err := bus.SyncRead(context.Background(), []int{1, 2}, "present_position", Raw)
	if err != nil {
		t.Fatalf("SyncRead: %v", err)
	}
	if vals[1] != 2048 || vals[2] != 1024 {
		t.Errorf("got %v, want {1:2048 2:1024}", vals)
	}
}

func TestBus_SyncRead_StrictIDMatching(t *testing.T) {
	// Only servo 1 replies; servo 2's reply never arrives within the
	// deadline, so the call must surface ErrPartialRead naming ID 2,
	// never silently treat servo 1's reply as satisfying both slots.
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0x00, 0x08, 0xF2},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 20 * time.Millisecond})
	defer bus.Close()

	_, err := bus.SyncRead(context.Background(), []int{1, 2}, "present_position", Raw)
	se, ok := AsServoError(err)
	if !ok || se.Err != ErrPartialRead {
		t.Fatalf("got %v, want ServoError wrapping ErrPartialRead", err)
	}
	if len(se.Missing) != 1 || se.Missing[0] != 2 {
		t.Errorf("missing: got %v, want [2]", se.Missing)
	}
}

func TestBus_InvalidID(t *testing.T) {
	mock := &transports.MockTransport{}
	bus, _ := NewBus(BusConfig{Transport: mock})
	defer bus.Close()

	if _, err := bus.Ping(context.Background(), -1); err != ErrInvalidID {
		t.Errorf("got %v, want ErrInvalidID", err)
	}
	if _, err := bus.Ping(context.Background(), 255); err != ErrInvalidID {
		t.Errorf("got %v, want ErrInvalidID", err)
	}
}

func TestBus_Close(t *testing.T) {
	mock := &transports.MockTransport{}
	bus, _ := NewBus(BusConfig{Transport: mock})

	if err := bus.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !mock.Closed {
		t.Error("transport not closed")
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestBus_ClosedOperations(t *testing.T) {
	mock := &transports.MockTransport{}
	bus, _ := NewBus(BusConfig{Transport: mock})
	bus.Close()

	if _, err := bus.Ping(context.Background(), 1); err != ErrBusClosed {
		t.Errorf("got %v, want ErrBusClosed", err)
	}
}

func TestServo_Position(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0x00, 0x08, 0xF2},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	servo := NewServo(bus, 1)
	pos, err := servo.Position(context.Background())
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos < 3.14 || pos > 3.15 {
		t.Errorf("position: got %v, want ~pi", pos)
	}
}

func TestServo_SetPosition(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	servo := NewServo(bus, 1)
	if err := servo.SetPosition(context.Background(), 3.14159265); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	posData := mock.WriteData[6:8]
	if !bytes.Equal(posData, []byte{0x00, 0x08}) {
		t.Errorf("position data: got %X, want [00 08]", posData)
	}
}

func TestServo_TorqueEnable(t *testing.T) {
	mock := &transports.MockTransport{
		ReadData: []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	servo := NewServo(bus, 1)
	if err := servo.Enable(context.Background()); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if mock.WriteData[5] != 40 { // torque_enable address
		t.Errorf("wrong address: %#x", mock.WriteData[5])
	}
	if mock.WriteData[6] != 1 {
		t.Errorf("wrong value: got %d, want 1", mock.WriteData[6])
	}
}

func TestBus_ContextCancellation(t *testing.T) {
	mock := &transports.MockTransport{
		ReadFunc: func(p []byte) (int, error) {
			time.Sleep(500 * time.Millisecond)
			return 0, nil
		},
	}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: time.Second})
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := bus.Ping(ctx, 1); err == nil {
		t.Error("expected context cancellation error")
	}
}

func TestBus_PersistentReceiveBuffer(t *testing.T) {
	// Both replies arrive in one chunk during the first transaction; the
	// bus must keep the leftover second reply for the next Ping.
	first := []byte{0xFF, 0xFF, 0x01, 0x02, 0x00, 0xFC}
	second := []byte{0xFF, 0xFF, 0x02, 0x02, 0x00, 0xFB}
	mock := &transports.MockTransport{ReadData: append(append([]byte{}, first...), second...)}
	bus, _ := NewBus(BusConfig{Transport: mock, Timeout: 100 * time.Millisecond})
	defer bus.Close()

	s1, err := bus.Ping(context.Background(), 1)
	if err != nil {
		t.Fatalf("first ping: %v", err)
	}
	if s1.Raw != 0 {
		t.Errorf("first status: got %#x", s1.Raw)
	}

	s2, err := bus.Ping(context.Background(), 2)
	if err != nil {
		t.Fatalf("second ping: %v", err)
	}
	if s2.Raw != 0 {
		t.Errorf("second status: got %#x", s2.Raw)
	}
}
