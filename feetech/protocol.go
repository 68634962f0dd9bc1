// Package feetech implements a host-side driver for Feetech TTL serial-bus
// servos (STS/SCS family): packet framing and checksum, a pluggable
// control-table registry, and a single-owner bus transactor.
package feetech

import "fmt"

// Instruction codes per the Feetech protocol specification.
const (
	InstPing      byte = 0x01
	InstRead      byte = 0x02
	InstWrite     byte = 0x03
	InstRegWrite  byte = 0x04
	InstAction    byte = 0x05
	InstRecovery  byte = 0x06
	InstReset     byte = 0x0A
	InstSyncRead  byte = 0x82
	InstSyncWrite byte = 0x83
)

// Special ID values.
const (
	BroadcastID = 0xFE
	MaxServoID  = 0xFD
)

// Packet header bytes.
const (
	headerByte1 = 0xFF
	headerByte2 = 0xFF
)

// Packet represents a decoded Feetech protocol packet.
type Packet struct {
	ID         byte
	Status     byte // Only meaningful on response packets.
	Parameters []byte
}

// calculateChecksum computes CHK = ~(sum of bytes) & 0xFF, over ID, LEN,
// INSTR|STATUS and PARAM bytes (everything after the two header bytes).
func calculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum
}

// encode builds a full instruction packet for id/instruction/params.
func encode(id, instruction byte, params []byte) []byte {
	length := byte(len(params) + 2) // params + instruction + checksum

	buf := make([]byte, 0, 6+len(params))
	buf = append(buf, headerByte1, headerByte2, id, length, instruction)
	buf = append(buf, params...)

	checksum := calculateChecksum(buf[2:])
	buf = append(buf, checksum)
	return buf
}

// PingPacket builds a PING instruction packet.
func PingPacket(id byte) []byte {
	return encode(id, InstPing, nil)
}

// ReadPacket builds a READ instruction packet.
func ReadPacket(id, address, length byte) []byte {
	return encode(id, InstRead, []byte{address, length})
}

// WritePacket builds a WRITE instruction packet.
func WritePacket(id, address byte, data []byte) []byte {
	params := make([]byte, 1+len(data))
	params[0] = address
	copy(params[1:], data)
	return encode(id, InstWrite, params)
}

// RegWritePacket builds a REG_WRITE (buffered write) instruction packet.
func RegWritePacket(id, address byte, data []byte) []byte {
	params := make([]byte, 1+len(data))
	params[0] = address
	copy(params[1:], data)
	return encode(id, InstRegWrite, params)
}

// ActionPacket builds an ACTION broadcast packet that triggers buffered
// REG_WRITE commands.
func ActionPacket() []byte {
	return encode(BroadcastID, InstAction, nil)
}

// RecoveryPacket builds a RECOVERY instruction packet.
func RecoveryPacket(id byte) []byte {
	return encode(id, InstRecovery, nil)
}

// ResetPacket builds a RESET instruction packet.
func ResetPacket(id byte) []byte {
	return encode(id, InstReset, nil)
}

// SyncWritePacket builds a SYNC_WRITE broadcast packet. data maps servo ID
// to its data bytes; every entry must be exactly dataLen bytes. order gives
// the wire order of the IDs (map iteration order is not stable).
func SyncWritePacket(address, dataLen byte, data map[byte][]byte, order []byte) ([]byte, error) {
	params := make([]byte, 0, 2+len(order)*(1+int(dataLen)))
	params = append(params, address, dataLen)

	for _, id := range order {
		d, ok := data[id]
		if !ok {
			return nil, fmt.Errorf("sync_write: missing data for servo %d", id)
		}
		if len(d) != int(dataLen) {
			return nil, fmt.Errorf("sync_write: servo %d data length %d, want %d", id, len(d), dataLen)
		}
		params = append(params, id)
		params = append(params, d...)
	}

	return encode(BroadcastID, InstSyncWrite, params), nil
}

// SyncReadPacket builds a SYNC_READ broadcast packet.
func SyncReadPacket(address, dataLen byte, ids []byte) []byte {
	params := make([]byte, 0, 2+len(ids))
	params = append(params, address, dataLen)
	params = append(params, ids...)
	return encode(BroadcastID, InstSyncRead, params)
}

// ParseResponse parses a single, complete response frame (as produced by
// ExtractPacket) into a Packet. It validates the header and checksum but
// performs no reframing — callers must hand it an already-framed buffer.
func ParseResponse(frame []byte) (Packet, error) {
	if len(frame) < 6 {
		return Packet{}, ErrIncompletePacket
	}
	if frame[0] != headerByte1 || frame[1] != headerByte2 {
		return Packet{}, ErrInvalidHeader
	}

	length := int(frame[3])
	total := length + 4
	if len(frame) < total {
		return Packet{}, ErrIncompletePacket
	}

	expected := calculateChecksum(frame[2 : total-1])
	actual := frame[total-1]
	if expected != actual {
		return Packet{}, ErrInvalidChecksum
	}

	paramLen := length - 2
	pkt := Packet{ID: frame[2], Status: frame[4]}
	if paramLen > 0 {
		pkt.Parameters = make([]byte, paramLen)
		copy(pkt.Parameters, frame[5:5+paramLen])
	}
	return pkt, nil
}

// ExtractPacket scans buf for the first 0xFF 0xFF header, discarding any
// garbage bytes before it. It never validates the checksum — that is
// ParseResponse's job, so a single malformed packet never wedges the
// reframer. It returns:
//
//   - complete=true, frame the header-aligned packet bytes, rest the
//     unconsumed remainder, when a full LEN+4 byte frame is available.
//   - complete=false, frame nil, rest the header-aligned (or
//     header-pending) tail to preserve across the next call, when not
//     enough bytes have arrived yet.
func ExtractPacket(buf []byte) (frame []byte, rest []byte, complete bool) {
	headerIdx := -1
	for i := 0; i < len(buf)-1; i++ {
		if buf[i] == headerByte1 && buf[i+1] == headerByte2 {
			headerIdx = i
			break
		}
	}

	if headerIdx < 0 {
		// No full header in buf. Preserve a trailing lone 0xFF in case the
		// second header byte arrives on the next read; discard everything
		// else as garbage.
		if len(buf) > 0 && buf[len(buf)-1] == headerByte1 {
			return nil, buf[len(buf)-1:], false
		}
		return nil, nil, false
	}

	buf = buf[headerIdx:]
	if len(buf) < 4 {
		return nil, buf, false
	}

	length := int(buf[3])
	total := length + 4
	if len(buf) < total {
		return nil, buf, false
	}

	return buf[:total], buf[total:], true
}

// ExpectedResponseLength returns the wire length of a response packet
// carrying dataLen bytes of parameters: header(2) + id(1) + len(1) +
// status(1) + data(n) + checksum(1).
func ExpectedResponseLength(dataLen int) int {
	return 6 + dataLen
}
