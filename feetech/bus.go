package feetech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/feetech-drivers/servobus/transports"
)

// AccessMode selects whether a read/write operation carries a converted
// user-unit value or a raw little-endian integer.
type AccessMode int

const (
	Converted AccessMode = iota
	Raw
)

// chunkTimeout bounds a single transport read inside the receive loop,
// keeping it responsive to the per-transaction deadline.
const chunkTimeout = 10 * time.Millisecond

// BusConfig configures a Bus at construction.
type BusConfig struct {
	Transport     Transport
	Port          string
	BaudRate      int
	ControlTable  *ControlTable
	Timeout       time.Duration
	MinCommandGap time.Duration
}

// Bus is the single-owner bus transactor (C5). It owns exactly one
// transport exclusively, serialises every operation behind mu, and
// carries a receive buffer of unconsumed bytes across transactions so a
// reframer-incomplete tail from one transaction is recovered by the next.
type Bus struct {
	transport Transport
	table     *ControlTable
	timeout   time.Duration
	minGap    time.Duration

	mu          sync.Mutex
	recvBuf     []byte
	lastCmdTime time.Time
	closed      bool
}

// NewBus constructs a Bus. If cfg.Transport is nil, it opens a serial
// transport on cfg.Port at cfg.BaudRate.
func NewBus(cfg BusConfig) (*Bus, error) {
	transport := cfg.Transport
	if transport == nil {
		t, err := transports.OpenSerial(transports.SerialConfig{
			Port:     cfg.Port,
			BaudRate: cfg.BaudRate,
			Timeout:  chunkTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("feetech: open transport: %w", err)
		}
		transport = t
	}

	table := cfg.ControlTable
	if table == nil {
		table = STS3215ControlTable
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Second
	}

	minGap := cfg.MinCommandGap
	if minGap == 0 {
		minGap = time.Millisecond
	}

	return &Bus{
		transport: transport,
		table:     table,
		timeout:   timeout,
		minGap:    minGap,
	}, nil
}

// Close closes the underlying transport exactly once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.transport.Close()
}

// ControlTable returns the bus's control table.
func (b *Bus) ControlTable() *ControlTable { return b.table }

func validateID(id int) error {
	if id < 0 || id > MaxServoID {
		return ErrInvalidID
	}
	return nil
}

func (b *Bus) enforceCommandGap() {
	if b.lastCmdTime.IsZero() {
		return
	}
	if elapsed := time.Since(b.lastCmdTime); elapsed < b.minGap {
		time.Sleep(b.minGap - elapsed)
	}
}

// sendLocked writes frame to the transport, flushing stale input first.
func (b *Bus) sendLocked(frame []byte) error {
	b.enforceCommandGap()
	if err := b.transport.Flush(); err != nil {
		return &CommError{Op: "flush", Err: err}
	}
	if _, err := b.transport.Write(frame); err != nil {
		return &CommError{Op: "write", Err: err}
	}
	b.lastCmdTime = time.Now()
	return nil
}

// receiveLocked runs the deadline-bounded receive loop: chunk-read,
// append to the persistent recvBuf, reframe, parse. On success it returns
// the parsed packet and leaves any bytes past the consumed frame in
// recvBuf for the next transaction.
func (b *Bus) receiveLocked(ctx context.Context) (Packet, error) {
	deadline := time.Now().Add(b.timeout)

	for {
		if frame, rest, ok := ExtractPacket(b.recvBuf); ok {
			b.recvBuf = rest
			return ParseResponse(frame)
		}

		now := time.Now()
		if !now.Before(deadline) {
			return Packet{}, ErrNoResponse
		}

		select {
		case <-ctx.Done():
			return Packet{}, ctx.Err()
		default:
		}

		remaining := deadline.Sub(now)
		readTimeout := chunkTimeout
		if remaining < readTimeout {
			readTimeout = remaining
		}
		if err := b.transport.SetReadTimeout(readTimeout); err != nil {
			return Packet{}, &CommError{Op: "set_read_timeout", Err: err}
		}

		chunk := make([]byte, 256)
		n, err := b.transport.Read(chunk)
		if n > 0 {
			b.recvBuf = append(b.recvBuf, chunk[:n]...)
			continue
		}
		if err != nil && !isTimeoutLike(err) {
			return Packet{}, &CommError{Op: "read", Err: err}
		}
	}
}

// isTimeoutLike treats any read error during the polling loop as "no
// data yet" rather than fatal; a genuinely fatal transport error will
// keep recurring until the deadline trips ErrNoResponse, which is an
// acceptable surfaced failure mode for a closed or broken port.
func isTimeoutLike(err error) bool { return err != nil }

func (b *Bus) checkOpenLocked() error {
	if b.closed {
		return ErrBusClosed
	}
	return nil
}

// Ping sends a PING instruction and returns the reply's status info.
func (b *Bus) Ping(ctx context.Context, id int) (Status, error) {
	if err := validateID(id); err != nil {
		return Status{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return Status{}, err
	}

	if err := b.sendLocked(PingPacket(byte(id))); err != nil {
		return Status{}, err
	}
	pkt, err := b.receiveLocked(ctx)
	if err != nil {
		return Status{}, &ServoError{ID: id, Op: "ping", Err: err}
	}
	return ParseStatus(pkt.Status), nil
}

// ReadRegister reads name from servo id, returning its converted or raw
// value depending on mode.
func (b *Bus) ReadRegister(ctx context.Context, id int, name string, mode AccessMode) (float64, error) {
	if err := validateID(id); err != nil {
		return 0, err
	}
	def, err := b.table.Lookup(name)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return 0, err
	}

	if err := b.sendLocked(ReadPacket(byte(id), def.Address, byte(def.Length))); err != nil {
		return 0, err
	}
	pkt, err := b.receiveLocked(ctx)
	if err != nil {
		return 0, &ServoError{ID: id, Op: "read:" + name, Err: err}
	}

	if mode == Raw {
		v, err := b.table.DecodeRaw(name, pkt.Parameters)
		return float64(v), err
	}
	return b.table.DecodeUser(name, pkt.Parameters)
}

// WriteRegister writes value to name on servo id. The reply is always
// consumed to keep the receive buffer aligned; if await is false, the
// parsed status is discarded and (Status{}, nil) is returned on success.
func (b *Bus) WriteRegister(ctx context.Context, id int, name string, value float64, mode AccessMode, await bool) (Status, error) {
	if err := validateID(id); err != nil {
		return Status{}, err
	}
	def, err := b.table.Lookup(name)
	if err != nil {
		return Status{}, err
	}

	var data []byte
	if mode == Raw {
		data, err = b.table.EncodeRaw(name, int64(value))
	} else {
		data, err = b.table.EncodeUser(name, value)
	}
	if err != nil {
		return Status{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return Status{}, err
	}

	if err := b.sendLocked(WritePacket(byte(id), def.Address, data)); err != nil {
		return Status{}, err
	}
	pkt, err := b.receiveLocked(ctx)
	if err != nil {
		return Status{}, &ServoError{ID: id, Op: "write:" + name, Err: err}
	}
	if !await {
		return Status{}, nil
	}
	return ParseStatus(pkt.Status), nil
}

// RegWrite buffers a write on servo id for later release by Action.
func (b *Bus) RegWrite(ctx context.Context, id int, name string, value float64, mode AccessMode) (Status, error) {
	if err := validateID(id); err != nil {
		return Status{}, err
	}
	def, err := b.table.Lookup(name)
	if err != nil {
		return Status{}, err
	}

	var data []byte
	if mode == Raw {
		data, err = b.table.EncodeRaw(name, int64(value))
	} else {
		data, err = b.table.EncodeUser(name, value)
	}
	if err != nil {
		return Status{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return Status{}, err
	}

	if err := b.sendLocked(RegWritePacket(byte(id), def.Address, data)); err != nil {
		return Status{}, err
	}
	pkt, err := b.receiveLocked(ctx)
	if err != nil {
		return Status{}, &ServoError{ID: id, Op: "reg_write:" + name, Err: err}
	}
	return ParseStatus(pkt.Status), nil
}

// Action broadcasts ACTION, releasing every servo's buffered REG_WRITE.
// No reply is expected.
func (b *Bus) Action(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return err
	}
	return b.sendLocked(ActionPacket())
}

// Recovery sends the RECOVERY instruction to servo id.
func (b *Bus) Recovery(ctx context.Context, id int) (Status, error) {
	return b.noParamRequest(ctx, id, "recovery", RecoveryPacket)
}

// Reset sends the RESET instruction to servo id.
func (b *Bus) Reset(ctx context.Context, id int) (Status, error) {
	return b.noParamRequest(ctx, id, "reset", ResetPacket)
}

func (b *Bus) noParamRequest(ctx context.Context, id int, op string, build func(byte) []byte) (Status, error) {
	if err := validateID(id); err != nil {
		return Status{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return Status{}, err
	}

	if err := b.sendLocked(build(byte(id))); err != nil {
		return Status{}, err
	}
	pkt, err := b.receiveLocked(ctx)
	if err != nil {
		return Status{}, &ServoError{ID: id, Op: op, Err: err}
	}
	return ParseStatus(pkt.Status), nil
}

// SyncWrite broadcasts a SYNC_WRITE for name across every (id, value) in
// values. No reply is expected.
func (b *Bus) SyncWrite(ctx context.Context, name string, values map[int]float64, mode AccessMode) error {
	def, err := b.table.Lookup(name)
	if err != nil {
		return err
	}

	data := make(map[byte][]byte, len(values))
	order := make([]byte, 0, len(values))
	for id, v := range values {
		if err := validateID(id); err != nil {
			return err
		}
		var enc []byte
		if mode == Raw {
			enc, err = b.table.EncodeRaw(name, int64(v))
		} else {
			enc, err = b.table.EncodeUser(name, v)
		}
		if err != nil {
			return err
		}
		data[byte(id)] = enc
		order = append(order, byte(id))
	}

	frame, err := SyncWritePacket(def.Address, byte(def.Length), data, order)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return err
	}
	return b.sendLocked(frame)
}

// SyncRead broadcasts a SYNC_READ for name across ids and collects one
// reply per ID. Replies are matched against the requested ID, not
// assumed positional; any missing or mismatched ID collapses the call to
// a *ServoError wrapping ErrPartialRead naming the missing IDs.
func (b *Bus) SyncRead(ctx context.Context, ids []int, name string, mode AccessMode) (map[int]float64, error) {
	def, err := b.table.Lookup(name)
	if err != nil {
		return nil, err
	}
	idBytes := make([]byte, len(ids))
	for i, id := range ids {
		if err := validateID(id); err != nil {
			return nil, err
		}
		idBytes[i] = byte(id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpenLocked(); err != nil {
		return nil, err
	}

	if err := b.sendLocked(SyncReadPacket(def.Address, byte(def.Length), idBytes)); err != nil {
		return nil, err
	}

	want := make(map[byte]bool, len(ids))
	for _, id := range idBytes {
		want[id] = true
	}

	result := make(map[int]float64, len(ids))
	for range ids {
		pkt, err := b.receiveLocked(ctx)
		if err != nil {
			break // deadline or fatal error: fall through to missing-ID report
		}
		if !want[pkt.ID] {
			continue // unrequested or duplicate ID; ignore and keep collecting
		}
		delete(want, pkt.ID)

		var v float64
		if mode == Raw {
			raw, err := b.table.DecodeRaw(name, pkt.Parameters)
			if err != nil {
				continue
			}
			v = float64(raw)
		} else {
			v, err = b.table.DecodeUser(name, pkt.Parameters)
			if err != nil {
				continue
			}
		}
		result[int(pkt.ID)] = v
	}

	if len(want) > 0 {
		missing := make([]int, 0, len(want))
		for id := range want {
			missing = append(missing, int(id))
		}
		return result, &ServoError{Op: "sync_read:" + name, Err: ErrPartialRead, Missing: missing}
	}
	return result, nil
}

// FoundServo is one entry of a Scan sweep.
type FoundServo struct {
	ID     int
	Status Status
}

// Scan sequentially pings every ID in [startID, endID] and returns the
// ones that replied. Operator tooling, not part of the core contract.
func (b *Bus) Scan(ctx context.Context, startID, endID int) ([]FoundServo, error) {
	var found []FoundServo
	for id := startID; id <= endID; id++ {
		status, err := b.Ping(ctx, id)
		if err != nil {
			if IsNoResponse(err) {
				continue
			}
			return found, err
		}
		found = append(found, FoundServo{ID: id, Status: status})
	}
	return found, nil
}
