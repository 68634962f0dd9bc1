package feetech

import (
	"context"
	"time"
)

// ServoGroup coordinates a fixed set of servos on one Bus via the sync
// operations, for fan-out reads/writes and simple coordinated motion.
type ServoGroup struct {
	bus    *Bus
	servos []*Servo
	ids    []int
}

// NewServoGroup wraps an existing set of servos sharing one bus.
func NewServoGroup(bus *Bus, servos []*Servo) *ServoGroup {
	ids := make([]int, len(servos))
	for i, s := range servos {
		ids[i] = s.ID()
	}
	return &ServoGroup{bus: bus, servos: servos, ids: ids}
}

// NewServoGroupByIDs constructs a group from a bare list of IDs.
func NewServoGroupByIDs(bus *Bus, ids []int) *ServoGroup {
	servos := make([]*Servo, len(ids))
	for i, id := range ids {
		servos[i] = NewServo(bus, id)
	}
	return &ServoGroup{bus: bus, servos: servos, ids: ids}
}

// Servos returns the group's member servos.
func (g *ServoGroup) Servos() []*Servo { return g.servos }

// IDs returns the group's member IDs.
func (g *ServoGroup) IDs() []int { return g.ids }

// Servo returns the i'th member.
func (g *ServoGroup) Servo(i int) *Servo { return g.servos[i] }

// ServoByID returns the member with the given ID, or nil.
func (g *ServoGroup) ServoByID(id int) *Servo {
	for _, s := range g.servos {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// PositionMap maps servo ID to a position value.
type PositionMap map[int]float64

// Positions reads present_position for every member via one SYNC_READ.
func (g *ServoGroup) Positions(ctx context.Context) (PositionMap, error) {
	vals, err := g.bus.SyncRead(ctx, g.ids, "present_position", Converted)
	return PositionMap(vals), err
}

// SetPositions writes goal_position for every (id, radians) pair via one
// SYNC_WRITE.
func (g *ServoGroup) SetPositions(ctx context.Context, targets PositionMap) error {
	return g.bus.SyncWrite(ctx, "goal_position", targets, Converted)
}

// SetPositionsWithSpeed writes goal_position then goal_speed for the IDs
// present in both maps.
func (g *ServoGroup) SetPositionsWithSpeed(ctx context.Context, positions, speeds PositionMap) error {
	if err := g.bus.SyncWrite(ctx, "goal_position", positions, Converted); err != nil {
		return err
	}
	common := make(map[int]float64, len(speeds))
	for id, v := range speeds {
		if _, ok := positions[id]; ok {
			common[id] = v
		}
	}
	return g.bus.SyncWrite(ctx, "goal_speed", common, Converted)
}

// SetPositionsWithTime writes goal_position then goal_time for the IDs
// present in both maps.
func (g *ServoGroup) SetPositionsWithTime(ctx context.Context, positions, timesMs PositionMap) error {
	if err := g.bus.SyncWrite(ctx, "goal_position", positions, Converted); err != nil {
		return err
	}
	common := make(map[int]float64, len(timesMs))
	for id, v := range timesMs {
		if _, ok := positions[id]; ok {
			common[id] = v
		}
	}
	return g.bus.SyncWrite(ctx, "goal_time", common, Converted)
}

// EnableAll enables torque on every member individually.
func (g *ServoGroup) EnableAll(ctx context.Context) error {
	for _, s := range g.servos {
		if err := s.Enable(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DisableAll disables torque on every member individually.
func (g *ServoGroup) DisableAll(ctx context.Context) error {
	for _, s := range g.servos {
		if err := s.Disable(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RegWritePositions buffers goal_position on every member via REG_WRITE;
// call bus.Action to release them all in the same instant.
func (g *ServoGroup) RegWritePositions(ctx context.Context, targets PositionMap) error {
	for id, v := range targets {
		s := g.ServoByID(id)
		if s == nil {
			continue
		}
		if _, err := g.bus.RegWrite(ctx, id, "goal_position", v, Converted); err != nil {
			return err
		}
	}
	return nil
}

// MoveTo writes targets, waits for every commanded member to stop
// moving (or timeout), then returns the final positions of the
// commanded IDs.
func (g *ServoGroup) MoveTo(ctx context.Context, targets PositionMap, timeout time.Duration) (PositionMap, error) {
	if err := g.SetPositions(ctx, targets); err != nil {
		return nil, err
	}
	if err := g.WaitForStop(ctx, timeout); err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(targets))
	for id := range targets {
		ids = append(ids, id)
	}
	vals, err := g.bus.SyncRead(ctx, ids, "present_position", Converted)
	return PositionMap(vals), err
}

// WaitForStop polls Moving on every member until all report stopped or
// timeout elapses.
func (g *ServoGroup) WaitForStop(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		allStopped := true
		for _, s := range g.servos {
			moving, err := s.Moving(ctx)
			if err != nil {
				return err
			}
			if moving {
				allStopped = false
				break
			}
		}
		if allStopped {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNoResponse
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReadRegister reads name for every member via one SYNC_READ.
func (g *ServoGroup) ReadRegister(ctx context.Context, name string, mode AccessMode) (map[int]float64, error) {
	return g.bus.SyncRead(ctx, g.ids, name, mode)
}

// WriteRegister writes name for every (id, value) pair via one SYNC_WRITE.
func (g *ServoGroup) WriteRegister(ctx context.Context, name string, values map[int]float64, mode AccessMode) error {
	return g.bus.SyncWrite(ctx, name, values, mode)
}
