// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/dust-sensor/internal/status"
)

// StatusWriter is the delivery-only contract for sensor status.
// It receives a snapshot and writes it verbatim.
// No interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// statusTarget tracks what one status target is known to hold.
type statusTarget struct {
	StatusTarget
	needFull bool
	last     status.Snapshot
}

// sensorStatusWriter mirrors the status block onto every status target.
type sensorStatusWriter struct {
	plan    *StatusPlan
	clients map[string]EndpointClient
	targets []*statusTarget
}

// NewStatusWriter builds a status writer if status is enabled for the sensor.
// If plan.Status is nil, status is disabled.
func NewStatusWriter(plan Plan, clients map[string]EndpointClient) (StatusWriter, bool) {
	if plan.Status == nil || len(plan.Status.Targets) == 0 {
		return nil, false
	}

	sw := &sensorStatusWriter{
		plan:    plan.Status,
		clients: clients,
	}
	for _, t := range plan.Status.Targets {
		sw.targets = append(sw.targets, &statusTarget{
			StatusTarget: t,
			needFull:     true, // full re-assert on first successful write
			last:         status.Snapshot{Health: status.HealthUnknown},
		})
	}
	return sw, true
}

// WriteStatus delivers a status snapshot to all status targets.
// On any write failure, the next call re-asserts the full block on that target.
func (sw *sensorStatusWriter) WriteStatus(s status.Snapshot) error {
	var errs []string
	for _, t := range sw.targets {
		if err := sw.writeTarget(t, s); err != nil {
			errs = append(errs, fmt.Sprintf("ep=%s unit=%d: %v", t.Endpoint, t.UnitID, err))
		}
	}
	if len(errs) > 0 {
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}
	return nil
}

func (sw *sensorStatusWriter) writeTarget(t *statusTarget, s status.Snapshot) error {
	cli := sw.clients[t.Endpoint]
	if cli == nil {
		return fmt.Errorf("missing client for endpoint %s", t.Endpoint)
	}

	base := sw.baseAddr()

	// Full block write (identity re-assert)
	if t.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)
		if err := cli.WriteRegisters(t.UnitID, base, regs); err != nil {
			return fmt.Errorf("full block write failed: %w", err)
		}
		t.needFull = false
		t.last = s
		return nil
	}

	var errs []string
	for _, slot := range status.LiveSlots {
		v := s.SlotValue(slot)
		if t.last.SlotValue(slot) == v {
			continue
		}
		if err := cli.WriteRegisters(t.UnitID, base+uint16(slot), []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d write failed: %v", slot, err))
			continue
		}
		setSlot(&t.last, slot, v)
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next call.
		t.needFull = true
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

func (sw *sensorStatusWriter) baseAddr() uint16 {
	// Each sensor owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

func setSlot(s *status.Snapshot, slot int, v uint16) {
	switch slot {
	case status.SlotHealthCode:
		s.Health = v
	case status.SlotLastErrorCode:
		s.LastErrorCode = v
	case status.SlotSecondsInError:
		s.SecondsInError = v
	case status.SlotRestarts:
		s.Restarts = v
	}
}
