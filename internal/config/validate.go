package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tamzrod/dust-sensor/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	if err := validateSensor(cfg.Sensor); err != nil {
		return err
	}
	if err := validateTargets(cfg.Targets); err != nil {
		return err
	}
	if err := validateRegisterMap(cfg); err != nil {
		return err
	}
	if err := validateStore(cfg.Store); err != nil {
		return err
	}
	return validateLog(cfg.Log)
}

// ------------------------------------------------------------
// SENSOR
// ------------------------------------------------------------

func validateSensor(s SensorConfig) error {
	if s.ID == "" {
		return errors.New("sensor: id required")
	}
	if !isASCII(s.ID) {
		return fmt.Errorf("sensor %q: id must contain ASCII characters only", s.ID)
	}
	if s.Pin == nil {
		return fmt.Errorf("sensor %q: pin required", s.ID)
	}
	if *s.Pin < 0 {
		return fmt.Errorf("sensor %q: pin %d must be >= 0", s.ID, *s.Pin)
	}

	switch s.Mode {
	case "", ModeSync, ModeAsync:
	default:
		return fmt.Errorf("sensor %q: unknown mode %q", s.ID, s.Mode)
	}

	for name, v := range map[string]int{
		"poll_timeout_ms":  s.PollTimeoutMs,
		"ready_retries":    s.ReadyRetries,
		"ready_backoff_ms": s.ReadyBackoffMs,
		"sample_window_ms": s.SampleWindowMs,
		"pulse_min_us":     s.PulseMinUs,
		"pulse_max_us":     s.PulseMaxUs,
		"restart_delay_ms": s.RestartDelayMs,
	} {
		if v < 0 {
			return fmt.Errorf("sensor %q: %s must be >= 0", s.ID, name)
		}
	}

	if s.PulseMinUs > 0 && s.PulseMaxUs > 0 && s.PulseMinUs >= s.PulseMaxUs {
		return fmt.Errorf(
			"sensor %q: pulse_min_us (%d) must be below pulse_max_us (%d)",
			s.ID,
			s.PulseMinUs,
			s.PulseMaxUs,
		)
	}
	return nil
}

// ------------------------------------------------------------
// TARGETS
// ------------------------------------------------------------

func validateTargets(targets []TargetConfig) error {
	ids := make(map[uint32]struct{})
	transports := make(map[string]string)

	for _, t := range targets {
		if _, dup := ids[t.ID]; dup {
			return fmt.Errorf("target %d: duplicate id", t.ID)
		}
		ids[t.ID] = struct{}{}

		if t.Endpoint == "" {
			return fmt.Errorf("target %d: endpoint required", t.ID)
		}
		switch t.Transport {
		case "", TransportTCP, TransportIngest:
		case TransportRTU:
			if t.BaudRate < 0 {
				return fmt.Errorf("target %d: baud_rate must be >= 0", t.ID)
			}
		default:
			return fmt.Errorf("target %d: unknown transport %q", t.ID, t.Transport)
		}
		tr := t.Transport
		if tr == "" {
			tr = TransportTCP
		}
		if prev, ok := transports[t.Endpoint]; ok && prev != tr {
			return fmt.Errorf("target %d: endpoint %s already used with transport %s", t.ID, t.Endpoint, prev)
		}
		transports[t.Endpoint] = tr

		if t.TimeoutMs < 0 {
			return fmt.Errorf("target %d: timeout_ms must be >= 0", t.ID)
		}
		if int(t.Address)+status.ReadingRegisters > 1<<16 {
			return fmt.Errorf("target %d: reading block at %d exceeds register space", t.ID, t.Address)
		}
	}
	return nil
}

// ------------------------------------------------------------
// REGISTER MAP (READING + STATUS BLOCKS)
// ------------------------------------------------------------

func validateRegisterMap(cfg *Config) error {
	type span struct {
		start, end int
		owner      string
	}

	if !isASCII(cfg.Status.DeviceName) {
		return errors.New("status: device_name must contain ASCII characters only")
	}

	// key = endpoint | unit id
	spans := make(map[string][]span)

	claim := func(endpoint string, unitID uint8, start, size int, owner string) error {
		key := fmt.Sprintf("%s|%d", endpoint, unitID)
		end := start + size - 1
		for _, s := range spans[key] {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"register overlap: endpoint=%s unit_id=%d range=%d-%d (%s) overlaps range=%d-%d (%s)",
					endpoint,
					unitID,
					start,
					end,
					owner,
					s.start,
					s.end,
					s.owner,
				)
			}
		}
		spans[key] = append(spans[key], span{start: start, end: end, owner: owner})
		return nil
	}

	for _, t := range cfg.Targets {
		owner := fmt.Sprintf("target %d reading", t.ID)
		if err := claim(t.Endpoint, t.UnitID, int(t.Address), status.ReadingRegisters, owner); err != nil {
			return err
		}
	}

	// status is opt-in
	if cfg.Status.Slot == nil {
		return nil
	}
	if len(cfg.Targets) == 0 {
		return errors.New("status: slot is set but no targets are defined")
	}

	start := int(*cfg.Status.Slot) * status.SlotsPerDevice
	if start+status.SlotsPerDevice > 1<<16 {
		return fmt.Errorf("status: slot %d exceeds register space", *cfg.Status.Slot)
	}

	for _, t := range cfg.Targets {
		if t.StatusUnitID == nil {
			return fmt.Errorf("status: slot is set but target %d has no status_unit_id", t.ID)
		}
		owner := fmt.Sprintf("target %d status", t.ID)
		if err := claim(t.Endpoint, *t.StatusUnitID, start, status.SlotsPerDevice, owner); err != nil {
			return err
		}
	}
	return nil
}

// ------------------------------------------------------------
// STORE / LOG
// ------------------------------------------------------------

func validateStore(s StoreConfig) error {
	if s.RetentionDays < 0 {
		return errors.New("store: retention_days must be >= 0")
	}
	if s.RetentionDays > 0 && s.Path == "" {
		return errors.New("store: retention_days requires path")
	}
	if s.PruneSchedule != "" {
		if _, err := cron.ParseStandard(s.PruneSchedule); err != nil {
			return fmt.Errorf("store: invalid prune_schedule %q: %w", s.PruneSchedule, err)
		}
	}
	return nil
}

func validateLog(l LogConfig) error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", l.Level)
	}
	switch l.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", l.Format)
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}
