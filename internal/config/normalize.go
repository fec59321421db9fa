package config

import (
	"github.com/tamzrod/dust-sensor/internal/gpio"
	"github.com/tamzrod/dust-sensor/internal/status"
)

// Defaults applied by Normalize.
const (
	DefaultPollTimeoutMs  = 100
	DefaultReadyRetries   = 20
	DefaultReadyBackoffMs = 100
	DefaultSampleWindowMs = 30000
	DefaultPulseMinUs     = 8500
	DefaultPulseMaxUs     = 95000
	DefaultRestartDelayMs = 1000
	DefaultTimeoutMs      = 1000
	DefaultBaudRate       = 9600
	DefaultPruneSchedule  = "@daily"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// SENSOR DEFAULTS
	// ------------------------------------------------------------

	s := &cfg.Sensor
	if s.Mode == "" {
		s.Mode = ModeSync
	}
	if s.SysfsRoot == "" {
		s.SysfsRoot = gpio.DefaultRoot
	}
	if s.Reexport == nil {
		s.Reexport = boolPtr(true)
	}
	if s.UnexportOnExit == nil {
		s.UnexportOnExit = boolPtr(true)
	}
	setDefault(&s.PollTimeoutMs, DefaultPollTimeoutMs)
	setDefault(&s.ReadyRetries, DefaultReadyRetries)
	setDefault(&s.ReadyBackoffMs, DefaultReadyBackoffMs)
	setDefault(&s.SampleWindowMs, DefaultSampleWindowMs)
	setDefault(&s.PulseMinUs, DefaultPulseMinUs)
	setDefault(&s.PulseMaxUs, DefaultPulseMaxUs)
	setDefault(&s.RestartDelayMs, DefaultRestartDelayMs)

	// ------------------------------------------------------------
	// TARGET DEFAULTS
	// ------------------------------------------------------------

	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		if t.Transport == "" {
			t.Transport = TransportTCP
		}
		setDefault(&t.TimeoutMs, DefaultTimeoutMs)
		if t.Transport == TransportRTU {
			setDefault(&t.BaudRate, DefaultBaudRate)
		}
	}

	// ------------------------------------------------------------
	// STATUS / STORE / LOG
	// ------------------------------------------------------------

	if cfg.Status.DeviceName == "" {
		cfg.Status.DeviceName = s.ID
	}
	// device_name is ASCII (validated); keep what fits the status block.
	if len(cfg.Status.DeviceName) > status.DeviceNameMaxChars {
		cfg.Status.DeviceName = cfg.Status.DeviceName[:status.DeviceNameMaxChars]
	}

	if cfg.Store.RetentionDays > 0 && cfg.Store.PruneSchedule == "" {
		cfg.Store.PruneSchedule = DefaultPruneSchedule
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func boolPtr(b bool) *bool { return &b }
