package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor  SensorConfig   `yaml:"sensor"`
	Targets []TargetConfig `yaml:"targets"`
	Status  StatusConfig   `yaml:"status"`
	Store   StoreConfig    `yaml:"store"`
	Log     LogConfig      `yaml:"log"`
}

// ---- SENSOR ----

type SensorConfig struct {
	ID   string `yaml:"id"`
	Pin  *int   `yaml:"pin"`
	Mode string `yaml:"mode"` // sync | async

	SysfsRoot      string `yaml:"sysfs_root"`
	Reexport       *bool  `yaml:"reexport"`
	UnexportOnExit *bool  `yaml:"unexport_on_exit"`

	PollTimeoutMs  int `yaml:"poll_timeout_ms"`
	ReadyRetries   int `yaml:"ready_retries"`
	ReadyBackoffMs int `yaml:"ready_backoff_ms"`

	SampleWindowMs int `yaml:"sample_window_ms"`
	PulseMinUs     int `yaml:"pulse_min_us"`
	PulseMaxUs     int `yaml:"pulse_max_us"`
	RestartDelayMs int `yaml:"restart_delay_ms"`
}

// ---- TARGET ----

type TargetConfig struct {
	ID        uint32 `yaml:"id"`
	Transport string `yaml:"transport"` // tcp | rtu | ingest
	Endpoint  string `yaml:"endpoint"`
	BaudRate  int    `yaml:"baud_rate"` // rtu only
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`

	StatusUnitID *uint8 `yaml:"status_unit_id"` // required when status.slot is set
}

// ---- STATUS ----

type StatusConfig struct {
	Slot       *uint16 `yaml:"slot"`
	DeviceName string  `yaml:"device_name"`
}

// ---- STORE / LOG ----

type StoreConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"` // 0 = keep forever
	PruneSchedule string `yaml:"prune_schedule"` // cron expression or descriptor
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	Output string `yaml:"output"` // stderr | stdout | file path
}

const (
	ModeSync  = "sync"
	ModeAsync = "async"

	TransportTCP    = "tcp"
	TransportRTU    = "rtu"
	TransportIngest = "ingest"
)

// Load reads and decodes a YAML config file. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML config bytes. Unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// ---- duration accessors (valid after Normalize) ----

func (s SensorConfig) PollTimeout() time.Duration {
	return time.Duration(s.PollTimeoutMs) * time.Millisecond
}

func (s SensorConfig) ReadyBackoff() time.Duration {
	return time.Duration(s.ReadyBackoffMs) * time.Millisecond
}

func (s SensorConfig) SampleWindow() time.Duration {
	return time.Duration(s.SampleWindowMs) * time.Millisecond
}

func (s SensorConfig) PulseMin() time.Duration {
	return time.Duration(s.PulseMinUs) * time.Microsecond
}

func (s SensorConfig) PulseMax() time.Duration {
	return time.Duration(s.PulseMaxUs) * time.Microsecond
}

func (s SensorConfig) RestartDelay() time.Duration {
	return time.Duration(s.RestartDelayMs) * time.Millisecond
}

func (s StoreConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

func (t TargetConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}
