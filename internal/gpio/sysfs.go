package gpio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultRoot is the kernel's sysfs GPIO class directory.
const DefaultRoot = "/sys/class/gpio"

const (
	defaultReadyRetries = 20
	defaultReadyBackoff = 100 * time.Millisecond
	defaultPollTimeout  = 100 * time.Millisecond
)

// Direction is the value written into a pin's direction attribute.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Edge is the value written into a pin's edge attribute.
type Edge string

const (
	EdgeNone    Edge = "none"
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// Sysfs gives access to pins exported through the legacy sysfs GPIO interface.
// The zero value uses DefaultRoot and default timings.
type Sysfs struct {
	Root string

	// ReadyRetries and ReadyBackoff bound WaitReady.
	ReadyRetries int
	ReadyBackoff time.Duration

	// PollTimeout bounds a single edge wait of handles opened through Open.
	PollTimeout time.Duration

	Logger *slog.Logger
}

func (s *Sysfs) root() string {
	if s == nil || s.Root == "" {
		return DefaultRoot
	}
	return s.Root
}

func (s *Sysfs) logger() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Sysfs) pollTimeout() time.Duration {
	if s == nil || s.PollTimeout <= 0 {
		return defaultPollTimeout
	}
	return s.PollTimeout
}

func (s *Sysfs) pinPath(pin int, attr string) string {
	return filepath.Join(s.root(), "gpio"+strconv.Itoa(pin), attr)
}

// IsExported reports whether the pin's direction attribute is writable.
func (s *Sysfs) IsExported(pin int) bool {
	return attrWritable(s.pinPath(pin, "direction"))
}

// Export asks the kernel to expose the pin.
func (s *Sysfs) Export(pin int) error {
	if err := writeAttr(filepath.Join(s.root(), "export"), strconv.Itoa(pin)); err != nil {
		return fmt.Errorf("gpio: export pin %d: %w", pin, err)
	}
	return nil
}

// Unexport removes the pin from sysfs.
func (s *Sysfs) Unexport(pin int) error {
	if err := writeAttr(filepath.Join(s.root(), "unexport"), strconv.Itoa(pin)); err != nil {
		return fmt.Errorf("gpio: unexport pin %d: %w", pin, err)
	}
	return nil
}

// WaitReady polls until the pin's direction attribute becomes writable.
// udev may need a moment to fix permissions after an export.
func (s *Sysfs) WaitReady(ctx context.Context, pin int) error {
	retries := defaultReadyRetries
	backoff := defaultReadyBackoff
	if s != nil && s.ReadyRetries > 0 {
		retries = s.ReadyRetries
	}
	if s != nil && s.ReadyBackoff > 0 {
		backoff = s.ReadyBackoff
	}

	t := time.NewTimer(0)
	defer t.Stop()

	for attempt := 0; attempt < retries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if s.IsExported(pin) {
			return nil
		}
		t.Reset(backoff)
	}
	return fmt.Errorf("gpio: pin %d not ready after %d attempts: %w", pin, retries, ErrResourceUnavailable)
}

// SetDirection configures the pin as input or output.
func (s *Sysfs) SetDirection(pin int, d Direction) error {
	if d != In && d != Out {
		return fmt.Errorf("gpio: unknown direction %q", d)
	}
	if err := writeAttr(s.pinPath(pin, "direction"), string(d)); err != nil {
		return fmt.Errorf("gpio: set direction pin %d: %w", pin, err)
	}
	return nil
}

// SetEdge selects which transitions raise a notification on the value attribute.
// EdgeBoth is required before waits on a handle are meaningful.
func (s *Sysfs) SetEdge(pin int, e Edge) error {
	switch e {
	case EdgeNone, EdgeRising, EdgeFalling, EdgeBoth:
	default:
		return fmt.Errorf("gpio: unknown edge %q", e)
	}
	if err := writeAttr(s.pinPath(pin, "edge"), string(e)); err != nil {
		return fmt.Errorf("gpio: set edge pin %d: %w", pin, err)
	}
	return nil
}

// ReadEdge returns the pin's configured edge trigger.
func (s *Sysfs) ReadEdge(pin int) (Edge, error) {
	path := s.pinPath(pin, "edge")
	b, err := os.ReadFile(path)
	if err != nil {
		return EdgeNone, fmt.Errorf("gpio: read %s: %w", path, classifyOpenErr(err))
	}
	e := Edge(strings.TrimSpace(string(b)))
	switch e {
	case EdgeNone, EdgeRising, EdgeFalling, EdgeBoth:
		return e, nil
	default:
		return EdgeNone, fmt.Errorf("gpio: %s holds %q: %w", path, e, ErrResourceUnavailable)
	}
}

// PrepareInput brings a pin into the state the core expects: exported,
// direction in, edge both. An already exported pin is unexported first
// when reexport is set, which resets stale configuration.
func (s *Sysfs) PrepareInput(ctx context.Context, pin int, reexport bool) error {
	if s.IsExported(pin) {
		if !reexport {
			return s.configureInput(pin)
		}
		if err := s.Unexport(pin); err != nil {
			return err
		}
	}
	if err := s.Export(pin); err != nil {
		return err
	}
	if err := s.WaitReady(ctx, pin); err != nil {
		return err
	}
	return s.configureInput(pin)
}

func (s *Sysfs) configureInput(pin int) error {
	if err := s.SetDirection(pin, In); err != nil {
		return err
	}
	return s.SetEdge(pin, EdgeBoth)
}

// writeAttr writes a short value into an existing attribute file.
// Attributes are never created.
func writeAttr(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return classifyOpenErr(err)
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	return errors.Join(werr, cerr)
}
