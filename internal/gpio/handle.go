package gpio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// ValueReader is the pin's value attribute. *os.File satisfies it; ReadAt at
// offset 0 re-reads the attribute from its start.
type ValueReader interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Notifier blocks until the kernel signals a change on the value attribute.
type Notifier interface {
	Wait(timeout time.Duration) error
	Close() error
}

// Handle owns an open value attribute and the epoll instance watching it.
// A Handle is not safe for concurrent use; exactly one goroutine drives it.
type Handle struct {
	pin     int
	value   ValueReader
	notify  Notifier
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger

	buf      [2]byte
	released bool
}

// Open opens the value attribute of an exported pin and registers it for edge
// notification. Direction and edge must already be configured; a pin whose
// edge is none is reported as unavailable.
func (s *Sysfs) Open(pin int) (*Handle, error) {
	// Without an edge trigger epoll never fires and every wait would run into
	// the poll timeout.
	edge, err := s.ReadEdge(pin)
	if err != nil {
		return nil, err
	}
	if edge == EdgeNone {
		return nil, fmt.Errorf("gpio: open pin %d: edge %q: %w", pin, edge, ErrResourceUnavailable)
	}

	path := s.pinPath(pin, "value")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gpio: open %s: %w", path, classifyOpenErr(err))
	}

	h := NewHandle(pin, f, nil, s.pollTimeout(), s.logger())

	// A fresh value attribute reports a pending notification; consume it so
	// the first wait blocks for a real edge.
	if _, err := h.read(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gpio: prime %s: %w", path, err)
	}

	n, err := newEdgeNotifier(f.Fd())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gpio: watch %s: %w", path, err)
	}
	h.notify = n

	return h, nil
}

// NewHandle builds a Handle over an already opened value source and its
// notifier, taking ownership of both. Open is the normal constructor; NewHandle
// serves simulated pins.
func NewHandle(pin int, value ValueReader, n Notifier, timeout time.Duration, log *slog.Logger) *Handle {
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handle{
		pin:     pin,
		value:   value,
		notify:  n,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// Pin returns the pin number the handle was opened for.
func (h *Handle) Pin() int { return h.pin }

// Release closes the epoll instance and the value attribute. Close failures are
// logged and returned; calling Release again is a no-op.
func (h *Handle) Release() error {
	if h.released {
		return nil
	}
	h.released = true

	var errs []error
	if h.notify != nil {
		errs = append(errs, h.notify.Close())
	}
	errs = append(errs, h.value.Close())

	if err := errors.Join(errs...); err != nil {
		h.log.Warn("gpio: release failed", "pin", h.pin, "error", err)
		return fmt.Errorf("gpio: release pin %d: %w", h.pin, err)
	}
	return nil
}

// sample waits for one notification cycle and returns the level read after it.
func (h *Handle) sample() (Level, error) {
	if h.released {
		return Low, ErrReleased
	}
	if err := h.notify.Wait(h.timeout); err != nil {
		return Low, fmt.Errorf("gpio: wait pin %d: %w", h.pin, err)
	}
	return h.read()
}

func (h *Handle) read() (Level, error) {
	n, err := h.value.ReadAt(h.buf[:], 0)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return Low, fmt.Errorf("gpio: read pin %d: %w", h.pin, err)
	}
	return parseLevel(h.buf[:n])
}
