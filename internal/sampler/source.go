package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// ErrSourceDead means a pulse source can no longer deliver pulses and must be
// closed and re-created.
var ErrSourceDead = errors.New("sampler: pulse source dead")

// PulseSource yields the durations of consecutive low pulses.
type PulseSource interface {
	// Next blocks until one low pulse has been measured or ctx ends.
	Next(ctx context.Context) (time.Duration, error)
	Close() error
}

// SourceFactory creates a fresh PulseSource. ONE attempt per call.
type SourceFactory func() (PulseSource, error)

// ---- sync: pulse meter on the sampler goroutine ----

type syncSource struct {
	h     *gpio.Handle
	meter *gpio.PulseMeter
}

// NewSyncSource measures pulses with a gpio.PulseMeter on a dedicated handle.
// A pulse cut by the window deadline is finished by the next call. A
// notification failure aborts one measurement; the handle is kept.
func NewSyncSource(sys *gpio.Sysfs, pin int) (PulseSource, error) {
	h, err := sys.Open(pin)
	if err != nil {
		return nil, err
	}
	return newSyncSource(h), nil
}

func newSyncSource(h *gpio.Handle) *syncSource {
	return &syncSource{h: h, meter: gpio.NewPulseMeter(h, gpio.Low)}
}

func (s *syncSource) Next(ctx context.Context) (time.Duration, error) {
	return s.meter.Next(ctx)
}

func (s *syncSource) Close() error {
	return s.h.Release()
}

// ---- async: monitor transitions turned into pulses ----

const asyncBacklog = 64

type asyncSource struct {
	mon    *gpio.Monitor
	pulses chan time.Duration
	now    func() time.Time
	log    *slog.Logger

	// lowAt is only touched by the monitor worker.
	lowAt   time.Time
	dropped atomic.Int64
}

// NewAsyncSource derives pulses from a gpio.Monitor: a falling edge starts a
// pulse, the next rising edge ends it. The observer never blocks; pulses
// that do not fit the backlog are dropped and counted.
func NewAsyncSource(sys *gpio.Sysfs, pin int, log *slog.Logger) (PulseSource, error) {
	s := newAsyncSource(log)
	mon, err := sys.NewMonitor(pin, s)
	if err != nil {
		return nil, err
	}
	s.mon = mon
	return s, nil
}

func newAsyncSource(log *slog.Logger) *asyncSource {
	if log == nil {
		log = slog.Default()
	}
	return &asyncSource{
		pulses: make(chan time.Duration, asyncBacklog),
		now:    time.Now,
		log:    log,
	}
}

func (s *asyncSource) OnChange(_ int, level gpio.Level) {
	now := s.now()
	if level == gpio.Low {
		s.lowAt = now
		return
	}
	if s.lowAt.IsZero() {
		// Rising edge without a preceding falling edge: pulse started before us.
		return
	}
	d := now.Sub(s.lowAt).Truncate(time.Microsecond)
	s.lowAt = time.Time{}

	select {
	case s.pulses <- d:
	default:
		s.dropped.Add(1)
	}
}

func (s *asyncSource) Next(ctx context.Context) (time.Duration, error) {
	// Buffered pulses win over a concurrent fault.
	select {
	case d := <-s.pulses:
		return d, nil
	default:
	}

	select {
	case d := <-s.pulses:
		return d, nil
	case <-s.mon.Done():
		cause := s.mon.Err()
		if cause == nil {
			cause = errors.New("monitor stopped")
		}
		return 0, fmt.Errorf("%w: pin %d: %w", ErrSourceDead, s.mon.Pin(), cause)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (s *asyncSource) Close() error {
	if n := s.dropped.Load(); n > 0 {
		s.log.Warn("sampler: pulses dropped", "pin", s.mon.Pin(), "count", n)
	}
	return s.mon.Stop()
}
