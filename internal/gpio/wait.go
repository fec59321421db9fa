package gpio

import (
	"context"
	"time"
)

// WaitForLevel blocks until a level read after an edge notification equals
// target. Every cycle waits at most the handle's poll timeout and then re-reads
// the attribute, so a missed edge costs one timeout and a spurious wakeup costs
// nothing. There is no overall deadline.
//
// A notification failure is returned immediately and leaves the handle usable.
func WaitForLevel(h *Handle, target Level) (Level, error) {
	return WaitForLevelContext(context.Background(), h, target)
}

// WaitForLevelContext is WaitForLevel with cancellation checked once per
// polling cycle.
func WaitForLevelContext(ctx context.Context, h *Handle, target Level) (Level, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Low, err
		}
		lvl, err := h.sample()
		if err != nil {
			return Low, err
		}
		if lvl == target {
			return lvl, nil
		}
	}
}

// PulseLength waits for start, then for its complement, and returns the time
// spent between the two with microsecond resolution. It blocks the calling
// goroutine until a full pulse has been observed.
func PulseLength(h *Handle, start Level) (time.Duration, error) {
	return PulseLengthContext(context.Background(), h, start)
}

// PulseLengthContext is PulseLength with cancellation checked once per polling
// cycle. A pulse in progress when ctx ends is discarded; use a PulseMeter to
// resume it.
func PulseLengthContext(ctx context.Context, h *Handle, start Level) (time.Duration, error) {
	if _, err := WaitForLevelContext(ctx, h, start); err != nil {
		return 0, err
	}
	t1 := h.now()

	if _, err := WaitForLevelContext(ctx, h, start.Complement()); err != nil {
		return 0, err
	}
	return elapsed(t1, h.now()), nil
}

// PulseMeter measures consecutive pulses on one handle. Unlike
// PulseLengthContext it remembers a pulse whose start was seen when ctx ended,
// so the next call finishes it instead of waiting for a new one.
type PulseMeter struct {
	h     *Handle
	start Level

	t1      time.Time
	inPulse bool
}

func NewPulseMeter(h *Handle, start Level) *PulseMeter {
	return &PulseMeter{h: h, start: start}
}

// Next returns the length of the next complete pulse. A notification failure
// drops any pulse in progress.
func (m *PulseMeter) Next(ctx context.Context) (time.Duration, error) {
	if !m.inPulse {
		if _, err := WaitForLevelContext(ctx, m.h, m.start); err != nil {
			return 0, err
		}
		m.t1 = m.h.now()
		m.inPulse = true
	}

	if _, err := WaitForLevelContext(ctx, m.h, m.start.Complement()); err != nil {
		if ctx.Err() == nil {
			m.inPulse = false
		}
		return 0, err
	}
	m.inPulse = false
	return elapsed(m.t1, m.h.now()), nil
}

// InPulse reports whether a started pulse is waiting to be finished.
func (m *PulseMeter) InPulse() bool { return m.inPulse }

func elapsed(t1, t2 time.Time) time.Duration {
	// time.Now carries a monotonic reading, so this only guards injected clocks.
	d := t2.Sub(t1)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Microsecond)
}
