package gpio

import (
	"errors"
	"sync"
	"time"
)

// step is one notification cycle of a scripted pin: either the wait fails
// with err, or the attribute reads level afterwards.
type step struct {
	level byte
	err   error
}

func lv(b byte) step { return step{level: b} }

func fail(err error) step { return step{err: err} }

// scriptedPin implements both ValueReader and Notifier. Once the script is
// exhausted, waits idle for a millisecond and the last level is kept.
type scriptedPin struct {
	mu      sync.Mutex
	steps   []step
	current byte
	waits   int
	closed  int
	drained chan struct{}
	done    bool
}

func newScriptedPin(initial byte, steps ...step) *scriptedPin {
	return &scriptedPin{steps: steps, current: initial, drained: make(chan struct{})}
}

func (p *scriptedPin) Wait(time.Duration) error {
	p.mu.Lock()
	p.waits++
	if len(p.steps) == 0 {
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
		return nil
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	if len(p.steps) == 0 && !p.done {
		p.done = true
		close(p.drained)
	}
	p.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	p.mu.Lock()
	p.current = s.level
	p.mu.Unlock()
	return nil
}

// push appends steps to a running script. drained is not re-armed.
func (p *scriptedPin) push(steps ...step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, steps...)
}

func (p *scriptedPin) ReadAt(b []byte, off int64) (int, error) {
	if off != 0 {
		return 0, errors.New("unexpected offset")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(b) < 2 {
		return 0, errors.New("short buffer")
	}
	b[0], b[1] = p.current, '\n'
	return 2, nil
}

func (p *scriptedPin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *scriptedPin) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *scriptedPin) waitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

func testHandle(pin int, p *scriptedPin) *Handle {
	return NewHandle(pin, p, p, time.Millisecond, nil)
}

// clockAt returns a clock yielding the given offsets from a fixed epoch in order.
func clockAt(offsets ...time.Duration) func() time.Time {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		d := offsets[min(i, len(offsets)-1)]
		i++
		return epoch.Add(d)
	}
}
