package gpio

import (
	"errors"
	"log/slog"
	"sync"
)

// Observer receives level changes seen by a Monitor. OnChange runs on the
// monitor's worker goroutine: while it runs no samples are taken, so slow
// observers miss transitions.
type Observer interface {
	OnChange(pin int, level Level)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(pin int, level Level)

func (f ObserverFunc) OnChange(pin int, level Level) { f(pin, level) }

// MonitorState is the lifecycle position of a Monitor.
type MonitorState int

const (
	MonitorCreated MonitorState = iota
	MonitorRunning
	MonitorStopRequested
	MonitorStopped
	// MonitorFaulted means the worker exited on a sampling error. Stop must
	// still be called to release the handle.
	MonitorFaulted
)

func (s MonitorState) String() string {
	switch s {
	case MonitorCreated:
		return "created"
	case MonitorRunning:
		return "running"
	case MonitorStopRequested:
		return "stop-requested"
	case MonitorStopped:
		return "stopped"
	case MonitorFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Monitor owns a handle and a worker goroutine that reports every level
// change to an Observer.
type Monitor struct {
	pin int
	obs Observer
	h   *Handle
	log *slog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error

	mu    sync.Mutex
	state MonitorState
	err   error
}

// NewMonitor opens a dedicated handle for pin and starts watching it. The
// first sample only sets the baseline; obs sees changes from then on.
func (s *Sysfs) NewMonitor(pin int, obs Observer) (*Monitor, error) {
	if obs == nil {
		return nil, errors.New("gpio: monitor observer required")
	}
	h, err := s.Open(pin)
	if err != nil {
		return nil, err
	}
	return Watch(h, obs, s.logger())
}

// Watch starts a Monitor on an open handle and takes ownership of it. Stop
// releases the handle.
func Watch(h *Handle, obs Observer, log *slog.Logger) (*Monitor, error) {
	if obs == nil {
		return nil, errors.New("gpio: monitor observer required")
	}
	if log == nil {
		log = slog.Default()
	}
	m := &Monitor{
		pin:   h.pin,
		obs:   obs,
		h:     h,
		log:   log,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		state: MonitorCreated,
	}
	m.setState(MonitorRunning)
	go m.run()
	return m, nil
}

func (m *Monitor) run() {
	defer close(m.done)

	var (
		last     Level
		baseline bool
	)

	for {
		lvl, err := m.h.sample()
		if err != nil {
			m.fault(err)
			return
		}

		switch {
		case !baseline:
			last, baseline = lvl, true
		case lvl != last:
			m.obs.OnChange(m.pin, lvl)
			last = lvl
		}

		select {
		case <-m.stop:
			return
		default:
		}
	}
}

func (m *Monitor) fault(err error) {
	m.mu.Lock()
	m.state = MonitorFaulted
	m.err = err
	m.mu.Unlock()

	m.log.Error("gpio: monitor faulted", "pin", m.pin, "error", err)
}

func (m *Monitor) setState(s MonitorState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Pin returns the watched pin number.
func (m *Monitor) Pin() int { return m.pin }

// State returns the current lifecycle state.
func (m *Monitor) State() MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that faulted the worker, or nil.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed when the worker has exited, either after Stop or on a fault.
func (m *Monitor) Done() <-chan struct{} { return m.done }

// Stop asks the worker to exit, waits for it and releases the handle. The
// worker notices the request after its current wait cycle, so Stop returns
// within about one poll timeout. No OnChange call happens after Stop returns.
func (m *Monitor) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		if m.state == MonitorRunning {
			m.state = MonitorStopRequested
		}
		m.mu.Unlock()

		close(m.stop)
		<-m.done

		m.mu.Lock()
		if m.state != MonitorFaulted {
			m.state = MonitorStopped
		}
		m.mu.Unlock()

		m.stopErr = m.h.Release()
	})
	return m.stopErr
}
