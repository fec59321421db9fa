package sampler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// faultingAsync runs a real monitor over a pin that produces one low pulse and
// then fails its notification. It returns once the monitor has faulted.
func faultingAsync(t *testing.T) (*asyncSource, *simPin) {
	t.Helper()
	pin := &simPin{
		current: '1',
		levels:  []byte{'1', '0', '1'},
		idleErr: fmt.Errorf("epoll_wait: %w", gpio.ErrNotificationFailure),
	}

	s := newAsyncSource(nil)
	t0 := time.Unix(1000, 0)
	times := []time.Time{t0, t0.Add(20 * time.Millisecond)}
	s.now = func() time.Time { v := times[0]; times = times[1:]; return v }

	mon, err := gpio.Watch(pin.handle(), s, nil)
	require.NoError(t, err)
	s.mon = mon

	select {
	case <-mon.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not fault")
	}
	require.Equal(t, gpio.MonitorFaulted, mon.State())
	return s, pin
}

func TestAsyncSource_BufferedPulseWinsOverFault(t *testing.T) {
	s, pin := faultingAsync(t)

	d, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, d)

	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, ErrSourceDead)
	assert.ErrorIs(t, err, gpio.ErrNotificationFailure)

	require.NoError(t, s.Close())
	assert.Equal(t, 2, pin.closeCount(), "notifier and value released")
}

func TestRun_FaultedMonitorIsRecreated(t *testing.T) {
	first, pin := faultingAsync(t)
	second := pulses(12 * time.Millisecond)
	factory := func() (PulseSource, error) { return second, nil }

	s, err := New(testConfig(), first, factory, nil)
	require.NoError(t, err)

	got := collect(t, s, 2)
	assert.ErrorIs(t, got[0].Err, ErrSourceDead)
	assert.ErrorIs(t, got[0].Err, gpio.ErrNotificationFailure)
	assert.Equal(t, 2, pin.closeCount())

	require.NoError(t, got[1].Err)
	assert.Equal(t, 1, got[1].Restarts)
	assert.Equal(t, 2, got[1].Measurement.Pulses, "buffered pulse and the new source's pulse")
}

func TestSyncSource_PulseAcrossWindowBoundary(t *testing.T) {
	// The line goes low and stays low past the first window deadline.
	pin := &simPin{current: '1', levels: []byte{'0'}}
	s, err := New(testConfig(), newSyncSource(pin.handle()), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Reading)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, out)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	next := func() Reading {
		select {
		case r := <-out:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("no reading")
			return Reading{}
		}
	}

	r := next()
	require.NoError(t, r.Err)
	assert.Zero(t, r.Measurement.Pulses, "pulse still in progress")

	pin.push('1')
	r = next()
	require.NoError(t, r.Err)
	assert.Equal(t, 1, r.Measurement.Pulses, "pulse credited to the window it ended in")
}

func TestRun_LogsCarryCallerAttrsOnce(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil)).With("sensor", "pm25")

	src := &fakeSource{results: []result{
		{err: fmt.Errorf("wait: %w", gpio.ErrNotificationFailure)},
	}}
	s, err := New(testConfig(), src, nil, log)
	require.NoError(t, err)

	collect(t, s, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, "sensor="), line)
	}
	assert.Contains(t, buf.String(), "pulse measurement failed")
}
