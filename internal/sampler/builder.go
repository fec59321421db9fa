package sampler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cfg "github.com/tamzrod/dust-sensor/internal/config"
	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// Build prepares the sensor pin and constructs a Sampler with its pulse
// source. The pin is exported and configured (direction in, edge both) here;
// the returned closer releases the source and unexports the pin when the
// config asks for it. Expects a normalized config.
func Build(ctx context.Context, sc cfg.SensorConfig, log *slog.Logger) (*Sampler, func() error, error) {
	if sc.Pin == nil {
		return nil, nil, errors.New("sampler: pin required")
	}
	pin := *sc.Pin

	sys := &gpio.Sysfs{
		Root:         sc.SysfsRoot,
		ReadyRetries: sc.ReadyRetries,
		ReadyBackoff: sc.ReadyBackoff(),
		PollTimeout:  sc.PollTimeout(),
		Logger:       log,
	}

	reexport := sc.Reexport == nil || *sc.Reexport
	if err := sys.PrepareInput(ctx, pin, reexport); err != nil {
		return nil, nil, fmt.Errorf("sampler: prepare pin %d: %w", pin, err)
	}

	// source factory: ONE attempt per call
	factory := func() (PulseSource, error) {
		if sc.Mode == cfg.ModeAsync {
			return NewAsyncSource(sys, pin, log)
		}
		return NewSyncSource(sys, pin)
	}

	unexport := func() error {
		if sc.UnexportOnExit != nil && !*sc.UnexportOnExit {
			return nil
		}
		return sys.Unexport(pin)
	}

	// initial source (fail fast at startup)
	src, err := factory()
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("sampler: open pin %d: %w", pin, err), unexport())
	}

	s, err := New(
		Config{
			SensorID:     sc.ID,
			Window:       sc.SampleWindow(),
			PulseMin:     sc.PulseMin(),
			PulseMax:     sc.PulseMax(),
			RestartDelay: sc.RestartDelay(),
		},
		src,
		factory,
		log,
	)
	if err != nil {
		return nil, nil, errors.Join(err, src.Close(), unexport())
	}

	// Must run after Run has returned.
	closer := func() error {
		return errors.Join(s.Close(), unexport())
	}
	return s, closer, nil
}
