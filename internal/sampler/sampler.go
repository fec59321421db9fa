package sampler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/tamzrod/dust-sensor/internal/air"
)

// Config is the minimal runtime config the sampler needs.
type Config struct {
	SensorID     string
	Window       time.Duration
	PulseMin     time.Duration
	PulseMax     time.Duration
	RestartDelay time.Duration
}

// Sampler turns low pulses into one Reading per sample window.
type Sampler struct {
	cfg     Config
	src     PulseSource
	factory SourceFactory
	log     *slog.Logger
	now     func() time.Time

	// warn limits out-of-bounds pulse logging; a noisy line would flood the log.
	warn       *rate.Limiter
	suppressed int

	restarts int
}

// New creates a sampler with immutable config. factory may be nil, in which
// case a dead source ends Run. log is used as given; the caller attaches the sensor
// attributes.
func New(cfg Config, src PulseSource, factory SourceFactory, log *slog.Logger) (*Sampler, error) {
	if cfg.SensorID == "" {
		return nil, errors.New("sampler: sensor id required")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("sampler: window must be > 0")
	}
	if src == nil && factory == nil {
		return nil, errors.New("sampler: pulse source or factory required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		cfg:     cfg,
		src:     src,
		factory: factory,
		log:     log,
		now:     time.Now,
		warn:    rate.NewLimiter(rate.Every(10*time.Second), 3),
	}, nil
}

// Run pulls pulses until ctx is done and emits a Reading per closed window
// on out. One goroutine per sensor. Run closes the pulse source on return.
func (s *Sampler) Run(ctx context.Context, out chan<- Reading) {
	defer s.Close()

	w := air.Window{
		Length:   s.cfg.Window,
		PulseMin: s.cfg.PulseMin,
		PulseMax: s.cfg.PulseMax,
	}
	w.Reset(s.now())

	for ctx.Err() == nil {
		if s.src == nil && !s.reopen(ctx, out) {
			return
		}
		if s.src == nil {
			continue
		}

		// The window deadline keeps readings flowing when no pulse arrives.
		wctx, cancel := context.WithDeadline(ctx, w.End())
		d, err := s.src.Next(wctx)
		cancel()

		switch {
		case err == nil:
			if !w.Add(d) {
				s.outOfBounds(d)
			}
		case ctx.Err() != nil:
			return
		case errors.Is(err, context.DeadlineExceeded):
			// window boundary, nothing measured
		default:
			s.fail(ctx, out, err)
		}

		if now := s.now(); w.Due(now) {
			m := w.Close(now)
			s.emit(ctx, out, Reading{
				SensorID:    s.cfg.SensorID,
				At:          now,
				Measurement: m,
				Restarts:    s.restarts,
			})
		}
	}
}

// Close releases the current pulse source, if any.
func (s *Sampler) Close() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}

// fail reports a source error and backs off. A dead source is dropped so the
// next loop iteration re-creates it.
func (s *Sampler) fail(ctx context.Context, out chan<- Reading, err error) {
	s.log.Error("sampler: pulse measurement failed", "error", err)
	s.emit(ctx, out, Reading{
		SensorID: s.cfg.SensorID,
		At:       s.now(),
		Restarts: s.restarts,
		Err:      err,
	})

	if errors.Is(err, ErrSourceDead) {
		if cerr := s.Close(); cerr != nil {
			s.log.Warn("sampler: closing dead source failed", "error", cerr)
		}
		if s.factory == nil {
			return
		}
	}
	s.sleep(ctx, s.cfg.RestartDelay)
}

// reopen creates a new source. It returns false when no source can ever be
// created again.
func (s *Sampler) reopen(ctx context.Context, out chan<- Reading) bool {
	if s.factory == nil {
		return false
	}

	src, err := s.factory()
	if err != nil {
		s.log.Error("sampler: recreating pulse source failed", "error", err)
		s.emit(ctx, out, Reading{
			SensorID: s.cfg.SensorID,
			At:       s.now(),
			Restarts: s.restarts,
			Err:      err,
		})
		s.sleep(ctx, s.cfg.RestartDelay)
		return true
	}

	s.src = src
	s.restarts++
	s.log.Info("sampler: pulse source recreated", "restarts", s.restarts)
	return true
}

func (s *Sampler) outOfBounds(d time.Duration) {
	if !s.warn.Allow() {
		s.suppressed++
		return
	}
	s.log.Warn("sampler: pulse duration out of bounds",
		"duration_us", d.Microseconds(),
		"min_us", s.cfg.PulseMin.Microseconds(),
		"max_us", s.cfg.PulseMax.Microseconds(),
		"suppressed", s.suppressed,
	)
	s.suppressed = 0
}

func (s *Sampler) emit(ctx context.Context, out chan<- Reading, r Reading) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}

func (s *Sampler) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
