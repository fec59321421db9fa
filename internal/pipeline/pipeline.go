// Package pipeline owns the per-sensor runtime state: it consumes readings,
// delivers and stores them, and keeps the sensor status block current.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tamzrod/dust-sensor/internal/sampler"
	"github.com/tamzrod/dust-sensor/internal/status"
	"github.com/tamzrod/dust-sensor/internal/store"
	"github.com/tamzrod/dust-sensor/internal/writer"
)

// Recorder persists readings. *store.Store satisfies it.
type Recorder interface {
	Insert(ctx context.Context, r store.Record) (int64, error)
}

// Pipeline is the orchestrator between one sampler and its sinks.
// Data writer, status writer and recorder are all optional.
type Pipeline struct {
	sensorID string
	runID    string

	data   writer.Writer
	status writer.StatusWriter
	rec    Recorder
	log    *slog.Logger

	// tick overrides the 1 Hz seconds-in-error ticker.
	tick <-chan time.Time
	now  func() time.Time

	// staleAfter is how long the sensor may stay silent before its health
	// turns STALE. Zero disables the check.
	staleAfter  time.Duration
	lastReading time.Time

	snap status.Snapshot
}

// New creates a pipeline with a fresh run id. log should already carry the
// sensor attribute; the pipeline only adds its run id.
func New(sensorID string, data writer.Writer, sw writer.StatusWriter, rec Recorder, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	runID := uuid.NewString()
	return &Pipeline{
		sensorID: sensorID,
		runID:    runID,
		data:     data,
		status:   sw,
		rec:      rec,
		log:      log.With("run_id", runID),
		now:      time.Now,
		snap:     status.Snapshot{Health: status.HealthUnknown},
	}
}

// WithStaleAfter enables STALE health once no reading has arrived for d.
func (p *Pipeline) WithStaleAfter(d time.Duration) *Pipeline {
	p.staleAfter = d
	return p
}

// RunID identifies this daemon run in the stored history.
func (p *Pipeline) RunID() string { return p.runID }

// Run consumes readings until ctx is done or in is closed. On return the
// status block is marked disabled.
func (p *Pipeline) Run(ctx context.Context, in <-chan sampler.Reading) {
	tick := p.tick
	if tick == nil {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		tick = t.C
	}

	p.lastReading = p.now()

	// Full block write on start (identity re-assert).
	p.writeStatus("start")

	defer func() {
		p.snap.Health = status.HealthDisabled
		p.writeStatus("shutdown")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case r, ok := <-in:
			if !ok {
				return
			}
			p.handle(ctx, r)

		case at := <-tick:
			p.onTick(at)
		}
	}
}

func (p *Pipeline) onTick(at time.Time) {
	changed := false

	// ERROR already explains the silence; STALE covers a source that just
	// stopped producing.
	if p.staleAfter > 0 && at.Sub(p.lastReading) > p.staleAfter &&
		(p.snap.Health == status.HealthOK || p.snap.Health == status.HealthUnknown) {
		p.log.Warn("pipeline: no reading", "since", p.lastReading, "stale_after", p.staleAfter)
		p.snap.Health = status.HealthStale
		changed = true
	}

	// seconds_in_error counts while not OK and never wraps.
	if p.snap.Health != status.HealthOK && p.snap.SecondsInError < 65535 {
		p.snap.SecondsInError++
		changed = true
	}

	if changed {
		p.writeStatus("tick")
	}
}

func (p *Pipeline) handle(ctx context.Context, r sampler.Reading) {
	p.lastReading = r.At
	if r.At.IsZero() {
		p.lastReading = p.now()
	}

	err := r.Err
	if err == nil {
		p.log.Info("pipeline: reading",
			"aqi", r.Measurement.AQI,
			"ugm3", r.Measurement.Ugm3,
			"pulses", r.Measurement.Pulses,
			"out_of_bounds", r.Measurement.OutOfBounds,
		)

		if p.data != nil {
			if werr := p.data.Write(r); werr != nil {
				p.log.Error("pipeline: delivery failed", "error", werr)
				err = werr
			}
		}
		if p.rec != nil {
			if _, serr := p.rec.Insert(ctx, store.NewRecord(p.runID, r.At, r.Measurement)); serr != nil {
				p.log.Error("pipeline: store insert failed", "error", serr)
			}
		}
	}

	changed := p.setRestarts(r.Restarts)
	if err == nil {
		changed = p.markOK() || changed
	} else {
		changed = p.markError(status.CodeFor(err)) || changed
	}
	if changed {
		p.writeStatus("update")
	}
}

// markOK moves to OK and clears the error fields.
func (p *Pipeline) markOK() bool {
	changed := false
	if p.snap.Health != status.HealthOK {
		p.snap.Health = status.HealthOK
		changed = true
	}
	if p.snap.LastErrorCode != status.CodeNone {
		p.snap.LastErrorCode = status.CodeNone
		changed = true
	}
	if p.snap.SecondsInError != 0 {
		p.snap.SecondsInError = 0
		changed = true
	}
	return changed
}

// markError moves to ERROR. seconds_in_error only advances on the ticker.
func (p *Pipeline) markError(code uint16) bool {
	changed := false
	if p.snap.Health != status.HealthError {
		p.snap.Health = status.HealthError
		changed = true
	}
	if p.snap.LastErrorCode != code {
		p.snap.LastErrorCode = code
		changed = true
	}
	return changed
}

func (p *Pipeline) setRestarts(n int) bool {
	v := uint16(65535)
	if n < 65535 {
		v = uint16(max(n, 0))
	}
	if p.snap.Restarts == v {
		return false
	}
	p.snap.Restarts = v
	return true
}

func (p *Pipeline) writeStatus(reason string) {
	if p.status == nil {
		return
	}
	if err := p.status.WriteStatus(p.snap); err != nil {
		p.log.Warn("pipeline: status write failed", "reason", reason, "error", err)
	}
}
