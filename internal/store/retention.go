package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes old history. *Store satisfies it.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Retention periodically prunes records older than Keep.
type Retention struct {
	p    Pruner
	keep time.Duration
	cron *cron.Cron
	log  *slog.Logger
	now  func() time.Time
}

// NewRetention schedules pruning with a standard cron expression or
// descriptor (e.g. "@daily"). Call Start to begin and Stop to end.
func NewRetention(p Pruner, keep time.Duration, schedule string, log *slog.Logger) (*Retention, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("store: retention must be > 0, got %v", keep)
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("store: invalid prune schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Retention{
		p:    p,
		keep: keep,
		cron: cron.New(),
		log:  log,
		now:  time.Now,
	}
	r.cron.Schedule(sched, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.runOnce(ctx)
	}))
	return r, nil
}

// Start runs the schedule in the background.
func (r *Retention) Start() { r.cron.Start() }

// Stop ends the schedule and waits for a running prune to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Retention) runOnce(ctx context.Context) {
	before := r.now().Add(-r.keep)
	start := time.Now()
	n, err := r.p.Prune(ctx, before)
	if err != nil {
		r.log.Warn("store: prune failed", "error", err)
		return
	}
	r.log.Info("store: pruned history",
		"removed", n,
		"before", before.Format(time.RFC3339),
		"duration", time.Since(start),
	)
}
