// cmd/dustsensor/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/tamzrod/dust-sensor/internal/config"
	"github.com/tamzrod/dust-sensor/internal/logger"
	"github.com/tamzrod/dust-sensor/internal/pipeline"
	"github.com/tamzrod/dust-sensor/internal/sampler"
	"github.com/tamzrod/dust-sensor/internal/store"
	"github.com/tamzrod/dust-sensor/internal/writer"
)

const usage = `usage:
  dustsensor <config.yaml>                  run the sensor daemon
  dustsensor latest <config.yaml>           print the latest stored reading
  dustsensor history <config.yaml> [hours]  print stored AQI of the last hours (default 24)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "dustsensor:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing config path")
	}

	switch args[0] {
	case "-h", "--help", "help":
		fmt.Print(usage)
		return nil
	case "latest":
		if len(args) != 2 {
			return errors.New("usage: dustsensor latest <config.yaml>")
		}
		return withStore(args[1], func(ctx context.Context, st *store.Store) error {
			return printLatest(ctx, os.Stdout, st)
		})
	case "history":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: dustsensor history <config.yaml> [hours]")
		}
		hours := 24
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid hours %q", args[2])
			}
			hours = n
		}
		return withStore(args[1], func(ctx context.Context, st *store.Store) error {
			return printHistory(ctx, os.Stdout, st, time.Now().Add(-time.Duration(hours)*time.Hour))
		})
	default:
		if len(args) != 1 {
			fmt.Fprint(os.Stderr, usage)
			return fmt.Errorf("unknown command %q", args[0])
		}
		return daemon(args[0])
	}
}

// loadConfig loads, validates and normalizes the config file.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func daemon(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log = log.With("sensor", cfg.Sensor.ID)

	// --------------------
	// Sinks
	// --------------------

	var rec pipeline.Recorder
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		rec = st

		if cfg.Store.RetentionDays > 0 {
			r, err := store.NewRetention(st, cfg.Store.Retention(), cfg.Store.PruneSchedule, log)
			if err != nil {
				return err
			}
			r.Start()
			defer r.Stop()
		}
	}

	plan, err := writer.BuildPlan(cfg)
	if err != nil {
		return err
	}

	var (
		dataWriter   writer.Writer
		statusWriter writer.StatusWriter
	)
	if len(cfg.Targets) > 0 {
		clients, closeWriters, err := writer.BuildEndpointClients(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeWriters(); err != nil {
				log.Warn("closing endpoint clients failed", "error", err)
			}
		}()

		dataWriter = writer.New(plan, clients)
		if sw, enabled := writer.NewStatusWriter(plan, clients); enabled {
			statusWriter = sw
		}
	}

	// --------------------
	// Sampler + orchestrator
	// --------------------

	s, closeSampler, err := sampler.Build(ctx, cfg.Sensor, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSampler(); err != nil {
			log.Warn("releasing sensor pin failed", "error", err)
		}
	}()

	// Two silent windows mark the sensor stale.
	p := pipeline.New(cfg.Sensor.ID, dataWriter, statusWriter, rec, log).
		WithStaleAfter(2 * cfg.Sensor.SampleWindow())
	log.Info("dustsensor started",
		"pin", *cfg.Sensor.Pin,
		"mode", cfg.Sensor.Mode,
		"window_ms", cfg.Sensor.SampleWindowMs,
		"targets", len(cfg.Targets),
		"run_id", p.RunID(),
	)

	out := make(chan sampler.Reading)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(out)
		s.Run(ctx, out)
	}()
	go func() {
		defer wg.Done()
		p.Run(ctx, out)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		log.Info("dustsensor stopping")
		<-done
	case <-done:
		log.Warn("sampler stopped unexpectedly")
	}
	return nil
}

func withStore(cfgPath string, fn func(ctx context.Context, st *store.Store) error) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path is not configured")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return fn(ctx, st)
}

func printLatest(ctx context.Context, w io.Writer, st *store.Store) error {
	r, err := st.Latest(ctx)
	if errors.Is(err, store.ErrNoReadings) {
		fmt.Fprintln(w, "no air quality data")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "AQI (Air Quality Index) %d, %.2f ug/m3, obtained at: %s\n",
		r.AQI, r.Ugm3, r.At.Format(time.DateTime))
	return nil
}

func printHistory(ctx context.Context, w io.Writer, st *store.Store, since time.Time) error {
	recs, err := st.Since(ctx, since)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "no air quality data")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%d\n", r.At.Format(time.DateTime), r.AQI)
	}
	return nil
}
