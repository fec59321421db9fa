package writer

import (
	"fmt"
	"strings"

	"github.com/tamzrod/dust-sensor/internal/sampler"
	"github.com/tamzrod/dust-sensor/internal/status"
)

// SinkError aggregates per-target delivery failures of one write.
type SinkError struct {
	Failures []string
}

func (e *SinkError) Error() string {
	return "writer: " + strings.Join(e.Failures, " | ")
}

// Code reports the status error code for delivery failures.
func (e *SinkError) Code() uint16 { return status.CodeSinkFailure }

type readingWriter struct {
	plan    Plan
	clients map[string]EndpointClient
}

// New returns a Writer delivering the reading block to every plan target.
func New(plan Plan, clients map[string]EndpointClient) Writer {
	return &readingWriter{
		plan:    plan,
		clients: clients,
	}
}

// Write encodes a reading once and writes it to all targets. Failed readings
// carry no data and are skipped. A failing target does not stop the others.
func (w *readingWriter) Write(r sampler.Reading) error {
	if r.Err != nil {
		return nil
	}

	regs := status.EncodeReading(r.Measurement, r.At)

	var failures []string
	for _, tgt := range w.plan.Targets {
		cli := w.clients[tgt.Endpoint]
		if cli == nil {
			failures = append(failures, fmt.Sprintf(
				"missing client for endpoint %s",
				tgt.Endpoint,
			))
			continue
		}

		if err := cli.WriteRegisters(tgt.UnitID, tgt.Address, regs); err != nil {
			failures = append(failures, fmt.Sprintf(
				"target=%d ep=%s unit=%d addr=%d err=%v",
				tgt.TargetID, tgt.Endpoint, tgt.UnitID, tgt.Address, err,
			))
		}
	}

	if len(failures) > 0 {
		return &SinkError{Failures: failures}
	}
	return nil
}
