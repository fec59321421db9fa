// internal/writer/writer_test.go
package writer

import (
	"errors"
	"testing"
	"time"

	"github.com/tamzrod/dust-sensor/internal/air"
	"github.com/tamzrod/dust-sensor/internal/sampler"
	"github.com/tamzrod/dust-sensor/internal/status"
)

// ---- fake endpoint client ----

type fakeEndpointClient struct {
	writes []writeCall
	fail   error

	lastRegsAddr uint16
	lastRegs     []uint16
}

type writeCall struct {
	unitID uint8
	addr   uint16
	qty    int
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	f.writes = append(f.writes, writeCall{
		unitID: unitID,
		addr:   addr,
		qty:    len(regs),
	})
	if f.fail != nil {
		return f.fail
	}
	f.lastRegsAddr = addr
	f.lastRegs = append([]uint16(nil), regs...)
	return nil
}

func reading() sampler.Reading {
	return sampler.Reading{
		SensorID: "pm25",
		At:       time.Unix(1700000000, 0),
		Measurement: air.Measurement{
			Pulses: 3,
			AQI:    42,
		},
	}
}

// ---- tests ----

func TestWriter_ReadingBlockAtTargetAddress(t *testing.T) {
	ep1 := &fakeEndpointClient{}
	ep2 := &fakeEndpointClient{}

	plan := Plan{
		SensorID: "pm25",
		Targets: []TargetEndpoint{
			{TargetID: 1, Endpoint: "ep1", UnitID: 1, Address: 100},
			{TargetID: 2, Endpoint: "ep2", UnitID: 9, Address: 0},
		},
	}

	w := New(plan, map[string]EndpointClient{"ep1": ep1, "ep2": ep2})

	if err := w.Write(reading()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ep1.writes) != 1 || len(ep2.writes) != 1 {
		t.Fatalf("expected one write per target, got %d/%d", len(ep1.writes), len(ep2.writes))
	}
	if ep1.writes[0].addr != 100 || ep1.writes[0].unitID != 1 {
		t.Fatalf("ep1: unexpected write %+v", ep1.writes[0])
	}
	if ep2.writes[0].addr != 0 || ep2.writes[0].unitID != 9 {
		t.Fatalf("ep2: unexpected write %+v", ep2.writes[0])
	}
	if ep1.writes[0].qty != status.ReadingRegisters {
		t.Fatalf("expected %d registers, got %d", status.ReadingRegisters, ep1.writes[0].qty)
	}
	if ep1.lastRegs[status.RegAQI] != 42 {
		t.Fatalf("aqi register: got=%d want=42", ep1.lastRegs[status.RegAQI])
	}
	if status.Word32(ep1.lastRegs, status.RegTimestamp) != 1700000000 {
		t.Fatalf("timestamp not encoded")
	}
}

func TestWriter_FailedReadingNotWritten(t *testing.T) {
	fake := &fakeEndpointClient{}
	w := New(
		Plan{Targets: []TargetEndpoint{{TargetID: 1, Endpoint: "ep1"}}},
		map[string]EndpointClient{"ep1": fake},
	)

	r := reading()
	r.Err = errors.New("boom")
	if err := w.Write(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 0 {
		t.Fatalf("expected no writes, got %d", len(fake.writes))
	}
}

func TestWriter_FailingTargetDoesNotStopOthers(t *testing.T) {
	bad := &fakeEndpointClient{fail: errors.New("refused")}
	good := &fakeEndpointClient{}

	w := New(
		Plan{Targets: []TargetEndpoint{
			{TargetID: 1, Endpoint: "bad"},
			{TargetID: 2, Endpoint: "good"},
			{TargetID: 3, Endpoint: "missing"},
		}},
		map[string]EndpointClient{"bad": bad, "good": good},
	)

	err := w.Write(reading())
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	var se *SinkError
	if !errors.As(err, &se) || len(se.Failures) != 2 {
		t.Fatalf("expected SinkError with 2 failures, got %v", err)
	}
	if status.CodeFor(err) != status.CodeSinkFailure {
		t.Fatalf("expected sink failure code, got %d", status.CodeFor(err))
	}
	if len(good.writes) != 1 {
		t.Fatalf("good target not written")
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeEndpointClient{fail: errors.New("down")}
	cli := WithBreaker("ep1", fake, nil)

	for i := 0; i < breakerTrips; i++ {
		_ = cli.WriteRegisters(1, 0, []uint16{1})
	}
	if len(fake.writes) != breakerTrips {
		t.Fatalf("expected %d attempts, got %d", breakerTrips, len(fake.writes))
	}

	if err := cli.WriteRegisters(1, 0, []uint16{1}); err == nil {
		t.Fatalf("expected open breaker error, got nil")
	}
	if len(fake.writes) != breakerTrips {
		t.Fatalf("open breaker must not reach the endpoint")
	}
}
