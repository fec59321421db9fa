// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"log/slog"

	cfg "github.com/tamzrod/dust-sensor/internal/config"
	"github.com/tamzrod/dust-sensor/internal/writer/ingest"
	wmodbus "github.com/tamzrod/dust-sensor/internal/writer/modbus"
)

// BuildPlan converts the sensor config into a Writer Plan.
// Assumes config has already passed validation and normalization.
func BuildPlan(c *cfg.Config) (Plan, error) {
	if c.Sensor.ID == "" {
		return Plan{}, errors.New("writer: sensor.id required")
	}

	plan := Plan{SensorID: c.Sensor.ID}

	for _, t := range c.Targets {
		plan.Targets = append(plan.Targets, TargetEndpoint{
			TargetID: t.ID,
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Address:  t.Address,
		})
	}

	if c.Status.Slot != nil {
		sp := &StatusPlan{
			BaseSlot:   *c.Status.Slot,
			DeviceName: c.Status.DeviceName,
		}
		for _, t := range c.Targets {
			if t.StatusUnitID == nil {
				return Plan{}, fmt.Errorf("writer: target %d: status_unit_id required", t.ID)
			}
			sp.Targets = append(sp.Targets, StatusTarget{
				Endpoint: t.Endpoint,
				UnitID:   *t.StatusUnitID,
			})
		}
		plan.Status = sp
	}

	return plan, nil
}

type closableClient interface {
	EndpointClient
	Close() error
}

// BuildEndpointClients creates one client per unique endpoint, wrapped in a
// circuit breaker. The first target naming an endpoint decides its transport,
// baud rate and timeout.
func BuildEndpointClients(c *cfg.Config, log *slog.Logger) (map[string]EndpointClient, func() error, error) {
	clients := make(map[string]EndpointClient)
	var closers []func() error

	closeAll := func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	for _, t := range c.Targets {
		if _, ok := clients[t.Endpoint]; ok {
			continue
		}

		cli, err := newEndpointClient(t)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("writer: target %d endpoint %s: %w", t.ID, t.Endpoint, err)
		}
		clients[t.Endpoint] = WithBreaker(t.Endpoint, cli, log)
		closers = append(closers, cli.Close)
	}

	return clients, closeAll, nil
}

func newEndpointClient(t cfg.TargetConfig) (closableClient, error) {
	switch t.Transport {
	case cfg.TransportIngest:
		return ingest.NewEndpointClient(ingest.Config{
			Endpoint: t.Endpoint,
			Timeout:  t.Timeout(),
		})
	case cfg.TransportRTU:
		return wmodbus.NewRTUEndpointClient(wmodbus.Config{
			Endpoint: t.Endpoint,
			Timeout:  t.Timeout(),
			BaudRate: t.BaudRate,
		})
	case cfg.TransportTCP, "":
		return wmodbus.NewTCPEndpointClient(wmodbus.Config{
			Endpoint: t.Endpoint,
			Timeout:  t.Timeout(),
		})
	default:
		return nil, fmt.Errorf("unknown transport %q", t.Transport)
	}
}
