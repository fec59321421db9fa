package writer

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	breakerTrips   = 5
	breakerTimeout = 30 * time.Second
)

// breakerClient stops hammering an endpoint that keeps failing. While open,
// writes fail fast with gobreaker.ErrOpenState.
type breakerClient struct {
	next EndpointClient
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// WithBreaker wraps an endpoint client in a circuit breaker that opens after
// consecutive failures and lets one request through again after a cool-down.
func WithBreaker(endpoint string, next EndpointClient, log *slog.Logger) EndpointClient {
	if log == nil {
		log = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("writer: endpoint breaker state changed",
				"endpoint", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerClient{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

func (b *breakerClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.WriteRegisters(unitID, addr, regs)
	})
	return err
}
