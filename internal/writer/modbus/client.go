// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// EndpointClient is a single connection to one Modbus endpoint, TCP or RTU.
// It serializes requests because it mutates the slave id per write.
type EndpointClient struct {
	mu       sync.Mutex
	conn     io.Closer
	setSlave func(id uint8)
	client   modbus.Client
}

type Config struct {
	Endpoint string
	Timeout  time.Duration

	// RTU only
	BaudRate int
}

// NewTCPEndpointClient connects to a Modbus TCP server at host:port.
func NewTCPEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		conn:     h,
		setSlave: func(id uint8) { h.SlaveId = id },
		client:   modbus.NewClient(h),
	}, nil
}

// NewRTUEndpointClient opens a serial line (8N1) for Modbus RTU.
func NewRTUEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer modbus: serial device required")
	}
	if cfg.BaudRate <= 0 {
		return nil, errors.New("writer modbus: baud rate required")
	}

	h := modbus.NewRTUClientHandler(cfg.Endpoint)
	h.BaudRate = cfg.BaudRate
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &EndpointClient{
		conn:     h,
		setSlave: func(id uint8) { h.SlaveId = id },
		client:   modbus.NewClient(h),
	}, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

func (c *EndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setSlave(unitID)

	qty := uint16(len(regs))
	payload := packRegisters(regs)

	_, err := c.client.WriteMultipleRegisters(addr, qty, payload)
	return err
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
