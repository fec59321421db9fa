package sampler

import (
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/dust-sensor/internal/gpio"
)

// simPin feeds levels to a gpio.Handle, one per notification cycle. Once the
// levels run out every wait fails with idleErr, or idles for a millisecond
// when idleErr is nil.
type simPin struct {
	mu      sync.Mutex
	levels  []byte
	current byte
	idleErr error
	closed  int
}

func (p *simPin) Wait(time.Duration) error {
	p.mu.Lock()
	if len(p.levels) > 0 {
		p.current = p.levels[0]
		p.levels = p.levels[1:]
		p.mu.Unlock()
		return nil
	}
	err := p.idleErr
	p.mu.Unlock()

	if err != nil {
		return err
	}
	time.Sleep(time.Millisecond)
	return nil
}

func (p *simPin) ReadAt(b []byte, off int64) (int, error) {
	if off != 0 || len(b) < 2 {
		return 0, errors.New("unexpected read")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b[0], b[1] = p.current, '\n'
	return 2, nil
}

func (p *simPin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *simPin) push(levels ...byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, levels...)
}

func (p *simPin) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *simPin) handle() *gpio.Handle {
	return gpio.NewHandle(17, p, p, time.Millisecond, nil)
}
