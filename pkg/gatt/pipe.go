package gatt

import (
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic PDU delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers PDUs.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe is an in-memory LE ACL link carrying ATT PDUs between a client
// (endpoint 0) and a server (endpoint 1). It wraps pion's test.Bridge, which
// preserves PDU boundaries.
//
// By default, Pipe delivers PDUs in a background goroutine. Disable
// AutoProcess and call Tick or Process for deterministic ordering.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.Mutex
	closed          bool
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}
	if p.processInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}
	if p.autoProcess {
		p.startAutoProcess()
	}
	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				for p.bridge.Tick() > 0 {
				}
			}
		}
	}()
}

// ClientConn returns the client endpoint.
func (p *Pipe) ClientConn() net.Conn {
	return p.bridge.GetConn0()
}

// ServerConn returns the server endpoint.
func (p *Pipe) ServerConn() net.Conn {
	return p.bridge.GetConn1()
}

// Tick delivers one PDU in each direction, if available.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued PDUs and returns how many were delivered.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			return count
		}
		count += n
	}
}

// Close drops the link: PDUs still queued are lost and bearers reading from
// either endpoint observe the closure and shut down.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Closing only marks an endpoint. The bridge closes its read channel on
	// the next tick that finds nothing queued towards it.
	_ = p.bridge.GetConn0().Close()
	_ = p.bridge.GetConn1().Close()
	p.bridge.Drop(0, 0, p.bridge.Len(0))
	p.bridge.Drop(1, 0, p.bridge.Len(1))
	p.bridge.Tick()

	if p.autoProcess {
		close(p.stopCh)
	}
	p.wg.Wait()
	return nil
}
