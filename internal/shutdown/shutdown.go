// Package shutdown coalesces repeated stop requests into one teardown.
package shutdown

import (
	"os"
	"sync"
	"syscall"
)

const (
	ExitOK     = 0
	ExitError  = 1
	ExitSignal = 130
)

type Coordinator struct {
	mu       sync.Mutex
	started  bool
	exitCode int
	reason   string
	done     chan struct{}
}

func NewCoordinator() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Request starts shutdown on the first call and returns true. Later calls
// only raise the exit code.
func (c *Coordinator) Request(reason string, exitCode int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		if exitCode > c.exitCode {
			c.exitCode = exitCode
		}
		return false
	}

	c.started = true
	c.exitCode = exitCode
	c.reason = reason
	close(c.done)
	return true
}

// Done is closed once shutdown has been requested.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

func (c *Coordinator) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// SignalExitCode maps SIGINT to 130 and SIGTERM to a clean exit.
func SignalExitCode(signal os.Signal) int {
	switch signal {
	case syscall.SIGTERM:
		return ExitOK
	case os.Interrupt:
		return ExitSignal
	default:
		return ExitError
	}
}
