//go:build linux

package integration

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/stigoleg/pad-alive/internal/gamepad"
)

// printInhibitor reports every create and destroy on w so a parent process
// can follow along.
type printInhibitor struct {
	mu   sync.Mutex
	w    io.Writer
	held bool
}

func (p *printInhibitor) Create() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.held = true
	fmt.Fprintln(p.w, "inhibitor created")
	return nil
}

func (p *printInhibitor) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.held = false
	fmt.Fprintln(p.w, "inhibitor destroyed")
	return nil
}

func (p *printInhibitor) Held() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.held
}

// idleConn is a connection that never fails.
type idleConn struct{ done chan struct{} }

func newIdleConn() *idleConn { return &idleConn{done: make(chan struct{})} }

func (c *idleConn) Service() error { return nil }
func (c *idleConn) Done() <-chan struct{} { return c.done }

// heldSource reports a pressed button until the process ends.
type heldSource struct{ ready chan struct{} }

func newHeldSource() *heldSource {
	s := &heldSource{ready: make(chan struct{}, 1)}
	s.ready <- struct{}{}
	return s
}

func (s *heldSource) Drain() error { return nil }

func (s *heldSource) Sample() gamepad.Sample {
	sample := gamepad.NewSample()
	sample.Buttons[0] = true
	return sample
}

func (s *heldSource) Ready() <-chan struct{} { return s.ready }

// eventually polls cond until it holds or the timeout passes.
func eventually(ctx context.Context, timeout time.Duration, cond func() bool) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return true
		}
		select {
		case <-ctx.Done():
			return cond()
		case <-ticker.C:
		}
	}
}
