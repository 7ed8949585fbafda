package keepalive

import (
	"context"
	"fmt"
	"time"

	"github.com/stigoleg/pad-alive/internal/gamepad"
	"github.com/stigoleg/pad-alive/internal/logging"
)

// Source supplies controller samples.
type Source interface {
	// Drain folds all pending raw events into the sample without blocking.
	Drain() error
	Sample() gamepad.Sample
	// Ready is signalled when Drain has something to consume.
	Ready() <-chan struct{}
}

// Conn is the connection the inhibitor lives on.
type Conn interface {
	// Service processes pending protocol traffic without blocking and
	// reports a broken connection.
	Service() error
	// Done is closed once the connection has failed.
	Done() <-chan struct{}
}

// Status is what the loop reports to an observer after every tick.
type Status struct {
	At           time.Time
	State        State
	LastActiveAt time.Time
	Sample       gamepad.Sample
}

// Loop drives the machine from a device and a protocol connection.
type Loop struct {
	conn     Conn
	source   Source
	machine  *Machine
	clock    func() time.Time
	poll     bool
	observer func(Status)

	wasActive bool
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithPolling makes the loop tick at the fixed TickInterval instead of
// waiting for input or the next deadline.
func WithPolling() LoopOption {
	return func(l *Loop) { l.poll = true }
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) LoopOption {
	return func(l *Loop) { l.clock = clock }
}

// WithObserver registers a callback invoked from the loop goroutine after
// every tick. The reported sample is a private copy.
func WithObserver(fn func(Status)) LoopOption {
	return func(l *Loop) { l.observer = fn }
}

// NewLoop wires a loop. The machine must not be used elsewhere while the
// loop runs.
func NewLoop(conn Conn, source Source, machine *Machine, opts ...LoopOption) *Loop {
	l := &Loop{
		conn:    conn,
		source:  source,
		machine: machine,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run ticks until ctx is cancelled or a connection or device failure
// occurs. Cancellation returns nil; failures wrap ErrRuntime.
func (l *Loop) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Debug().Bool("poll", l.poll).Msg("keepalive: loop started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("keepalive: loop stopped")
			return nil
		case <-l.conn.Done():
		case <-l.source.Ready():
		case <-timer.C:
		}

		if err := l.Tick(ctx); err != nil {
			return err
		}

		if wait, ok := l.nextWait(); ok {
			timer.Reset(wait)
		} else {
			timer.Stop()
		}
	}
}

// Tick runs one iteration: protocol first, then the device, then the
// machine.
func (l *Loop) Tick(ctx context.Context) error {
	if err := l.conn.Service(); err != nil {
		return fmt.Errorf("%w: compositor connection: %w", ErrRuntime, err)
	}
	if err := l.source.Drain(); err != nil {
		return fmt.Errorf("%w: device: %w", ErrRuntime, err)
	}

	now := l.clock()
	sample := l.source.Sample()
	active := gamepad.IsActive(sample)

	// The previous sample stayed in effect until the events just drained,
	// so a release observed now still means the user was active until now.
	if err := l.machine.Tick(ctx, now, active || l.wasActive); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	l.wasActive = active

	if l.observer != nil {
		snap := l.machine.Snapshot()
		l.observer(Status{
			At:           now,
			State:        snap.State,
			LastActiveAt: snap.LastActiveAt,
			Sample:       sample.Clone(),
		})
	}
	return nil
}

func (l *Loop) nextWait() (time.Duration, bool) {
	if l.poll {
		return TickInterval, true
	}
	deadline, ok := l.machine.NextDeadline()
	if !ok {
		return 0, false
	}
	wait := deadline.Sub(l.clock())
	if wait < TickInterval {
		wait = TickInterval
	}
	return wait, true
}
