// Package bridge lets a synchronous evaluator call built-ins that wait on external events.
//
// The evaluator calls Machine.Invoke from its single goroutine and gets control back only
// when the built-in has run to completion. Inside a built-in, callable.Await is the only
// place where it can wait: the awaited operation runs on its own goroutine while the
// built-in stays parked, so the host keeps running (pumping input, delivering signals)
// but no other built-in can start. A Break signal delivered by the host is observed at the
// next suspension point and unwinds the built-in with a Cancelled error.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"golang.org/x/sync/semaphore"
)

// Signal is an asynchronous notification from the host.
type Signal int

// Signals understood by the machine.
const (
	// Break interrupts the running built-in at its next suspension point.
	Break Signal = iota + 1
)

func (s Signal) String() string {
	if s == Break {
		return "break"
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// Suspension identifies one parked wait of a built-in.
type Suspension struct {
	Callable string
	Seq      int // 1-based count of suspensions within the current invocation
}

// Hooks let the host observe suspensions. Both run on the evaluator goroutine: Park right
// after the awaited operation has started, Resume right before the built-in continues.
type Hooks struct {
	Park   func(Suspension)
	Resume func(Suspension)
}

// Machine dispatches built-ins from a registry and runs them one at a time.
type Machine struct {
	reg     *registry.Registry
	caps    *capability.Capabilities
	signals chan Signal
	busy    *semaphore.Weighted
	hooks   Hooks
	logger  *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger for invocation traces.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHooks installs suspension hooks.
func WithHooks(h Hooks) Option {
	return func(m *Machine) {
		m.hooks = h
	}
}

// WithSignalBuffer sets how many signals may queue before Interrupt starts dropping them.
func WithSignalBuffer(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.signals = make(chan Signal, n)
		}
	}
}

// New creates a machine over reg and seals reg: no built-in can be registered once the
// evaluator may be running.
func New(reg *registry.Registry, caps *capability.Capabilities, opts ...Option) *Machine {
	if caps == nil {
		caps = &capability.Capabilities{}
	}
	m := &Machine{
		reg:     reg,
		caps:    caps,
		signals: make(chan Signal, 8),
		busy:    semaphore.NewWeighted(1),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	reg.Seal()
	return m
}

// Registry returns the sealed registry the machine dispatches from.
func (m *Machine) Registry() *registry.Registry { return m.reg }

// Capabilities returns the handles passed to every built-in.
func (m *Machine) Capabilities() *capability.Capabilities { return m.caps }

// Signals returns the channel hosts may send signals on. Sends should not block the
// host for long; Interrupt is the non-blocking alternative.
func (m *Machine) Signals() chan<- Signal { return m.signals }

// Interrupt delivers a Break without blocking. It reports false if the signal queue was
// full, in which case a Break is already pending.
func (m *Machine) Interrupt() bool {
	select {
	case m.signals <- Break:
		return true
	default:
		return false
	}
}

// Invoke resolves name and runs the built-in with already evaluated args. Commands
// produce a Void value. Every failure is a *callable.Error.
func (m *Machine) Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error) {
	ref, err := value.ParseRef(name)
	if err != nil {
		return value.Value{}, callable.NewUnknownError(name)
	}
	return m.InvokeRef(ctx, ref, args)
}

// InvokeRef is Invoke for a reference that may carry a type annotation.
func (m *Machine) InvokeRef(ctx context.Context, ref value.Ref, args []value.Value) (value.Value, error) {
	d, err := m.reg.Resolve(ref)
	if err != nil {
		return value.Value{}, err
	}
	return m.Run(ctx, d, args)
}

// Run executes a resolved descriptor. Arguments are checked before anything else so that
// a bad call never touches a capability.
func (m *Machine) Run(ctx context.Context, d *callable.Descriptor, args []value.Value) (value.Value, error) {
	if err := d.Check(args); err != nil {
		return value.Value{}, err
	}
	if !m.busy.TryAcquire(1) {
		return value.Value{}, callable.NewInternalError(d.Name(), "another built-in is still running")
	}
	defer m.busy.Release(1)

	m.drainSignals()

	t := &task{m: m}
	inv := callable.NewInvocation(ctx, d.Name(), args, m.caps, t, m.logger)
	start := time.Now()
	v, err := t.run(d, inv)

	attrs := []any{
		"name", d.Name(),
		"args", len(args),
		"suspensions", t.seq,
		"duration", time.Since(start),
	}
	if err != nil {
		attrs = append(attrs, "error_kind", callable.KindOf(err).String(), "error", err)
	}
	m.logger.Debug("invoked built-in", attrs...)
	return v, err
}

// drainSignals discards signals that arrived while nothing was running.
func (m *Machine) drainSignals() {
	for {
		select {
		case sig := <-m.signals:
			m.logger.Debug("discarding stale signal", "signal", sig.String())
		default:
			return
		}
	}
}

// task is the suspender for a single invocation.
type task struct {
	m   *Machine
	seq int
}

// run executes d, turning panics and stray errors into *callable.Error values.
func (t *task) run(d *callable.Descriptor, inv *callable.Invocation) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = value.Value{}
			err = callable.NewInternalError(d.Name(), "panic: %v", r)
		}
	}()
	v, err = d.Run(inv)
	if err != nil {
		return value.Value{}, classify(d.Name(), err)
	}
	return v, nil
}

// classify makes sure whatever a built-in returns is part of the error taxonomy.
func classify(name string, err error) error {
	var e *callable.Error
	if errors.As(err, &e) {
		return err
	}
	return callable.NewInternalError(name, "%v", err)
}

type outcome struct {
	res any
	err error
}

// Suspend implements callable.Suspender.
func (t *task) Suspend(inv *callable.Invocation, op func(ctx context.Context) (any, error)) (any, error) {
	ctx := inv.Context()

	// A break that is already pending is honoured before any new work starts.
	select {
	case sig := <-t.m.signals:
		return nil, callable.NewCancelledError(inv.Name, fmt.Errorf("received %s", sig))
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, callable.NewCancelledError(inv.Name, err)
	}

	t.seq++
	s := Suspension{Callable: inv.Name, Seq: t.seq}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: callable.NewInternalError(inv.Name, "panic in awaited operation: %v", r)}
			}
		}()
		res, err := op(opCtx)
		done <- outcome{res: res, err: err}
	}()

	if t.m.hooks.Park != nil {
		t.m.hooks.Park(s)
	}

	var out outcome
	var interrupted error
	select {
	case out = <-done:
	case sig := <-t.m.signals:
		interrupted = fmt.Errorf("received %s", sig)
	case <-ctx.Done():
		interrupted = ctx.Err()
	}
	if interrupted != nil {
		// Wait for the operation to wind down so that nothing it does can land after the
		// built-in has been told it was cancelled.
		cancel()
		out = <-done
		t.m.logger.Debug("built-in interrupted", "name", inv.Name, "suspension", s.Seq, "cause", interrupted)
	}

	if t.m.hooks.Resume != nil {
		t.m.hooks.Resume(s)
	}

	if interrupted != nil {
		return nil, callable.NewCancelledError(inv.Name, interrupted)
	}
	if out.err != nil {
		// The host may have cancelled just as the operation gave up.
		if err := ctx.Err(); err != nil {
			return nil, callable.NewCancelledError(inv.Name, err)
		}
		return nil, callable.NewIOError(inv.Name, out.err)
	}
	return out.res, nil
}
