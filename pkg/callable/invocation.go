package callable

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Suspender parks a running built-in while an external operation completes. The
// execution bridge implements it; Direct is a trivial implementation for tests.
type Suspender interface {
	Suspend(inv *Invocation, op func(ctx context.Context) (any, error)) (any, error)
}

// Invocation is the per-call context handed to a built-in. It is created fresh for each
// call and must not be retained after the call returns.
type Invocation struct {
	Name string
	Args []value.Value
	Caps *capability.Capabilities

	ctx    context.Context
	susp   Suspender
	logger *slog.Logger
}

// NewInvocation bundles everything a built-in needs for one call. A nil suspender runs
// awaited operations inline; a nil logger discards output.
func NewInvocation(ctx context.Context, name string, args []value.Value, caps *capability.Capabilities, susp Suspender, logger *slog.Logger) *Invocation {
	if caps == nil {
		caps = &capability.Capabilities{}
	}
	if susp == nil {
		susp = Direct{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Invocation{Name: name, Args: args, Caps: caps, ctx: ctx, susp: susp, logger: logger}
}

// Context returns the context of the call. Cancellation is observed at suspension points.
func (inv *Invocation) Context() context.Context { return inv.ctx }

// Logger returns the logger for the call.
func (inv *Invocation) Logger() *slog.Logger { return inv.logger }

// Has reports whether the 0-based argument i was supplied.
func (inv *Invocation) Has(i int) bool { return i < len(inv.Args) }

// Int returns argument i as an integer, rounding doubles.
func (inv *Invocation) Int(i int) (int32, error) {
	n, err := inv.Args[i].ToInt()
	if err != nil {
		return 0, NewValueError(inv.Name, i+1, "%v", err)
	}
	return n, nil
}

// Float returns argument i as a double.
func (inv *Invocation) Float(i int) float64 {
	f, _ := inv.Args[i].AsFloat()
	return f
}

// Text returns argument i as text.
func (inv *Invocation) Text(i int) string {
	s, _ := inv.Args[i].AsText()
	return s
}

// Bool returns argument i as a boolean.
func (inv *Invocation) Bool(i int) bool {
	b, _ := inv.Args[i].AsBool()
	return b
}

// ValueErrorf reports a bad value at 0-based argument i.
func (inv *Invocation) ValueErrorf(i int, format string, args ...any) error {
	return NewValueError(inv.Name, i+1, format, args...)
}

// Console returns the console capability or an InternalError if the host gave none.
func (inv *Invocation) Console() (capability.Console, error) {
	if inv.Caps.Console == nil {
		return nil, NewInternalError(inv.Name, "no console available")
	}
	return inv.Caps.Console, nil
}

// Files returns the file system capability.
func (inv *Invocation) Files() (capability.FileSystem, error) {
	if inv.Caps.Files == nil {
		return nil, NewInternalError(inv.Name, "no file system available")
	}
	return inv.Caps.Files, nil
}

// Clock returns the clock capability.
func (inv *Invocation) Clock() (capability.Clock, error) {
	if inv.Caps.Clock == nil {
		return nil, NewInternalError(inv.Name, "no clock available")
	}
	return inv.Caps.Clock, nil
}

// Rand returns the randomness capability.
func (inv *Invocation) Rand() (capability.RandSource, error) {
	if inv.Caps.Rand == nil {
		return nil, NewInternalError(inv.Name, "no random number generator available")
	}
	return inv.Caps.Rand, nil
}

// Program returns the stored program capability.
func (inv *Invocation) Program() (capability.Program, error) {
	if inv.Caps.Program == nil {
		return nil, NewInternalError(inv.Name, "no program store available")
	}
	return inv.Caps.Program, nil
}

// Await runs op as the single suspension point of the caller. The built-in is parked until
// op finishes; a host break delivered meanwhile cancels op's context and makes Await
// return a Cancelled error once op has returned. Errors from op are classified as IoError
// unless they already are an *Error.
func Await[T any](inv *Invocation, op func(ctx context.Context) (T, error)) (T, error) {
	res, err := inv.susp.Suspend(inv, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Do is Await for operations without a result.
func Do(inv *Invocation, op func(ctx context.Context) error) error {
	_, err := Await(inv, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Yield is a suspension point without external work. Long-running built-ins call it to
// let the host deliver a break.
func Yield(inv *Invocation) error {
	return Do(inv, func(context.Context) error { return nil })
}

// Direct runs awaited operations inline on the calling goroutine, honouring only the
// invocation context. It is what module tests use in place of the bridge.
type Direct struct{}

// Suspend implements Suspender.
func (Direct) Suspend(inv *Invocation, op func(ctx context.Context) (any, error)) (any, error) {
	if err := inv.ctx.Err(); err != nil {
		return nil, NewCancelledError(inv.Name, err)
	}
	res, err := op(inv.ctx)
	if err != nil {
		if inv.ctx.Err() != nil {
			return nil, NewCancelledError(inv.Name, err)
		}
		return nil, NewIOError(inv.Name, err)
	}
	return res, nil
}
