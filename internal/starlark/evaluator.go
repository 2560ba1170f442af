// Package starlark runs Starlark scripts and REPL chunks against the BASIC built-ins.
//
// Every registered built-in is predeclared under its bare name (PRINT, LEFT, RND) and
// invoked through the bridge, so scripts observe the same argument checks, suspension
// points and cancellation as any other evaluator. Starlark's own print writes to the
// console capability.
package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapbasic/pkg/bridge"
	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/symbols"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// REPLFile is the file name reported for interactive chunks.
const REPLFile = "<repl>"

const contextKey = "leapbasic.context"

// errInterrupted is the cause of a break delivered between two built-in calls.
var errInterrupted = errors.New("interrupted")

// EvalError reports a failed script or chunk. Err holds the *callable.Error raised by a
// built-in, if that is what stopped execution.
type EvalError struct {
	File    string
	Message string
	Err     error
}

func (e *EvalError) Error() string {
	if strings.HasPrefix(e.Message, e.File+":") {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Evaluator executes Starlark code. It is not safe for concurrent use, except for
// Interrupt which may be called from any goroutine.
type Evaluator struct {
	m        *bridge.Machine
	vars     *symbols.Table
	logger   *slog.Logger
	opts     *syntax.FileOptions
	builtins starlark.StringDict
	session  starlark.StringDict

	mu          sync.Mutex
	thread      *starlark.Thread
	interrupted bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithVariables sets the table that mirrors REPL session variables.
func WithVariables(vars *symbols.Table) Option {
	return func(e *Evaluator) {
		if vars != nil {
			e.vars = vars
		}
	}
}

// New creates an evaluator over the machine's registry.
func New(m *bridge.Machine, opts ...Option) *Evaluator {
	e := &Evaluator{
		m:      m,
		vars:   symbols.NewTable(m.Registry()),
		logger: slog.New(slog.DiscardHandler),
		opts: &syntax.FileOptions{
			Set:               true,
			While:             true,
			TopLevelControl:   true,
			GlobalReassign:    true,
			Recursion:         true,
			LoadBindsGlobally: true,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.builtins = e.predeclared()
	e.Reset()
	return e
}

// Builtins returns the predeclared names: one per registered built-in plus CALL, which
// takes a possibly annotated name as its first argument.
func (e *Evaluator) Builtins() starlark.StringDict {
	return e.builtins
}

// Variables returns the table mirroring the REPL session's BASIC-compatible globals.
func (e *Evaluator) Variables() *symbols.Table {
	return e.vars
}

// Reset forgets every REPL session global.
func (e *Evaluator) Reset() {
	e.session = make(starlark.StringDict, len(e.builtins))
	for name, v := range e.builtins {
		e.session[name] = v
	}
	e.vars.Clear()
}

func (e *Evaluator) predeclared() starlark.StringDict {
	reg := e.m.Registry()
	dict := make(starlark.StringDict, reg.Len()+1)
	for name, d := range reg.PrefixSearch("") {
		dict[name] = e.builtin(name, d)
	}
	dict["CALL"] = starlark.NewBuiltin("CALL", e.call)
	return dict
}

func (e *Evaluator) builtin(name string, d *callable.Descriptor) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return e.invoke(threadContext(thread), d, args, kwargs)
	})
}

func (e *Evaluator) call(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) == 0 {
		return nil, callable.NewArityError("CALL", 1, -1, 0)
	}
	name, ok := starlark.AsString(args[0])
	if !ok {
		return nil, &callable.Error{
			Kind:     callable.ArgumentError,
			Reason:   callable.ReasonType,
			Callable: "CALL",
			Pos:      1,
			Msg:      fmt.Sprintf("expected a built-in name but found %s", args[0].Type()),
		}
	}
	ref, err := value.ParseRef(name)
	if err != nil {
		return nil, callable.NewUnknownError(name)
	}
	d, err := e.m.Registry().Resolve(ref)
	if err != nil {
		return nil, err
	}
	return e.invoke(threadContext(thread), d, args[1:], kwargs)
}

func (e *Evaluator) invoke(ctx context.Context, d *callable.Descriptor, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, &callable.Error{
			Kind:     callable.ArgumentError,
			Reason:   callable.ReasonArity,
			Callable: d.Name(),
			Msg:      "keyword arguments are not supported",
		}
	}
	vals := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := ToValue(arg)
		if err != nil {
			return nil, &callable.Error{
				Kind:     callable.ArgumentError,
				Reason:   callable.ReasonType,
				Callable: d.Name(),
				Pos:      i + 1,
				Msg:      err.Error(),
			}
		}
		vals[i] = v
	}
	v, err := e.m.Run(ctx, d, vals)
	if err != nil {
		return nil, err
	}
	return FromValue(v), nil
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// ExecFile runs a whole script with fresh globals and returns them.
func (e *Evaluator) ExecFile(ctx context.Context, filename string, src any) (starlark.StringDict, error) {
	var globals starlark.StringDict
	err := e.exec(ctx, filename, func(thread *starlark.Thread) error {
		var err error
		globals, err = starlark.ExecFileOptions(e.opts, thread, filename, src, e.builtins)
		return err
	})
	return globals, err
}

// Chunk reads one REPL unit through readline, either a simple statement line or a
// compound statement ending with a blank line, and runs it in the session globals. When
// the unit is a sole expression its value is returned; otherwise the result is None.
func (e *Evaluator) Chunk(ctx context.Context, readline func() ([]byte, error)) (starlark.Value, error) {
	f, err := e.opts.ParseCompoundStmt(REPLFile, readline)
	if err != nil {
		return nil, &EvalError{File: REPLFile, Message: err.Error()}
	}
	return e.run(ctx, f)
}

// Eval runs src as a REPL chunk.
func (e *Evaluator) Eval(ctx context.Context, src string) (starlark.Value, error) {
	f, err := e.opts.Parse(REPLFile, src, 0)
	if err != nil {
		return nil, &EvalError{File: REPLFile, Message: err.Error()}
	}
	return e.run(ctx, f)
}

func (e *Evaluator) run(ctx context.Context, f *syntax.File) (starlark.Value, error) {
	e.foldNames(f)
	result := starlark.Value(starlark.None)
	if len(f.Stmts) == 1 {
		if stmt, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			err := e.exec(ctx, REPLFile, func(thread *starlark.Thread) error {
				var err error
				result, err = starlark.EvalExprOptions(e.opts, thread, stmt.X, e.session)
				return err
			})
			return result, err
		}
	}

	before := make(starlark.StringDict, len(e.session))
	for name, v := range e.session {
		before[name] = v
	}
	err := e.exec(ctx, REPLFile, func(thread *starlark.Thread) error {
		return starlark.ExecREPLChunk(f, thread, e.session)
	})
	if serr := e.sync(before); serr != nil && err == nil {
		err = serr
	}
	return result, err
}

// sync mirrors changed session globals into the variable table. Assignments that the
// table refuses are rolled back.
func (e *Evaluator) sync(before starlark.StringDict) error {
	var errs []error
	for _, name := range e.session.Keys() {
		v := e.session[name]
		if old, ok := before[name]; ok && unchanged(old, v) {
			continue
		}
		if b, ok := e.builtins[name]; ok {
			e.session[name] = b
			errs = append(errs, &symbols.ShadowError{Name: name})
			continue
		}
		ref := value.Ref{Name: name}
		bv, err := ToValue(v)
		if err != nil {
			e.vars.Remove(name)
			continue
		}
		if err := e.vars.Set(ref, bv); err != nil {
			if old, ok := before[name]; ok {
				e.session[name] = old
			} else {
				delete(e.session, name)
			}
			errs = append(errs, err)
			continue
		}
		stored, _ := e.vars.Get(ref)
		e.session[name] = FromValue(stored)
	}
	return errors.Join(errs...)
}

func unchanged(a, b starlark.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	eq, err := starlark.Equal(a, b)
	return err == nil && eq
}

func (e *Evaluator) exec(ctx context.Context, filename string, fn func(*starlark.Thread) error) error {
	thread := &starlark.Thread{Name: filename, Print: e.print}
	thread.SetLocal(contextKey, ctx)

	e.mu.Lock()
	e.thread = thread
	e.interrupted = false
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.thread = nil
		e.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() { thread.Cancel(context.Cause(ctx).Error()) })
	defer stop()

	err := fn(thread)
	if err == nil {
		return nil
	}
	return e.wrap(ctx, filename, err)
}

func (e *Evaluator) wrap(ctx context.Context, filename string, err error) error {
	var cerr *callable.Error
	if errors.As(err, &cerr) {
		e.logger.Debug("script stopped by built-in", "file", filename, "kind", cerr.Kind.String(), "error", cerr)
		msg := cerr.Error()
		if pos, ok := scriptPosition(err); ok {
			msg = pos.String() + ": " + msg
		}
		return &EvalError{File: filename, Message: msg, Err: cerr}
	}

	e.mu.Lock()
	interrupted := e.interrupted
	e.mu.Unlock()
	switch {
	case interrupted:
		return &EvalError{File: filename, Message: "interrupted", Err: callable.NewCancelledError("", errInterrupted)}
	case ctx.Err() != nil:
		return &EvalError{File: filename, Message: ctx.Err().Error(), Err: callable.NewCancelledError("", ctx.Err())}
	}
	return &EvalError{File: filename, Message: errorMessage(err)}
}

// scriptPosition finds the innermost script frame of a Starlark error.
func scriptPosition(err error) (syntax.Position, bool) {
	var ee *starlark.EvalError
	if !errors.As(err, &ee) {
		return syntax.Position{}, false
	}
	for i := len(ee.CallStack) - 1; i >= 0; i-- {
		if pos := ee.CallStack[i].Pos; pos.Filename() != "<builtin>" {
			return pos, true
		}
	}
	return syntax.Position{}, false
}

func errorMessage(err error) string {
	var ee *starlark.EvalError
	if errors.As(err, &ee) {
		return ee.Backtrace()
	}
	return err.Error()
}

// Interrupt stops the running script: a built-in that is suspended unwinds with
// Cancelled and pure Starlark code stops at its next step.
func (e *Evaluator) Interrupt() {
	e.mu.Lock()
	if e.thread != nil {
		e.interrupted = true
		e.thread.Cancel(errInterrupted.Error())
	}
	e.mu.Unlock()
	e.m.Interrupt()
}

func (e *Evaluator) print(_ *starlark.Thread, msg string) {
	con := e.m.Capabilities().Console
	if con == nil {
		e.logger.Debug("dropping script output without a console", "text", msg)
		return
	}
	if err := con.Print(msg); err != nil {
		e.logger.Warn("failed to print script output", "error", err)
	}
}
