package callable

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// ErrorKind classifies failures raised by built-ins.
type ErrorKind int

// Error kinds. The evaluator treats ArgumentError as a language-level fault, IoError and
// Cancelled as conditions the user sees and can recover from, and InternalError as a bug.
const (
	ArgumentError ErrorKind = iota + 1
	IoError
	Cancelled
	InternalError
)

func (k ErrorKind) String() string {
	switch k {
	case ArgumentError:
		return "argument error"
	case IoError:
		return "I/O error"
	case Cancelled:
		return "cancelled"
	case InternalError:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Reason refines an ArgumentError.
type Reason int

// Argument error reasons.
const (
	ReasonNone Reason = iota
	ReasonArity
	ReasonType
	ReasonValue
	ReasonUnknown
)

// Error is the error type produced by built-ins and by the machinery that calls them.
type Error struct {
	Kind     ErrorKind
	Reason   Reason
	Callable string // Name of the built-in, if known
	Pos      int    // 1-based argument position, or 0 when not tied to an argument
	Msg      string
	Err      error // Underlying cause, if any
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrArgument  = &Error{Kind: ArgumentError}
	ErrIO        = &Error{Kind: IoError}
	ErrCancelled = &Error{Kind: Cancelled}
	ErrInternal  = &Error{Kind: InternalError}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	switch {
	case e.Callable != "" && e.Pos > 0:
		return fmt.Sprintf("%s: argument %d: %s", e.Callable, e.Pos, msg)
	case e.Callable != "":
		return fmt.Sprintf("%s: %s", e.Callable, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind, and by reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// KindOf returns the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// NewArityError reports a call with the wrong number of arguments.
func NewArityError(name string, minArgs, maxArgs, got int) *Error {
	var want string
	switch {
	case maxArgs == minArgs:
		want = fmt.Sprintf("%d", minArgs)
	case maxArgs < 0:
		want = fmt.Sprintf("at least %d", minArgs)
	default:
		want = fmt.Sprintf("%d to %d", minArgs, maxArgs)
	}
	return &Error{
		Kind:     ArgumentError,
		Reason:   ReasonArity,
		Callable: name,
		Msg:      fmt.Sprintf("expected %s argument(s) but got %d", want, got),
	}
}

// NewTypeError reports an argument of the wrong kind at 1-based position pos.
func NewTypeError(name string, pos int, want, got value.Kind) *Error {
	wantText := want.String()
	if want == value.Void {
		wantText = "a value"
	}
	return &Error{
		Kind:     ArgumentError,
		Reason:   ReasonType,
		Callable: name,
		Pos:      pos,
		Msg:      fmt.Sprintf("expected %s but found %s", wantText, got),
	}
}

// NewValueError reports an argument whose kind is right but whose value is not.
func NewValueError(name string, pos int, format string, args ...any) *Error {
	return &Error{
		Kind:     ArgumentError,
		Reason:   ReasonValue,
		Callable: name,
		Pos:      pos,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// NewUnknownError reports a name that does not resolve to any built-in.
func NewUnknownError(name string) *Error {
	return &Error{
		Kind:     ArgumentError,
		Reason:   ReasonUnknown,
		Callable: name,
		Msg:      "unknown command or function",
	}
}

// NewIOError wraps a failure of an external resource. Existing *Error values are returned
// unchanged. A context error is an IoError too: only the suspender, which knows whether
// the call itself was cancelled, reports Cancelled.
func NewIOError(name string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: IoError, Callable: name, Err: err}
}

// NewCancelledError reports that a call was interrupted.
func NewCancelledError(name string, cause error) *Error {
	return &Error{Kind: Cancelled, Callable: name, Msg: "interrupted", Err: cause}
}

// NewInternalError reports a broken invariant inside a built-in or its machinery.
func NewInternalError(name string, format string, args ...any) *Error {
	return &Error{Kind: InternalError, Callable: name, Msg: fmt.Sprintf(format, args...)}
}
