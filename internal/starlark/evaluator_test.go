package starlark

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/leapstack-labs/leapbasic/internal/testutil"
	"github.com/leapstack-labs/leapbasic/pkg/bridge"
	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability/capabilitytest"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
	"github.com/leapstack-labs/leapbasic/pkg/symbols"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func newEvaluator(t *testing.T, caps *capabilitytest.Capabilities) *Evaluator {
	t.Helper()
	reg := registry.New()
	require.NoError(t, stdlib.Register(reg))
	logger := testutil.NewTestLogger(t)
	m := bridge.New(reg, caps.Capabilities, bridge.WithLogger(logger))
	return New(m, WithLogger(logger))
}

func TestExecFile_CallsBuiltins(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	src := `
x = LEFT("hello", 2)
PRINT(x, 42)
print("from starlark")
for i in range(2):
    PRINT(i)
n = LEN(x)
`
	globals, err := ev.ExecFile(context.Background(), "script.star", src)
	require.NoError(t, err)

	assert.Equal(t, []string{"he 42", "from starlark", "0", "1"}, caps.FakeConsole.Prints())
	assert.Equal(t, "2", globals["n"].String())
	assert.NotContains(t, globals, "PRINT")
}

func TestExecFile_BuiltinErrorKeepsKind(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	_, err := ev.ExecFile(context.Background(), "script.star", "PRINT(\"a\")\nLEFT(\"abc\")\n")
	require.Error(t, err)

	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, callable.ArgumentError, callable.KindOf(err))
	assert.Contains(t, err.Error(), "script.star:2:")
	assert.Contains(t, err.Error(), "LEFT")
	assert.Equal(t, []string{"a"}, caps.FakeConsole.Prints())
}

func TestExecFile_UnconvertibleArgument(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	_, err := ev.ExecFile(context.Background(), "script.star", "PRINT(1, None)\n")
	require.Error(t, err)

	var cerr *callable.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, callable.ReasonType, cerr.Reason)
	assert.Equal(t, 2, cerr.Pos)
	assert.Zero(t, caps.FakeConsole.Calls())
}

func TestExecFile_SyntaxError(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))

	_, err := ev.ExecFile(context.Background(), "bad.star", "PRINT(\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.star")
	assert.Zero(t, callable.KindOf(err))
}

func TestCall_TypedReference(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	globals, err := ev.ExecFile(context.Background(), "call.star", `s = CALL("LEFT$", "abc", 1)`)
	require.NoError(t, err)
	assert.Equal(t, starlark.String("a"), globals["s"])

	_, err = ev.ExecFile(context.Background(), "call.star", `CALL("LEFT%", "abc", 1)`)
	assert.ErrorIs(t, err, &callable.Error{Kind: callable.ArgumentError, Reason: callable.ReasonType})

	_, err = ev.ExecFile(context.Background(), "call.star", `CALL("NOPE")`)
	assert.ErrorIs(t, err, &callable.Error{Kind: callable.ArgumentError, Reason: callable.ReasonUnknown})
}

func TestExecFile_KeywordArgumentsRejected(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))

	_, err := ev.ExecFile(context.Background(), "kw.star", `LEFT(s="abc", n=1)`)
	assert.ErrorIs(t, err, &callable.Error{Kind: callable.ArgumentError, Reason: callable.ReasonArity})
}

func TestInterrupt_WhileBuiltinSuspended(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	done := make(chan error, 1)
	go func() {
		_, err := ev.ExecFile(context.Background(), "input.star", "name = INPUT(\"name? \")\nPRINT(name)\n")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(caps.FakeConsole.Prompts()) == 1
	}, 2*time.Second, time.Millisecond)
	ev.Interrupt()

	select {
	case err := <-done:
		assert.True(t, callable.IsCancelled(err), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("script did not stop")
	}
	assert.Empty(t, caps.FakeConsole.Prints())
}

func TestInterrupt_PureStarlarkLoop(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))

	done := make(chan error, 1)
	go func() {
		_, err := ev.ExecFile(context.Background(), "loop.star", "while True:\n    pass\n")
		done <- err
	}()

	var err error
	require.Eventually(t, func() bool {
		ev.Interrupt()
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, callable.IsCancelled(err), "got %v", err)
}

func TestExecFile_ContextCancellation(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ev.ExecFile(ctx, "loop.star", "while True:\n    pass\n")
	require.Error(t, err)
	assert.True(t, callable.IsCancelled(err), "got %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEval_Session(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))
	ctx := context.Background()

	v, err := ev.Eval(ctx, "x = 1")
	require.NoError(t, err)
	assert.Equal(t, starlark.None, v)

	v, err = ev.Eval(ctx, "x + 1")
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())

	got, err := ev.Variables().Get(value.Ref{Name: "X"})
	require.NoError(t, err)
	assert.True(t, value.Int(1).Equal(got))

	t.Run("assignment keeps the variable kind", func(t *testing.T) {
		_, err := ev.Eval(ctx, "x = 2.6")
		require.NoError(t, err)
		v, err := ev.Eval(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "3", v.String())
	})

	t.Run("incompatible assignment is rolled back", func(t *testing.T) {
		_, err := ev.Eval(ctx, `x = "text"`)
		assert.ErrorContains(t, err, "cannot assign")
		v, err := ev.Eval(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "3", v.String())
	})

	t.Run("names ignore case", func(t *testing.T) {
		_, err := ev.Eval(ctx, "X = 5")
		require.NoError(t, err)
		v, err := ev.Eval(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "5", v.String())
		got, err := ev.Variables().Get(value.Ref{Name: "x"})
		require.NoError(t, err)
		assert.True(t, value.Int(5).Equal(got))
		assert.Equal(t, []string{"x"}, ev.Variables().Names())

		_, err = ev.Eval(ctx, "total = 1\nTOTAL = Total + x")
		require.NoError(t, err)
		v, err = ev.Eval(ctx, "total")
		require.NoError(t, err)
		assert.Equal(t, "6", v.String())
	})

	t.Run("attribute, keyword and local names keep their case", func(t *testing.T) {
		_, err := ev.Eval(ctx, "upper = 1\nstep = 2")
		require.NoError(t, err)
		v, err := ev.Eval(ctx, `"a b".upper()`)
		require.NoError(t, err)
		assert.Equal(t, `"A B"`, v.String())

		_, err = ev.Eval(ctx, "def scale(n, STEP=10):\n    return n * STEP\n")
		require.NoError(t, err)
		v, err = ev.Eval(ctx, "scale(3, STEP=STEP)")
		require.NoError(t, err)
		assert.Equal(t, "6", v.String())

		v, err = ev.Eval(ctx, "UPPER + Step")
		require.NoError(t, err)
		assert.Equal(t, "3", v.String())
	})

	t.Run("non BASIC values stay in the session only", func(t *testing.T) {
		_, err := ev.Eval(ctx, "d = {}")
		require.NoError(t, err)
		_, err = ev.Variables().Get(value.Ref{Name: "d"})
		assert.ErrorIs(t, err, symbols.ErrUndefined)
		v, err := ev.Eval(ctx, "len(d)")
		require.NoError(t, err)
		assert.Equal(t, "0", v.String())
	})

	t.Run("reset", func(t *testing.T) {
		ev.Reset()
		assert.Zero(t, ev.Variables().Len())
		_, err := ev.Eval(ctx, "x")
		assert.Error(t, err)
	})
}

func TestEval_BuiltinsCannotBeShadowed(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)
	ctx := context.Background()

	_, err := ev.Eval(ctx, "PRINT = 1")
	var shadow *symbols.ShadowError
	require.ErrorAs(t, err, &shadow)
	assert.Equal(t, "PRINT", shadow.Name)

	_, err = ev.Eval(ctx, `PRINT("still here")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"still here"}, caps.FakeConsole.Prints())
}

func TestChunk_CompoundStatement(t *testing.T) {
	caps := capabilitytest.New(1)
	ev := newEvaluator(t, caps)

	in := bytes.NewBufferString("for i in range(3):\n    PRINT(i * 2)\n\n")
	readline := func() ([]byte, error) {
		line, err := in.ReadBytes('\n')
		if err != nil && len(line) == 0 {
			return nil, io.EOF
		}
		return line, nil
	}

	v, err := ev.Chunk(context.Background(), readline)
	require.NoError(t, err)
	assert.Equal(t, starlark.None, v)
	assert.Equal(t, []string{"0", "2", "4"}, caps.FakeConsole.Prints())
}

func TestBuiltins_CoverRegistry(t *testing.T) {
	ev := newEvaluator(t, capabilitytest.New(1))
	reg := ev.m.Registry()

	assert.Len(t, ev.Builtins(), reg.Len()+1)
	for _, name := range reg.Names() {
		assert.Contains(t, ev.Builtins(), name)
	}
	assert.Contains(t, ev.Builtins(), "CALL")
}

func TestEvalError_Message(t *testing.T) {
	err := &EvalError{File: "a.star", Message: "a.star:1:2: boom"}
	assert.Equal(t, "a.star:1:2: boom", err.Error())

	err = &EvalError{File: "a.star", Message: "boom", Err: errors.New("cause")}
	assert.Equal(t, "a.star: boom", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "cause")
}
