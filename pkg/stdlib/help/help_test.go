package help_test

import (
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability/capabilitytest"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/help"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*registry.Registry, *callable.Descriptor) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, stdlib.Register(reg))
	d, ok := reg.Lookup("HELP")
	require.True(t, ok)
	return reg, d
}

func TestHelp_Summary(t *testing.T) {
	reg, d := setup(t)
	caps := capabilitytest.New(1)

	_, err := caps.Run(context.Background(), d)
	require.NoError(t, err)
	out := strings.Join(caps.FakeConsole.Prints(), "\n")
	for _, cat := range reg.Categories() {
		assert.Contains(t, out, ">> "+cat)
	}
}

func TestHelp_Topics(t *testing.T) {
	reg, _ := setup(t)

	lines, err := help.Topic(reg, "left$")
	require.NoError(t, err)
	assert.Equal(t, "    LEFT$(expr$, n%)", lines[1])
	assert.Equal(t, "    Returns the first n% characters of expr$.", lines[3])

	lines, err = help.Topic(reg, "console")
	require.NoError(t, err)
	assert.Equal(t, "    Console", lines[1])
	assert.Contains(t, lines, "    >> PRINT        Prints its arguments separated by a space and ends the line.")
	assert.Contains(t, lines, "    >> INKEY$       Returns the next key press without waiting, or an empty string.")

	lines, err = help.Topic(reg, "num")
	require.NoError(t, err)
	assert.Equal(t, "    Numerical functions", lines[1])

	_, err = help.Topic(reg, "st")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = help.Topic(reg, "graphics")
	assert.ErrorContains(t, err, "unknown help topic")

	_, err = help.Topic(reg, "left%")
	assert.ErrorContains(t, err, "unknown help topic")
}

func TestHelp_Command(t *testing.T) {
	_, d := setup(t)
	caps := capabilitytest.New(1)

	_, err := caps.Run(context.Background(), d, value.Str("sleep"))
	require.NoError(t, err)
	assert.Contains(t, caps.FakeConsole.Prints(), "    SLEEP seconds#")

	_, err = caps.Run(context.Background(), d, value.Str("nothing here"))
	assert.ErrorIs(t, err, &callable.Error{Kind: callable.ArgumentError, Reason: callable.ReasonValue})
}
