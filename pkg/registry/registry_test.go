package registry

import (
	"testing"

	"github.com/leapstack-labs/leapbasic/internal/testutil"
	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func command(name, category string) *callable.Descriptor {
	return callable.NewCommand(callable.Metadata{Name: name, Category: category},
		callable.CommandFunc(func(*callable.Invocation) error { return nil }))
}

func function(name, category string, returns value.Kind) *callable.Descriptor {
	return callable.NewFunction(callable.Metadata{Name: name, Category: category}, returns,
		callable.FunctionFunc(func(*callable.Invocation) (value.Value, error) { return value.Zero(returns), nil }))
}

func TestRegistry_Register(t *testing.T) {
	r := New(WithLogger(testutil.NewTestLogger(t)))

	printCmd := command("PRINT", "Console")
	lenFn := function("LEN", "Strings", value.Integer)
	require.NoError(t, r.Register(printCmd))
	require.NoError(t, r.Register(lenFn))

	assert.Equal(t, 2, r.Len())

	got, ok := r.Lookup("print")
	require.True(t, ok)
	assert.Same(t, printCmd, got)

	got, ok = r.Lookup("Len")
	require.True(t, ok)
	assert.Same(t, lenFn, got)

	_, ok = r.Lookup("LENX")
	assert.False(t, ok)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(command("PRINT", "Console")))

	err := r.Register(function("print", "Console", value.Text))
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "print", dup.Name)
	assert.Equal(t, "PRINT", dup.Existing)

	d, ok := r.Lookup("PRINT")
	require.True(t, ok)
	assert.Equal(t, callable.KindCommand, d.Kind(), "first registration wins")
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := New()
	err := r.Register(command("BAD$", "Console"))
	assert.ErrorIs(t, err, callable.ErrInternal)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Seal(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(command("CLS", "Console")))
	r.Seal()
	assert.True(t, r.Sealed())

	err := r.Register(command("PRINT", "Console"))
	assert.ErrorIs(t, err, callable.ErrInternal)
	_, ok := r.Lookup("PRINT")
	assert.False(t, ok)
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := New()
	assert.Panics(t, func() {
		r.MustRegister(command("CLS", "Console"), command("cls", "Console"))
	})
}

func TestRegistry_Resolve(t *testing.T) {
	r := New()
	r.MustRegister(
		command("PRINT", "Console"),
		function("LEFT", "Strings", value.Text),
		function("RND", "Numerics", value.Double),
	)

	tests := []struct {
		ref        string
		wantName   string
		wantReason callable.Reason
	}{
		{ref: "LEFT$", wantName: "LEFT"},
		{ref: "left", wantName: "LEFT"},
		{ref: "rnd#", wantName: "RND"},
		{ref: "PRINT", wantName: "PRINT"},
		{ref: "LEFT%", wantReason: callable.ReasonType},
		{ref: "PRINT$", wantReason: callable.ReasonType},
		{ref: "NOPE", wantReason: callable.ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			ref, err := value.ParseRef(tt.ref)
			require.NoError(t, err)

			d, err := r.Resolve(ref)
			if tt.wantReason != callable.ReasonNone {
				var e *callable.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.wantReason, e.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, d.Name())
		})
	}
}

func TestRegistry_PrefixSearch(t *testing.T) {
	r := New()
	r.MustRegister(
		function("LEFT", "Strings", value.Text),
		function("LEN", "Strings", value.Integer),
		command("LOCATE", "Console"),
		command("load", "Stored program"),
		function("LTRIM", "Strings", value.Text),
		command("PRINT", "Console"),
	)

	var names []string
	for name, d := range r.PrefixSearch("Lo") {
		names = append(names, name)
		assert.Equal(t, name, d.Name())
	}
	assert.Equal(t, []string{"load", "LOCATE"}, names)

	var all []string
	for name := range r.PrefixSearch("") {
		all = append(all, name)
	}
	assert.Equal(t, []string{"LEFT", "LEN", "load", "LOCATE", "LTRIM", "PRINT"}, all)
	assert.Equal(t, all, r.Names())

	var first string
	for name := range r.PrefixSearch("l") {
		first = name
		break
	}
	assert.Equal(t, "LEFT", first)
}

func TestRegistry_Categories(t *testing.T) {
	r := New()
	r.MustRegister(
		command("PRINT", "Console"),
		command("CLS", "Console"),
		function("LEN", "Strings", value.Integer),
	)

	assert.Equal(t, []string{"Console", "Strings"}, r.Categories())

	var names []string
	for _, d := range r.ByCategory("console") {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"CLS", "PRINT"}, names)
	assert.Empty(t, r.ByCategory("nothing"))
}
