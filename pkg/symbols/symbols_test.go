package symbols

import (
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(t *testing.T, s string) value.Ref {
	t.Helper()
	r, err := value.ParseRef(s)
	require.NoError(t, err)
	return r
}

func TestTable_DefineAndGet(t *testing.T) {
	tbl := NewTable(nil)

	require.NoError(t, tbl.Define(ref(t, "count%"), value.Float(2.5)))
	v, err := tbl.Get(ref(t, "COUNT"))
	require.NoError(t, err)
	assert.Equal(t, value.Integer, v.Kind())
	assert.Equal(t, "3", v.String())

	_, err = tbl.Get(ref(t, "Count$"))
	assert.Error(t, err)

	err = tbl.Define(ref(t, "COUNT"), value.Int(1))
	assert.ErrorContains(t, err, "already defined as count")

	_, err = tbl.Get(ref(t, "missing"))
	assert.ErrorIs(t, err, ErrUndefined)

	assert.Error(t, tbl.Define(ref(t, "name$"), value.Int(1)))
	assert.Error(t, tbl.Define(ref(t, "nothing"), value.Value{}))
}

func TestTable_Set(t *testing.T) {
	tbl := NewTable(nil)

	require.NoError(t, tbl.Set(ref(t, "Ratio"), value.Float(0.5)))
	require.NoError(t, tbl.Set(ref(t, "RATIO#"), value.Int(2)))
	v, err := tbl.Get(ref(t, "ratio"))
	require.NoError(t, err)
	assert.Equal(t, value.Double, v.Kind())
	assert.Equal(t, []string{"Ratio"}, tbl.Names())

	err = tbl.Set(ref(t, "ratio"), value.Str("x"))
	assert.Error(t, err)
	v, _ = tbl.Get(ref(t, "ratio"))
	assert.Equal(t, "2.0", v.String())

	assert.Error(t, tbl.Set(ref(t, "ratio%"), value.Int(1)))
}

func TestTable_RefusesBuiltinNames(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(callable.NewFunction(callable.Metadata{Name: "LEN", Category: "Test"},
		value.Integer, callable.FunctionFunc(func(*callable.Invocation) (value.Value, error) {
			return value.Int(0), nil
		}))))
	tbl := NewTable(reg)

	err := tbl.Define(ref(t, "len%"), value.Int(1))
	var shadow *ShadowError
	require.ErrorAs(t, err, &shadow)
	assert.Equal(t, "len", shadow.Name)
	assert.Error(t, tbl.Set(ref(t, "Len"), value.Int(1)))
	assert.NoError(t, tbl.Set(ref(t, "length"), value.Int(1)))
}

func TestTable_PrefixAndClear(t *testing.T) {
	tbl := NewTable(nil)
	for _, name := range []string{"total", "Temp", "x", "TIME_LEFT"} {
		require.NoError(t, tbl.Define(ref(t, name), value.Int(1)))
	}

	var got []string
	for name := range tbl.Prefix("T") {
		got = append(got, name)
	}
	assert.Equal(t, []string{"Temp", "TIME_LEFT", "total"}, got)

	assert.True(t, tbl.Remove("TEMP"))
	assert.False(t, tbl.Remove("temp"))
	assert.Equal(t, 3, tbl.Len())

	tbl.Clear()
	assert.Zero(t, tbl.Len())
}
