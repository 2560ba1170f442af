package starlark

import (
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestToValue(t *testing.T) {
	tests := []struct {
		name  string
		input starlark.Value
		want  value.Value
	}{
		{name: "bool", input: starlark.True, want: value.Bool(true)},
		{name: "int", input: starlark.MakeInt(42), want: value.Int(42)},
		{name: "negative int", input: starlark.MakeInt(-7), want: value.Int(-7)},
		{name: "float", input: starlark.Float(2.5), want: value.Float(2.5)},
		{name: "string", input: starlark.String("hi"), want: value.Str("hi")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToValue(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestToValue_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   starlark.Value
		wantErr string
	}{
		{name: "none", input: starlark.None, wantErr: "None"},
		{name: "int overflow", input: starlark.MakeInt64(1 << 40), wantErr: "does not fit"},
		{name: "dict", input: starlark.NewDict(0), wantErr: "cannot convert dict"},
		{name: "empty list", input: starlark.NewList(nil), wantErr: "empty dimension"},
		{
			name: "ragged",
			input: starlark.NewList([]starlark.Value{
				starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.MakeInt(2)}),
				starlark.NewList([]starlark.Value{starlark.MakeInt(3)}),
			}),
			wantErr: "not rectangular",
		},
		{
			name:    "mixed depth",
			input:   starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.NewList([]starlark.Value{starlark.MakeInt(2)})}),
			wantErr: "not rectangular",
		},
		{
			name:    "mixed kinds",
			input:   starlark.Tuple{starlark.MakeInt(1), starlark.String("a")},
			wantErr: "mixes INTEGER and STRING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToValue(tt.input)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestToValue_Arrays(t *testing.T) {
	t.Run("numbers widen to double", func(t *testing.T) {
		v, err := ToValue(starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.Float(1.5)}))
		require.NoError(t, err)
		arr, ok := v.AsArray()
		require.True(t, ok)
		assert.Equal(t, value.Double, arr.Elem())
		first, err := arr.Index(0)
		require.NoError(t, err)
		assert.True(t, value.Float(1).Equal(first))
	})

	t.Run("nested lists are row major", func(t *testing.T) {
		grid := starlark.NewList([]starlark.Value{
			starlark.Tuple{starlark.String("a"), starlark.String("b"), starlark.String("c")},
			starlark.Tuple{starlark.String("d"), starlark.String("e"), starlark.String("f")},
		})
		v, err := ToValue(grid)
		require.NoError(t, err)
		arr, _ := v.AsArray()
		assert.Equal(t, []int{2, 3}, arr.Dims())
		e, err := arr.Index(1, 1)
		require.NoError(t, err)
		assert.Equal(t, "e", e.String())

		back := FromValue(v)
		assert.Equal(t, `[["a", "b", "c"], ["d", "e", "f"]]`, back.String())
	})
}

func TestFromValue(t *testing.T) {
	assert.Equal(t, starlark.None, FromValue(value.Value{}))
	assert.Equal(t, starlark.True, FromValue(value.Bool(true)))
	assert.Equal(t, starlark.Float(0.5), FromValue(value.Float(0.5)))
	assert.Equal(t, starlark.String("x"), FromValue(value.Str("x")))
	assert.Equal(t, "12", FromValue(value.Int(12)).String())
}
