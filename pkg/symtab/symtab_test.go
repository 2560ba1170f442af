package symtab

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](x *Index[T], prefix string) []string {
	var names []string
	for name := range x.Prefix(prefix) {
		names = append(names, name)
	}
	return names
}

func TestIndex_InsertAndGet(t *testing.T) {
	x := New[int]()

	require.NoError(t, x.Insert("Print", 1))
	require.NoError(t, x.Insert("LEFT", 2))

	v, ok := x.Get("PRINT")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = x.Get("left")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = x.Get("missing")
	assert.False(t, ok)

	spelling, ok := x.Spelling("print")
	assert.True(t, ok)
	assert.Equal(t, "Print", spelling)
	assert.Equal(t, 2, x.Len())
}

func TestIndex_InsertDuplicate(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{name: "same spelling", first: "PRINT", second: "PRINT"},
		{name: "differs only by case", first: "PRINT", second: "print"},
		{name: "mixed case", first: "Rnd", second: "rND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := New[string]()
			require.NoError(t, x.Insert(tt.first, "first"))

			err := x.Insert(tt.second, "second")
			var dup *DuplicateError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.second, dup.Name)
			assert.Equal(t, tt.first, dup.Existing)

			v, _ := x.Get(tt.first)
			assert.Equal(t, "first", v, "existing entry must be preserved")
			assert.Equal(t, 1, x.Len())
		})
	}
}

func TestIndex_InsertEmptyName(t *testing.T) {
	x := New[int]()
	assert.Error(t, x.Insert("", 1))
	assert.Equal(t, 0, x.Len())
}

func TestIndex_Prefix(t *testing.T) {
	x := New[int]()
	for i, name := range []string{"LTRIM", "LEFT", "LEN", "LOAD", "LOCATE", "MID", "lbound", "CLS"} {
		require.NoError(t, x.Insert(name, i))
	}

	tests := []struct {
		prefix string
		want   []string
	}{
		{prefix: "le", want: []string{"LEFT", "LEN"}},
		{prefix: "LO", want: []string{"LOAD", "LOCATE"}},
		{prefix: "l", want: []string{"lbound", "LEFT", "LEN", "LOAD", "LOCATE", "LTRIM"}},
		{prefix: "mid", want: []string{"MID"}},
		{prefix: "midx", want: nil},
		{prefix: "z", want: nil},
		{prefix: "", want: []string{"CLS", "lbound", "LEFT", "LEN", "LOAD", "LOCATE", "LTRIM", "MID"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("prefix %q", tt.prefix), func(t *testing.T) {
			assert.Equal(t, tt.want, collect(x, tt.prefix))
		})
	}
}

func TestIndex_PrefixStopsEarly(t *testing.T) {
	x := New[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, x.Insert(fmt.Sprintf("NAME%03d", i), i))
	}

	var seen []int
	for _, v := range x.Prefix("name") {
		seen = append(seen, v)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestIndex_AllEnumeratesOnceInOrder(t *testing.T) {
	x := New[int]()
	names := []string{"zeta", "Alpha", "mu", "BETA", "omega", "Gamma", "delta", "Eta", "iota", "kappa"}
	for i, name := range names {
		require.NoError(t, x.Insert(name, i))
	}

	got := x.Names()
	require.Len(t, got, len(names))

	folded := make([]string, len(got))
	seen := make(map[string]int)
	for i, name := range got {
		folded[i] = Fold(name)
		seen[name]++
	}
	assert.True(t, sort.StringsAreSorted(folded), "names must be in ascending order: %v", got)
	for _, name := range names {
		assert.Equal(t, 1, seen[name], "name %q must appear exactly once", name)
	}
}

func TestIndex_RemoveAndReplace(t *testing.T) {
	x := New[int]()
	require.NoError(t, x.Insert("A", 1))

	x.Replace("a", 2)
	v, ok := x.Get("A")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, x.Len())

	assert.True(t, x.Remove("A"))
	assert.False(t, x.Remove("A"))
	assert.Equal(t, 0, x.Len())

	require.NoError(t, x.Insert("b", 3))
	x.Clear()
	assert.Equal(t, 0, x.Len())
	assert.Empty(t, collect(x, ""))
}
