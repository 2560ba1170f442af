package strs_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability/capabilitytest"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/strs"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorsAreValid(t *testing.T) {
	for _, d := range strs.Descriptors() {
		assert.NoError(t, d.Validate(), d.Name())
	}
}

func TestStringFunctions(t *testing.T) {
	s := value.Str
	i := value.Int

	tests := []struct {
		name string
		args []value.Value
		want string
	}{
		{name: "ASC", args: []value.Value{s("A")}, want: "65"},
		{name: "ASC", args: []value.Value{s("ñ")}, want: "241"},
		{name: "CHR", args: []value.Value{i(97)}, want: "a"},
		{name: "LEFT", args: []value.Value{s("héllo"), i(2)}, want: "hé"},
		{name: "LEFT", args: []value.Value{s("abc"), i(10)}, want: "abc"},
		{name: "LEFT", args: []value.Value{s("abc"), i(0)}, want: ""},
		{name: "RIGHT", args: []value.Value{s("héllo"), i(3)}, want: "llo"},
		{name: "RIGHT", args: []value.Value{s("abc"), i(5)}, want: "abc"},
		{name: "MID", args: []value.Value{s("abcdef"), i(2), i(3)}, want: "bcd"},
		{name: "MID", args: []value.Value{s("abcdef"), i(4)}, want: "def"},
		{name: "MID", args: []value.Value{s("abc"), i(10), i(2)}, want: ""},
		{name: "MID", args: []value.Value{s("abc"), i(2), i(10)}, want: "bc"},
		{name: "LEN", args: []value.Value{s("héllo")}, want: "5"},
		{name: "LEN", args: []value.Value{s("")}, want: "0"},
		{name: "LTRIM", args: []value.Value{s(" \t x ")}, want: "x "},
		{name: "RTRIM", args: []value.Value{s(" x \n")}, want: " x"},
		{name: "UCASE", args: []value.Value{s("straße")}, want: "STRASSE"},
		{name: "LCASE", args: []value.Value{s("MiXeD")}, want: "mixed"},
		{name: "STR", args: []value.Value{i(5)}, want: " 5"},
		{name: "STR", args: []value.Value{i(-5)}, want: "-5"},
		{name: "STR", args: []value.Value{value.Float(1.5)}, want: " 1.5"},
		{name: "STR", args: []value.Value{value.Bool(false)}, want: "FALSE"},
		{name: "STR", args: []value.Value{s("as is")}, want: "as is"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.want, func(t *testing.T) {
			caps := capabilitytest.New(1)
			v, err := caps.Run(context.Background(), capabilitytest.Find(strs.Descriptors(), tt.name), tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestStringFunctionErrors(t *testing.T) {
	tests := []struct {
		name string
		args []value.Value
		pos  int
	}{
		{name: "ASC", args: []value.Value{value.Str("")}, pos: 1},
		{name: "ASC", args: []value.Value{value.Str("ab")}, pos: 1},
		{name: "CHR", args: []value.Value{value.Int(-1)}, pos: 1},
		{name: "CHR", args: []value.Value{value.Int(0xD800)}, pos: 1},
		{name: "LEFT", args: []value.Value{value.Str("a"), value.Int(-1)}, pos: 2},
		{name: "MID", args: []value.Value{value.Str("a"), value.Int(0)}, pos: 2},
		{name: "MID", args: []value.Value{value.Str("a"), value.Int(1), value.Int(-1)}, pos: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := capabilitytest.New(1)
			_, err := caps.Run(context.Background(), capabilitytest.Find(strs.Descriptors(), tt.name), tt.args...)
			var cerr *callable.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, callable.ReasonValue, cerr.Reason)
			assert.Equal(t, tt.pos, cerr.Pos)
		})
	}
}
