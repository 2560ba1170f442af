package arrays_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/capability/capabilitytest"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/arrays"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBounds(t *testing.T) {
	one, err := value.NewArray(value.Integer, 5)
	require.NoError(t, err)
	two, err := value.NewArray(value.Text, 3, 7)
	require.NoError(t, err)

	tests := []struct {
		name string
		args []value.Value
		want string
		pos  int
	}{
		{name: "LBOUND", args: []value.Value{value.FromArray(one)}, want: "0"},
		{name: "UBOUND", args: []value.Value{value.FromArray(one)}, want: "4"},
		{name: "UBOUND", args: []value.Value{value.FromArray(two), value.Int(2)}, want: "6"},
		{name: "LBOUND", args: []value.Value{value.FromArray(two), value.Int(1)}, want: "0"},
		{name: "UBOUND", args: []value.Value{value.FromArray(two)}, pos: 1},
		{name: "UBOUND", args: []value.Value{value.FromArray(two), value.Int(3)}, pos: 2},
		{name: "LBOUND", args: []value.Value{value.FromArray(one), value.Int(0)}, pos: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := capabilitytest.New(1)
			v, err := caps.Run(context.Background(), capabilitytest.Find(arrays.Descriptors(), tt.name), tt.args...)
			if tt.pos > 0 {
				var cerr *callable.Error
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.pos, cerr.Pos)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestBoundsRejectScalars(t *testing.T) {
	caps := capabilitytest.New(1)
	_, err := caps.Run(context.Background(), capabilitytest.Find(arrays.Descriptors(), "UBOUND"), value.Int(3))
	assert.ErrorIs(t, err, &callable.Error{Kind: callable.ArgumentError, Reason: callable.ReasonType})
}
