package terminal

import (
	"testing"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
	"github.com/stretchr/testify/assert"
)

func TestDecodeKeys(t *testing.T) {
	up := capability.Key{Code: capability.KeyArrowUp}
	tests := []struct {
		name string
		in   string
		want []capability.Key
	}{
		{name: "plain text", in: "aé", want: []capability.Key{capability.CharKey('a'), capability.CharKey('é')}},
		{name: "arrows", in: "\x1b[A\x1bOD", want: []capability.Key{up, {Code: capability.KeyArrowLeft}}},
		{name: "page keys", in: "\x1b[5~\x1b[6~", want: []capability.Key{{Code: capability.KeyPageUp}, {Code: capability.KeyPageDown}}},
		{name: "lone escape", in: "\x1b", want: []capability.Key{{Code: capability.KeyEscape}}},
		{name: "escape then char", in: "\x1bx", want: []capability.Key{{Code: capability.KeyEscape}, capability.CharKey('x')}},
		{name: "control keys", in: "\x03\x04\t\x7f", want: []capability.Key{
			{Code: capability.KeyInterrupt}, {Code: capability.KeyEOF}, {Code: capability.KeyTab}, {Code: capability.KeyBackspace},
		}},
		{name: "crlf is one newline", in: "a\r\nb\n", want: []capability.Key{
			capability.CharKey('a'), {Code: capability.KeyNewLine}, capability.CharKey('b'), {Code: capability.KeyNewLine},
		}},
		{name: "invalid utf8", in: "\xff", want: []capability.Key{{Code: capability.KeyUnknown}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeKeys([]byte(tt.in)))
		})
	}
}
