package terminal

import (
	"unicode/utf8"

	"github.com/leapstack-labs/leapbasic/pkg/capability"
)

// escapes maps the CSI and SS3 sequences sent by common terminals to keys.
var escapes = map[string]capability.KeyCode{
	"[A":  capability.KeyArrowUp,
	"[B":  capability.KeyArrowDown,
	"[C":  capability.KeyArrowRight,
	"[D":  capability.KeyArrowLeft,
	"[H":  capability.KeyHome,
	"[F":  capability.KeyEnd,
	"[1~": capability.KeyHome,
	"[4~": capability.KeyEnd,
	"[5~": capability.KeyPageUp,
	"[6~": capability.KeyPageDown,
	"OA":  capability.KeyArrowUp,
	"OB":  capability.KeyArrowDown,
	"OC":  capability.KeyArrowRight,
	"OD":  capability.KeyArrowLeft,
	"OH":  capability.KeyHome,
	"OF":  capability.KeyEnd,
}

// decodeKeys splits the bytes of one read from a raw terminal into key presses. An
// escape byte not followed by a known sequence is reported as Escape on its own.
func decodeKeys(buf []byte) []capability.Key {
	var keys []capability.Key
	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == 0x1b:
			code, n := decodeEscape(buf[1:])
			keys = append(keys, capability.Key{Code: code})
			buf = buf[1+n:]
			continue
		case b == 0x03:
			keys = append(keys, capability.Key{Code: capability.KeyInterrupt})
		case b == 0x04:
			keys = append(keys, capability.Key{Code: capability.KeyEOF})
		case b == '\r' || b == '\n':
			keys = append(keys, capability.Key{Code: capability.KeyNewLine})
			if b == '\r' && len(buf) > 1 && buf[1] == '\n' {
				buf = buf[1:]
			}
		case b == 0x7f || b == 0x08:
			keys = append(keys, capability.Key{Code: capability.KeyBackspace})
		case b == '\t':
			keys = append(keys, capability.Key{Code: capability.KeyTab})
		case b < 0x20:
			keys = append(keys, capability.Key{Code: capability.KeyUnknown})
		default:
			r, size := utf8.DecodeRune(buf)
			if r == utf8.RuneError && size <= 1 {
				keys = append(keys, capability.Key{Code: capability.KeyUnknown})
				buf = buf[1:]
				continue
			}
			keys = append(keys, capability.CharKey(r))
			buf = buf[size:]
			continue
		}
		buf = buf[1:]
	}
	return keys
}

// decodeEscape matches the bytes after an escape against the known sequences and returns
// the key and the number of bytes consumed.
func decodeEscape(rest []byte) (capability.KeyCode, int) {
	for n := 1; n <= 3 && n <= len(rest); n++ {
		if code, ok := escapes[string(rest[:n])]; ok {
			return code, n
		}
	}
	return capability.KeyEscape, 0
}
