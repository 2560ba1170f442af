// Package value defines the runtime values exchanged between the evaluator and built-ins.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type of a Value.
type Kind int

// Value kinds. Void is the zero Kind and is used both for "no value" results and, in
// parameter declarations, for "any type".
const (
	Void Kind = iota
	Boolean
	Double
	Integer
	Text
	Array
)

// String returns the BASIC type name of the kind.
func (k Kind) String() string {
	switch k {
	case Void:
		return "VOID"
	case Boolean:
		return "BOOLEAN"
	case Double:
		return "DOUBLE"
	case Integer:
		return "INTEGER"
	case Text:
		return "STRING"
	case Array:
		return "ARRAY"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Suffix returns the type annotation character for scalar kinds, or "" otherwise.
func (k Kind) Suffix() string {
	switch k {
	case Boolean:
		return "?"
	case Double:
		return "#"
	case Integer:
		return "%"
	case Text:
		return "$"
	default:
		return ""
	}
}

// KindForSuffix maps a type annotation character back to its kind.
func KindForSuffix(r rune) (Kind, bool) {
	switch r {
	case '?':
		return Boolean, true
	case '#':
		return Double, true
	case '%':
		return Integer, true
	case '$':
		return Text, true
	default:
		return Void, false
	}
}

// Value is an immutable tagged value. The zero Value is Void.
type Value struct {
	kind Kind
	b    bool
	d    float64
	i    int32
	s    string
	arr  *ArrayData
}

// Bool returns a BOOLEAN value.
func Bool(b bool) Value { return Value{kind: Boolean, b: b} }

// Float returns a DOUBLE value.
func Float(d float64) Value { return Value{kind: Double, d: d} }

// Int returns an INTEGER value.
func Int(i int32) Value { return Value{kind: Integer, i: i} }

// Str returns a STRING value.
func Str(s string) Value { return Value{kind: Text, s: s} }

// FromArray wraps array data in a Value.
func FromArray(a *ArrayData) Value { return Value{kind: Array, arr: a} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsVoid reports whether v carries no value.
func (v Value) IsVoid() bool { return v.kind == Void }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Boolean }

// AsText returns the text payload.
func (v Value) AsText() (string, bool) { return v.s, v.kind == Text }

// AsArray returns the array payload.
func (v Value) AsArray() (*ArrayData, bool) { return v.arr, v.kind == Array }

// AsInt returns the integer payload. Doubles are not converted; use ToInt for that.
func (v Value) AsInt() (int32, bool) { return v.i, v.kind == Integer }

// AsFloat returns the numeric payload as a float64, widening integers.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case Double:
		return v.d, true
	case Integer:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// ToInt converts a numeric value to an integer, rounding doubles half away from zero as
// BASIC does on assignment. It fails if the value is not numeric or does not fit.
func (v Value) ToInt() (int32, error) {
	switch v.kind {
	case Integer:
		return v.i, nil
	case Double:
		r := math.Round(v.d)
		if math.IsNaN(r) || r < math.MinInt32 || r > math.MaxInt32 {
			return 0, fmt.Errorf("cannot cast %v to integer due to overflow", v.d)
		}
		return int32(r), nil
	default:
		return 0, fmt.Errorf("%s is not a number", v.kind)
	}
}

// String renders v the way PRINT would.
func (v Value) String() string {
	switch v.kind {
	case Void:
		return ""
	case Boolean:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case Double:
		return FormatDouble(v.d)
	case Integer:
		return strconv.FormatInt(int64(v.i), 10)
	case Text:
		return v.s
	case Array:
		return v.arr.String()
	default:
		return "?"
	}
}

// Literal renders v as source text that ParseLiteral would accept.
func (v Value) Literal() string {
	if v.kind == Text {
		return strconv.Quote(v.s)
	}
	return v.String()
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Void:
		return true
	case Boolean:
		return v.b == o.b
	case Double:
		return v.d == o.d
	case Integer:
		return v.i == o.i
	case Text:
		return v.s == o.s
	case Array:
		return v.arr == o.arr
	default:
		return false
	}
}

// FormatDouble formats d with the shortest representation that round-trips, always
// keeping a decimal point so that doubles remain distinguishable from integers.
func FormatDouble(d float64) string {
	s := strconv.FormatFloat(d, 'g', -1, 64)
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
