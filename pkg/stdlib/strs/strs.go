// Package strs provides string manipulation built-ins. Positions and lengths count
// characters, not bytes.
package strs

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the help category of every built-in in this package.
const Category = "String functions"

func text(name, description string, fn func(string) string) *callable.Descriptor {
	return callable.NewFunction(callable.Metadata{
		Name:        name,
		Category:    Category,
		Description: description,
		Params:      []callable.Param{{Name: "expr", Type: value.Text}},
	}, value.Text, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
		return value.Str(fn(inv.Text(0))), nil
	}))
}

// Descriptors returns the string built-ins.
func Descriptors() []*callable.Descriptor {
	return []*callable.Descriptor{
		callable.NewFunction(callable.Metadata{
			Name:        "ASC",
			Category:    Category,
			Description: "Returns the Unicode code point of a single-character string.",
			Params:      []callable.Param{{Name: "char", Type: value.Text}},
		}, value.Integer, callable.FunctionFunc(asc)),
		callable.NewFunction(callable.Metadata{
			Name:        "CHR",
			Category:    Category,
			Description: "Returns the character with the given Unicode code point.",
			Params:      []callable.Param{{Name: "code", Type: value.Integer}},
		}, value.Text, callable.FunctionFunc(chr)),
		callable.NewFunction(callable.Metadata{
			Name:     "LEFT",
			Category: Category,
			Description: "Returns the first n% characters of expr$.\n" +
				"If n% exceeds the length of expr$, the whole string is returned.",
			Params: []callable.Param{{Name: "expr", Type: value.Text}, {Name: "n", Type: value.Integer}},
		}, value.Text, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return slice(inv, func(rs []rune, n int) []rune { return rs[:n] })
		})),
		callable.NewFunction(callable.Metadata{
			Name:     "RIGHT",
			Category: Category,
			Description: "Returns the last n% characters of expr$.\n" +
				"If n% exceeds the length of expr$, the whole string is returned.",
			Params: []callable.Param{{Name: "expr", Type: value.Text}, {Name: "n", Type: value.Integer}},
		}, value.Text, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return slice(inv, func(rs []rune, n int) []rune { return rs[len(rs)-n:] })
		})),
		callable.NewFunction(callable.Metadata{
			Name:     "MID",
			Category: Category,
			Description: "Returns a portion of expr$ starting at the 1-based position start%.\n" +
				"Without length%, the rest of the string is returned. Ranges past the end " +
				"of expr$ are truncated.",
			Params: []callable.Param{
				{Name: "expr", Type: value.Text},
				{Name: "start", Type: value.Integer},
				{Name: "length", Type: value.Integer, Optional: true},
			},
		}, value.Text, callable.FunctionFunc(mid)),
		callable.NewFunction(callable.Metadata{
			Name:        "LEN",
			Category:    Category,
			Description: "Returns the number of characters in expr$.",
			Params:      []callable.Param{{Name: "expr", Type: value.Text}},
		}, value.Integer, callable.FunctionFunc(func(inv *callable.Invocation) (value.Value, error) {
			return value.Int(int32(utf8.RuneCountInString(inv.Text(0)))), nil
		})),
		text("LTRIM", "Returns expr$ without leading whitespace.", func(s string) string {
			return strings.TrimLeftFunc(s, unicode.IsSpace)
		}),
		text("RTRIM", "Returns expr$ without trailing whitespace.", func(s string) string {
			return strings.TrimRightFunc(s, unicode.IsSpace)
		}),
		text("UCASE", "Returns expr$ in uppercase.", func(s string) string {
			return cases.Upper(language.Und).String(s)
		}),
		text("LCASE", "Returns expr$ in lowercase.", func(s string) string {
			return cases.Lower(language.Und).String(s)
		}),
		callable.NewFunction(callable.Metadata{
			Name:     "STR",
			Category: Category,
			Description: "Formats a scalar value as a string.\n" +
				"Non-negative numbers get a leading space where the sign would go.",
			Params: []callable.Param{{Name: "expr", Type: value.Void}},
		}, value.Text, callable.FunctionFunc(str)),
	}
}

func asc(inv *callable.Invocation) (value.Value, error) {
	s := inv.Text(0)
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return value.Value{}, inv.ValueErrorf(0, "input string must be 1 character long")
	}
	return value.Int(r), nil
}

func chr(inv *callable.Invocation) (value.Value, error) {
	code, err := inv.Int(0)
	if err != nil {
		return value.Value{}, err
	}
	if code < 0 || !utf8.ValidRune(code) {
		return value.Value{}, inv.ValueErrorf(0, "character code %d is not a valid code point", code)
	}
	return value.Str(string(rune(code))), nil
}

func slice(inv *callable.Invocation, cut func(rs []rune, n int) []rune) (value.Value, error) {
	rs := []rune(inv.Text(0))
	n, err := inv.Int(1)
	if err != nil {
		return value.Value{}, err
	}
	if n < 0 {
		return value.Value{}, inv.ValueErrorf(1, "length cannot be negative")
	}
	return value.Str(string(cut(rs, min(int(n), len(rs))))), nil
}

func mid(inv *callable.Invocation) (value.Value, error) {
	rs := []rune(inv.Text(0))
	start, err := inv.Int(1)
	if err != nil {
		return value.Value{}, err
	}
	if start < 1 {
		return value.Value{}, inv.ValueErrorf(1, "start position must be 1 or greater")
	}
	from := min(int(start)-1, len(rs))
	to := len(rs)
	if inv.Has(2) {
		length, err := inv.Int(2)
		if err != nil {
			return value.Value{}, err
		}
		if length < 0 {
			return value.Value{}, inv.ValueErrorf(2, "length cannot be negative")
		}
		to = min(from+int(length), len(rs))
	}
	return value.Str(string(rs[from:to])), nil
}

func str(inv *callable.Invocation) (value.Value, error) {
	v := inv.Args[0]
	switch v.Kind() {
	case value.Integer, value.Double:
		s := v.String()
		if !strings.HasPrefix(s, "-") {
			s = " " + s
		}
		return value.Str(s), nil
	case value.Boolean, value.Text:
		return value.Str(v.String()), nil
	default:
		return value.Value{}, callable.NewTypeError(inv.Name, 1, value.Void, v.Kind())
	}
}
