package value

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ref is a symbol reference as written in source: a name plus an optional type annotation.
// Annotation is Void when the name carries no suffix.
type Ref struct {
	Name       string
	Annotation Kind
}

// String renders the reference with its suffix.
func (r Ref) String() string {
	return r.Name + r.Annotation.Suffix()
}

// Accepts reports whether a symbol of kind k can be referenced through r.
func (r Ref) Accepts(k Kind) bool {
	return r.Annotation == Void || r.Annotation == k
}

// ParseRef splits a trailing type annotation off name and validates the identifier.
func ParseRef(s string) (Ref, error) {
	if s == "" {
		return Ref{}, fmt.Errorf("empty symbol name")
	}
	ref := Ref{Name: s}
	last, size := utf8.DecodeLastRuneInString(s)
	if k, ok := KindForSuffix(last); ok {
		ref.Name = s[:len(s)-size]
		ref.Annotation = k
	}
	if err := validIdent(ref.Name); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func validIdent(name string) error {
	if name == "" {
		return fmt.Errorf("symbol name cannot be just a type annotation")
	}
	for i, r := range name {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && unicode.IsDigit(r):
		default:
			return fmt.Errorf("invalid character %q in symbol name %q", r, name)
		}
	}
	return nil
}

// ParseLiteral parses a scalar literal: TRUE/FALSE, integers, doubles and double-quoted
// text. It is meant for hosts that take values from command lines or REPL input.
func ParseLiteral(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, fmt.Errorf("empty literal")
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return Bool(true), nil
	case "FALSE":
		return Bool(false), nil
	}
	if s[0] == '"' {
		text, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, fmt.Errorf("bad string literal %s: %w", s, err)
		}
		return Str(text), nil
	}
	if strings.ContainsAny(s, ".eE") {
		d, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("bad double literal %s", s)
		}
		return Float(d), nil
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return Value{}, fmt.Errorf("bad integer literal %s", s)
	}
	return Int(int32(i)), nil
}
