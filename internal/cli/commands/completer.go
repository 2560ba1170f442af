package commands

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/symbols"
)

func dotCommandNames() []string {
	names := []string{".exit"}
	for _, d := range DotCommands() {
		names = append(names, d.Name())
	}
	return names
}

// completer completes the identifier under the cursor against built-in and variable
// names, and dot commands at the start of a line. It implements readline.AutoCompleter.
type completer struct {
	reg  *registry.Registry
	vars *symbols.Table
}

// Do returns the candidate suffixes for the word ending at pos.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	head := line[:pos]
	if trimmed := strings.TrimLeft(string(head), " \t"); strings.HasPrefix(trimmed, ".") {
		if strings.ContainsAny(trimmed, " \t") {
			return nil, 0
		}
		return suffixes(trimmed, dotCommandNames()), len([]rune(trimmed))
	}

	start := pos
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	word := string(line[start:pos])
	if word == "" || c.reg == nil {
		return nil, 0
	}

	var names []string
	for name := range c.reg.PrefixSearch(word) {
		names = append(names, name)
	}
	if c.vars != nil {
		for name := range c.vars.Prefix(word) {
			names = append(names, name)
		}
	}
	return suffixes(word, names), len([]rune(word))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// suffixes returns what each candidate adds after word. Matching ignores case.
func suffixes(word string, candidates []string) [][]rune {
	var out [][]rune
	n := len([]rune(word))
	for _, cand := range candidates {
		rs := []rune(cand)
		if len(rs) < n || !strings.EqualFold(string(rs[:n]), word) {
			continue
		}
		out = append(out, rs[n:])
	}
	return out
}
