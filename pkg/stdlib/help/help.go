// Package help provides the HELP command, built over the registry's introspection API.
package help

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/symtab"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// Category is the help category of HELP itself.
const Category = "Interpreter"

// Descriptors returns the help built-ins. They read reg when invoked, so they see every
// built-in registered before the registry was sealed.
func Descriptors(reg *registry.Registry) []*callable.Descriptor {
	return []*callable.Descriptor{
		callable.NewCommand(callable.Metadata{
			Name:     "HELP",
			Category: Category,
			Description: "Prints interactive help.\n" +
				"Without arguments, lists the help topics. With a topic, prints the " +
				"built-ins of a category (any unique prefix of its name will do) or the " +
				"details of a single command or function.",
			Params: []callable.Param{{Name: "topic", Type: value.Text, Optional: true}},
		}, callable.CommandFunc(func(inv *callable.Invocation) error {
			return run(inv, reg)
		})),
	}
}

func run(inv *callable.Invocation, reg *registry.Registry) error {
	var lines []string
	if !inv.Has(0) {
		lines = Summary(reg)
	} else {
		var err error
		if lines, err = Topic(reg, inv.Text(0)); err != nil {
			return inv.ValueErrorf(0, "%v", err)
		}
	}
	con, err := inv.Console()
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := con.Print(line); err != nil {
			return callable.NewIOError(inv.Name, err)
		}
	}
	return nil
}

// Summary renders the list of help topics.
func Summary(reg *registry.Registry) []string {
	lines := []string{
		"",
		"    Type HELP followed by the name of a topic for details.",
		"    Type HELP \"HELP\" for details on how to specify topics.",
		"",
	}
	for _, cat := range reg.Categories() {
		lines = append(lines, "    >> "+cat)
	}
	return append(lines, "")
}

// Topic renders the help for a built-in or a category.
func Topic(reg *registry.Registry, topic string) ([]string, error) {
	if ref, err := value.ParseRef(topic); err == nil {
		if d, err := reg.Resolve(ref); err == nil {
			return Describe(d), nil
		}
	}

	key := symtab.Fold(strings.TrimSpace(topic))
	var matches []string
	for _, cat := range reg.Categories() {
		folded := symtab.Fold(cat)
		if folded == key {
			matches = []string{cat}
			break
		}
		if key != "" && strings.HasPrefix(folded, key) {
			matches = append(matches, cat)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("unknown help topic %s", topic)
	case 1:
		return CategoryPage(reg, matches[0]), nil
	default:
		return nil, fmt.Errorf("ambiguous help topic %s; candidates are: %s", topic, strings.Join(matches, ", "))
	}
}

// CategoryPage renders the built-ins of a category with their one-line summaries.
func CategoryPage(reg *registry.Registry, category string) []string {
	lines := []string{"", "    " + category, ""}
	for _, d := range reg.ByCategory(category) {
		lines = append(lines, fmt.Sprintf("    >> %-12s %s", d.Name()+d.Returns().Suffix(), d.Summary()))
	}
	return append(lines, "")
}

// Describe renders the usage and description of a single built-in.
func Describe(d *callable.Descriptor) []string {
	lines := []string{"", "    " + d.Usage(), ""}
	for _, para := range strings.Split(d.Description(), "\n") {
		lines = append(lines, "    "+para)
	}
	return append(lines, "")
}
