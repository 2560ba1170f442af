package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapbasic/internal/cli/output"
	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib/help"
	"github.com/leapstack-labs/leapbasic/pkg/value"
	"github.com/spf13/cobra"
)

// BuiltinInfo describes a built-in in structured output.
type BuiltinInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Kind        string      `json:"kind" yaml:"kind"`
	Category    string      `json:"category" yaml:"category"`
	Returns     string      `json:"returns,omitempty" yaml:"returns,omitempty"`
	Usage       string      `json:"usage" yaml:"usage"`
	Params      []ParamInfo `json:"params,omitempty" yaml:"params,omitempty"`
	Summary     string      `json:"summary" yaml:"summary"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
}

// ParamInfo describes one parameter of a built-in.
type ParamInfo struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Repeated bool   `json:"repeated,omitempty" yaml:"repeated,omitempty"`
}

func newBuiltinInfo(d *callable.Descriptor, full bool) BuiltinInfo {
	info := BuiltinInfo{
		Name:     d.Name(),
		Kind:     d.Kind().String(),
		Category: d.Category(),
		Usage:    d.Usage(),
		Summary:  d.Summary(),
	}
	if d.Kind() == callable.KindFunction {
		info.Returns = d.Returns().String()
	}
	if full {
		info.Description = d.Description()
		for _, p := range d.Params() {
			info.Params = append(info.Params, ParamInfo{
				Name:     p.Name,
				Type:     p.Type.String(),
				Optional: p.Optional,
				Repeated: p.Repeated,
			})
		}
	}
	return info
}

// NewBuiltinsCommand creates the builtins command.
func NewBuiltinsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "builtins [prefix]",
		Aliases: []string{"ls"},
		Short:   "List registered built-ins",
		Long: `List the registered built-ins in name order. With a prefix, only names starting
with it are shown; matching ignores case.

Use --output json or --output yaml for machine-readable output.`,
		Example: `  leapbasic builtins
  leapbasic builtins LE
  leapbasic builtins --category time -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			category, _ := cmd.Flags().GetString("category")
			return runBuiltins(cmd, prefix, category)
		},
	}

	cmd.Flags().String("category", "", "Only show built-ins in this category")

	return cmd
}

func runBuiltins(cmd *cobra.Command, prefix, category string) error {
	cc, err := NewCommandContextWithoutMachine(cmd)
	if err != nil {
		return err
	}

	ds := matchBuiltins(cc.Registry, prefix, category)
	r := cc.Renderer

	if r.Structured() {
		infos := make([]BuiltinInfo, 0, len(ds))
		for _, d := range ds {
			infos = append(infos, newBuiltinInfo(d, false))
		}
		return r.Data(infos)
	}

	if len(ds) == 0 {
		r.Muted("No built-ins match %q", prefix)
		return nil
	}

	r.Header(fmt.Sprintf("Built-ins (%d)", len(ds)))
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		returns := ""
		if d.Kind() == callable.KindFunction {
			returns = d.Returns().String()
		}
		rows = append(rows, []string{d.Name(), d.Kind().String(), returns, d.Category(), d.Summary()})
	}
	r.Table([]string{"Name", "Kind", "Returns", "Category", "Summary"}, rows)
	return nil
}

func matchBuiltins(reg *registry.Registry, prefix, category string) []*callable.Descriptor {
	var ds []*callable.Descriptor
	for _, d := range reg.PrefixSearch(prefix) {
		if category != "" && !strings.EqualFold(d.Category(), category) {
			continue
		}
		ds = append(ds, d)
	}
	return ds
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name|category>",
		Short: "Show the help page of a built-in or category",
		Long: `Show the usage and description of a built-in, the same text HELP prints
inside a program. Given a category name, or an unambiguous prefix of one, list
the built-ins in that category.`,
		Example: `  leapbasic describe LEFT$
  leapbasic describe string
  leapbasic describe INPUT -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, args[0])
		},
	}
}

func runDescribe(cmd *cobra.Command, topic string) error {
	cc, err := NewCommandContextWithoutMachine(cmd)
	if err != nil {
		return err
	}
	r := cc.Renderer

	if r.Structured() {
		return describeData(r, cc.Registry, topic)
	}

	lines, err := help.Topic(cc.Registry, topic)
	if err != nil {
		return err
	}
	for _, line := range lines {
		r.Println(line)
	}
	return nil
}

func describeData(r *output.Renderer, reg *registry.Registry, topic string) error {
	if ref, err := value.ParseRef(topic); err == nil {
		if d, err := reg.Resolve(ref); err == nil {
			return r.Data(newBuiltinInfo(d, true))
		}
	}
	var matches []string
	for _, cat := range reg.Categories() {
		if strings.EqualFold(cat, topic) {
			matches = []string{cat}
			break
		}
		if len(topic) > 0 && len(cat) >= len(topic) && strings.EqualFold(cat[:len(topic)], topic) {
			matches = append(matches, cat)
		}
	}
	if len(matches) != 1 {
		// Same wording as the text rendering.
		if _, err := help.Topic(reg, topic); err != nil {
			return err
		}
		return fmt.Errorf("unknown help topic %s", topic)
	}
	var infos []BuiltinInfo
	for _, d := range reg.ByCategory(matches[0]) {
		infos = append(infos, newBuiltinInfo(d, false))
	}
	return r.Data(infos)
}
