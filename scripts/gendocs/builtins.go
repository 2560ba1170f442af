package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapbasic/pkg/callable"
	"github.com/leapstack-labs/leapbasic/pkg/registry"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
	"github.com/leapstack-labs/leapbasic/pkg/value"
)

// generateBuiltinsDocs writes an index of every standard built-in and one page per category.
func generateBuiltinsDocs(outDir string) error {
	log.Printf("Generating built-in reference to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := registry.New()
	if err := stdlib.Register(reg); err != nil {
		return fmt.Errorf("failed to register built-ins: %w", err)
	}
	reg.Seal()

	if err := generateBuiltinsIndex(reg, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	for _, category := range reg.Categories() {
		if err := generateCategoryPage(reg, category, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", category, err)
		}
		log.Printf("  Generated %s.md", categorySlug(category))
	}
	return nil
}

func generateBuiltinsIndex(reg *registry.Registry, outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Built-in Reference", "Every BASIC built-in available to LeapBASIC scripts")
	w.GeneratedMarker()

	w.Header(1, "Built-in Reference")
	w.Paragraph(fmt.Sprintf("LeapBASIC registers %d built-ins. Call them by name from Starlark, "+
		"or through CALL when the name carries a type suffix such as `LEFT$`.", reg.Len()))

	w.Header(2, "Categories")
	var rows [][]string
	for _, category := range reg.Categories() {
		link := fmt.Sprintf("[%s](/builtins/%s)", category, categorySlug(category))
		rows = append(rows, []string{link, fmt.Sprint(len(reg.ByCategory(category)))})
	}
	w.Table([]string{"Category", "Built-ins"}, rows)

	w.Header(2, "Modules")
	w.Paragraph("Restrict the registry with `--modules` or the `modules` config key. Module names:")
	var modules []string
	for _, name := range stdlib.ModuleNames() {
		modules = append(modules, InlineCode(name))
	}
	w.BulletList(modules)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

func generateCategoryPage(reg *registry.Registry, category, outDir string) error {
	w := NewMarkdownWriter()
	descriptors := reg.ByCategory(category)

	w.Frontmatter(category, fmt.Sprintf("%s built-ins", category))
	w.GeneratedMarker()
	w.Header(1, category)

	var rows [][]string
	for _, d := range descriptors {
		rows = append(rows, []string{InlineCode(d.Name() + d.Returns().Suffix()), d.Kind().String(), cleanDescription(d.Summary())})
	}
	w.Table([]string{"Name", "Kind", "Summary"}, rows)

	for _, d := range descriptors {
		writeBuiltin(w, d)
	}
	return os.WriteFile(filepath.Join(outDir, categorySlug(category)+".md"), w.Bytes(), 0600)
}

func writeBuiltin(w *MarkdownWriter, d *callable.Descriptor) {
	w.Header(2, d.Name()+d.Returns().Suffix())
	w.CodeBlock("", d.Usage())
	w.Paragraph(d.Description())

	params := d.Params()
	if len(params) == 0 {
		return
	}
	var rows [][]string
	for _, p := range params {
		typ := "any"
		if p.Type != value.Void {
			typ = p.Type.String()
		}
		var notes []string
		if p.Optional {
			notes = append(notes, "optional")
		}
		if p.Repeated {
			notes = append(notes, "repeats")
		}
		rows = append(rows, []string{InlineCode(p.Name), typ, strings.Join(notes, ", ")})
	}
	w.Table([]string{"Parameter", "Type", "Notes"}, rows)
}

func categorySlug(category string) string {
	return strings.ToLower(strings.Join(strings.Fields(category), "-"))
}
