package callable_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const modulePath = "github.com/leapstack-labs/leapbasic"

// importsOf returns the imports of every non-test Go file in dir, keyed by file name.
func importsOf(t *testing.T, dir string) map[string][]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}

	fset := token.NewFileSet()
	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") || strings.HasSuffix(entry.Name(), "_test.go") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			t.Errorf("Failed to parse %s: %v", path, err)
			continue
		}
		for _, imp := range f.Imports {
			out[path] = append(out[path], strings.Trim(imp.Path.Value, `"`))
		}
	}
	return out
}

// TestCallableImportsOnly verifies the callable contract depends only on values,
// capabilities and the standard library.
func TestCallableImportsOnly(t *testing.T) {
	allowed := map[string]bool{
		modulePath + "/pkg/value":      true,
		modulePath + "/pkg/capability": true,
	}
	for file, imports := range importsOf(t, ".") {
		for _, imp := range imports {
			if !strings.Contains(imp, ".") {
				continue
			}
			if !allowed[imp] {
				t.Errorf("%s imports forbidden package: %s", file, imp)
			}
		}
	}
}

// TestBuiltinModulesDoNotImportHost verifies built-in modules reach the host only
// through the capabilities of their invocation.
func TestBuiltinModulesDoNotImportHost(t *testing.T) {
	stdlibDir := filepath.Join("..", "stdlib")
	entries, err := os.ReadDir(stdlibDir)
	if err != nil {
		t.Fatalf("Failed to read stdlib directory: %v", err)
	}

	forbidden := []string{
		"/internal/",
		modulePath + "/pkg/bridge",
		"go.starlark.net",
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for file, imports := range importsOf(t, filepath.Join(stdlibDir, entry.Name())) {
			for _, imp := range imports {
				for _, f := range forbidden {
					if strings.Contains(imp, f) {
						t.Errorf("%s imports %s (built-in modules must not depend on the host)", file, imp)
					}
				}
			}
		}
	}
}
