// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// ProjectConfig mounts the project directory as drive "local" and an in-memory drive
// "scratch", and fixes the RND seed.
const ProjectConfig = `log_level: error
random:
  seed: 7
repl:
  history_file: "-"
storage:
  default_drive: local
  drives:
    local:
      type: local
      path: programs
    scratch:
      type: memory
`

// HelloScript is a script that exercises console, string and numeric built-ins.
const HelloScript = `name = LEFT("world wide", 5)
PRINT("hello", name)
PRINT(LEN(name) * 2)
`

// SetupTestProject creates a temporary project with a config file, a programs directory
// holding one stored program, and hello.star. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	programs := filepath.Join(tmpDir, "programs")
	require.NoError(t, os.MkdirAll(programs, 0750))

	files := map[string]string{
		filepath.Join(tmpDir, "leapbasic.yaml"): ProjectConfig,
		filepath.Join(tmpDir, "hello.star"):     HelloScript,
		filepath.Join(programs, "GREET.BAS"):    "10 PRINT \"HI\"\n",
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600), "failed to create %s", path)
	}
	return tmpDir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
