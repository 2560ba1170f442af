// Package main provides tests for the LeapBASIC CLI.
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapbasic/internal/cli"
	"github.com/leapstack-labs/leapbasic/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapBASIC")
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	for _, expected := range []string{"repl", "run", "call", "builtins", "describe", "completion"} {
		assert.Contains(t, out, expected)
	}
}

func TestRunCommand_UsesProjectConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, err := run(t, "", "run", "hello.star")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n10\n", out)
}

func TestRunCommand_DriveFlag(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, err := run(t, `SAVE("X")`+"\nDIR()\n", "run", "--drive", "scratch", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "X.BAS")
	assert.NotContains(t, out, "GREET.BAS")
	assert.NoFileExists(t, filepath.Join(dir, "programs", "X.BAS"))
}

func TestRunCommand_SeedIsRepeatable(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	first, err := run(t, "PRINT(RND())", "run", "--seed", "99", "-")
	require.NoError(t, err)
	second, err := run(t, "PRINT(RND())", "run", "--seed", "99", "-")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuiltinsJSON(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	out, err := run(t, "", "builtins", "PR", "-o", "json")
	require.NoError(t, err)

	var infos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.NotEmpty(t, infos)
	assert.Equal(t, "PRINT", infos[0]["name"])
}

func TestInvalidConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)

	_, err := run(t, "", "builtins", "--output", "html")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapbasic")
}
