package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/wizard"
	"github.com/stretchr/testify/require"
)

// project creates a temp project with a login spec and changes into it.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content, err := wizard.GenerateStarterSpec("User login")
	require.NoError(t, err)
	specDir := filepath.Join(dir, ".kiro", "specs", "login")
	require.NoError(t, os.MkdirAll(specDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(specDir, analyzer.RequirementsFile), []byte(content), 0o644))
	t.Chdir(dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
