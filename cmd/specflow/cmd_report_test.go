package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCommand_ListsFutureTests(t *testing.T) {
	dir := project(t)
	out, err := runCLI(t, "report", "--junit", "out/junit.xml")
	require.NoError(t, err)

	report := filepath.Join(dir, "tests", "e2e", "TESTS_SUMMARY.md")
	assert.Contains(t, out, "Report: "+report)
	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Login | 3 |")
	assert.FileExists(t, filepath.Join(dir, "out", "junit.xml"))
}

func TestReportCommand_RejectsArgs(t *testing.T) {
	project(t)
	_, err := runCLI(t, "report", "login")
	require.Error(t, err)
}
