package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlan = `{
  "fileName": "login-test.ts",
  "specName": "login",
  "steps": [
    {"id": "step-1", "description": "Click", "category": "ui-interaction",
     "action": {"type": "click", "selector": "[data-testid=\"password-toggle\"]"}},
    {"id": "step-2", "description": "Shot", "action": {"type": "screenshot"}},
    {"id": "step-3", "description": "Pause", "action": {"type": "wait", "durationMs": 100}}
  ],
  "metadata": {"specName": "login", "generatedAt": "2026-01-01T00:00:00Z", "version": "1.0.0",
               "totalSteps": 3, "estimatedDurationMs": 4500}
}`

func TestValidatePlanBytes_Valid(t *testing.T) {
	require.Empty(t, ValidatePlanBytes([]byte(validPlan)))
}

func TestValidatePlanBytes_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantLoc string
	}{
		{
			name:    "unknown action type",
			mutate:  func(s string) string { return strings.Replace(s, `"type": "screenshot"`, `"type": "hover"`, 1) },
			wantLoc: "/steps/1/action/type",
		},
		{
			name:    "click without selector",
			mutate:  func(s string) string { return strings.Replace(s, `, "selector": "[data-testid=\"password-toggle\"]"`, "", 1) },
			wantLoc: "/steps/0/action",
		},
		{
			name:    "wait without selector or duration",
			mutate:  func(s string) string { return strings.Replace(s, `, "durationMs": 100`, "", 1) },
			wantLoc: "/steps/2/action",
		},
		{
			name:    "bad category",
			mutate:  func(s string) string { return strings.Replace(s, `"ui-interaction"`, `"visual"`, 1) },
			wantLoc: "/steps/0/category",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePlanBytes([]byte(tt.mutate(validPlan)))
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if strings.HasPrefix(e, tt.wantLoc) {
					found = true
				}
			}
			assert.True(t, found, "expected an error at %s, got %v", tt.wantLoc, errs)
		})
	}
}

func TestValidatePlanBytes_NotJSON(t *testing.T) {
	errs := ValidatePlanBytes([]byte("{not json"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "JSON parse error")
}

func TestValidatePlanFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "login-steps.json")
	require.NoError(t, os.WriteFile(p, []byte(validPlan), 0o644))

	errs, err := ValidatePlanFile(p)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidatePlanFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
