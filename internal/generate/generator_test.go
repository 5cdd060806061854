package generate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

func criteriaFrom(t *testing.T, text string) []models.AcceptanceCriterion {
	t.Helper()
	return analyzer.Flatten(analyzer.New().ParseRequirements(text))
}

func TestGenerateTestScript_PasswordToggle(t *testing.T) {
	crit := criteriaFrom(t, "WHEN user clicks the password toggle button THEN the system SHALL show the password text")
	require.Len(t, crit, 1)

	script, err := New(WithClock(fixedNow)).GenerateTestScript(crit, "password-visibility")
	require.NoError(t, err)

	require.Len(t, script.Steps, 2)
	click := script.Steps[0]
	assert.Equal(t, models.ActionClick, click.Action.Kind)
	assert.Contains(t, click.Action.Selector, "password-toggle")
	assert.Equal(t, models.CategoryUIInteraction, click.Category)
	assert.Equal(t, "the system shall show the password text", click.ExpectedResult)
	assert.Equal(t, models.ActionScreenshot, script.Steps[1].Action.Kind)

	assert.Equal(t, "password-visibility-test.ts", script.FileName)
	assert.Equal(t, 2, script.Metadata.TotalSteps)
	assert.Equal(t, ScriptVersion, script.Metadata.Version)
	assert.Equal(t, fixedNow(), script.Metadata.GeneratedAt)
	assert.Equal(t, int64(2*(1000+500)), script.Metadata.EstimatedDurationMs)
	assert.Contains(t, script.Content, "password-toggle")
}

func TestGenerateTestScript_OnlyTestableCriteriaProduceSteps(t *testing.T) {
	crit := []models.AcceptanceCriterion{
		{ID: "1.1", Description: "WHEN a THEN x SHALL show y", Subject: "x", Behavior: "show y", Testable: true, Category: models.CategoryUIInteraction},
		{ID: "1.2", Description: "WHEN b THEN x SHALL comply", Subject: "x", Behavior: "comply", Testable: false},
		{ID: "1.3", Description: "WHEN c THEN x SHALL redirect to the dashboard page", Condition: "c", Subject: "x", Behavior: "redirect to the dashboard page", Testable: true, Category: models.CategoryNavigation},
	}
	script, err := New().GenerateTestScript(crit, "mixed")
	require.NoError(t, err)

	require.Len(t, script.Steps, 4)
	ids := map[string]bool{}
	for _, s := range script.Steps {
		assert.False(t, ids[s.ID], "duplicate step id %s", s.ID)
		ids[s.ID] = true
		assert.NotEqual(t, "1.2", s.CriterionID)
	}
	nav := script.Steps[2]
	assert.Equal(t, models.ActionNavigate, nav.Action.Kind)
	assert.Equal(t, "/dashboard", nav.Action.URL)
	assert.Equal(t, int64(2*(1000+500)+2*(1000+3000)), script.Metadata.EstimatedDurationMs)
}

func TestGenerateTestScript_Categories(t *testing.T) {
	gen := New()
	tests := []struct {
		name       string
		text       string
		kind       models.ActionKind
		validation string
		selector   string
	}{
		{
			name:       "form validation",
			text:       "WHEN the user submits the login form with an empty email THEN the system SHALL display an error message",
			kind:       models.ActionAssert,
			validation: models.ValidationForm,
			selector:   `[data-testid="login-form"]`,
		},
		{
			name:       "accessibility",
			text:       "WHEN a keyboard user focuses the theme switch THEN the system SHALL announce the current theme",
			kind:       models.ActionAssert,
			validation: models.ValidationAccessibility,
			selector:   `[data-testid="theme-switch"]`,
		},
		{
			name:     "toggle default suffix",
			text:     "WHEN the user toggles dark mode THEN the system SHALL render the chart in dark colours",
			kind:     models.ActionClick,
			selector: `[data-testid="dark-mode-toggle"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := gen.GenerateTestScript(criteriaFrom(t, tt.text), "spec")
			require.NoError(t, err)
			require.Len(t, script.Steps, 2)
			a := script.Steps[0].Action
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.validation, a.Validation)
			assert.Equal(t, tt.selector, a.Selector)
		})
	}
}

func TestGenerateTestScript_ZeroCriteria(t *testing.T) {
	script, err := New().GenerateTestScript(nil, "empty-spec")
	require.NoError(t, err)

	assert.NotNil(t, script.Steps)
	assert.Empty(t, script.Steps)
	assert.Zero(t, script.Metadata.TotalSteps)
	assert.Zero(t, script.Metadata.EstimatedDurationMs)
	assert.Contains(t, script.Content, "test.describe(")
}

func TestGenerateTestScript_InvalidSpecName(t *testing.T) {
	_, err := New().GenerateTestScript(nil, "../escape")
	assert.Error(t, err)
}

func TestClassifyAcceptanceCriteria(t *testing.T) {
	gen := New()
	assert.Equal(t, models.CategoryNavigation, gen.ClassifyAcceptanceCriteria("navigate home"))
	assert.Equal(t, models.CategoryUIInteraction, gen.ClassifyAcceptanceCriteria("click the dot"))
}

func TestNavigationPath(t *testing.T) {
	assert.Equal(t, "/settings/profile", navigationPath("open /settings/profile."))
	assert.Equal(t, "/dashboard", navigationPath("redirect to the dashboard"))
	assert.Equal(t, "/login", navigationPath("show the login page"))
	assert.Equal(t, "/", navigationPath("navigate back to the home screen"))
	assert.Equal(t, "/", navigationPath("reload"))
}

func TestWriteScriptAndLoadPlan(t *testing.T) {
	root := t.TempDir()
	crit := criteriaFrom(t, "WHEN user clicks the password toggle button THEN the system SHALL show the password text")
	script, err := New(WithClock(fixedNow)).GenerateTestScript(crit, "login")
	require.NoError(t, err)

	w, err := WriteScript(root, script)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "login", "login-test.ts"), w.ScriptPath)
	assert.Equal(t, filepath.Join(root, "login", "login-steps.json"), w.PlanPath)

	content, err := os.ReadFile(w.ScriptPath)
	require.NoError(t, err)
	assert.Equal(t, script.Content, string(content))

	loaded, err := LoadPlan(w.PlanPath)
	require.NoError(t, err)
	assert.Equal(t, script.Steps, loaded.Steps)
	assert.Equal(t, script.Metadata, loaded.Metadata)
	assert.Equal(t, script.Content, loaded.Content)
}

func TestLoadPlan_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x-steps.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"specName": "x"}`), 0o644))

	_, err := LoadPlan(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is invalid")
}
