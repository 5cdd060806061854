package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passwordSpec = `# Requirements Document

## Introduction

Password visibility for the login form.

## Requirements

### Requirement 1: Password visibility

**User Story:** As a user, I want to see my password, so that I can check what I typed.

#### Acceptance Criteria

1. WHEN user clicks the password toggle button THEN the system SHALL show the password text
2. WHEN the password is visible AND the user clicks the toggle again
   THEN the system SHALL mask the password.
3. IF the user submits the form THEN the system SHALL hide the password

### Requirement 2: Compliance

**User Story:** As an operator, I want stored data handled lawfully.

#### Acceptance Criteria

1. WHEN user data is stored THEN the system SHALL comply with GDPR retention rules
`

func TestParseRequirements_PasswordSpec(t *testing.T) {
	reqs := New().ParseRequirements(passwordSpec)
	require.Len(t, reqs, 2)

	r1 := reqs[0]
	assert.Equal(t, 1, r1.Number)
	assert.Equal(t, "Password visibility", r1.Title)
	assert.Equal(t, "As a user, I want to see my password, so that I can check what I typed.", r1.UserStory)
	require.Len(t, r1.Criteria, 3)

	c := r1.Criteria[0]
	assert.Equal(t, "1.1", c.ID)
	assert.Equal(t, "1", c.RequirementID)
	assert.Equal(t, "user clicks the password toggle button", c.Condition)
	assert.Equal(t, "the system", c.Subject)
	assert.Equal(t, "show the password text", c.Behavior)
	assert.True(t, c.Testable)
	assert.Equal(t, models.CategoryUIInteraction, c.Category)
	assert.Equal(t, r1.UserStory, c.UserStory)

	// soft line break inside the criterion
	assert.Equal(t, "1.2", r1.Criteria[1].ID)
	assert.Equal(t, "mask the password", r1.Criteria[1].Behavior)

	assert.Equal(t, models.CategoryFormValidation, r1.Criteria[2].Category)

	r2 := reqs[1]
	require.Len(t, r2.Criteria, 1)
	assert.Equal(t, "2.1", r2.Criteria[0].ID)
	assert.False(t, r2.Criteria[0].Testable)
}

func TestParseRequirements_CountMatchesSentences(t *testing.T) {
	text := "when a THEN the app shall show x. If b then it SHALL display y; WHEN c THEN z SHALL open the menu"
	crit := Flatten(New().ParseRequirements(text))
	require.Len(t, crit, 3)
	assert.Equal(t, []string{"1.1", "1.2", "1.3"}, []string{crit[0].ID, crit[1].ID, crit[2].ID})
	assert.Equal(t, "show x", crit[0].Behavior)
	assert.Equal(t, "display y", crit[1].Behavior)
	assert.Equal(t, "open the menu", crit[2].Behavior)
}

func TestParseRequirements_StaysInsideSentence(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		desc      string
		condition string
	}{
		{
			name:      "leading if sentence",
			text:      "If needed, see docs. WHEN a THEN b SHALL show c.",
			desc:      "WHEN a THEN b SHALL show c",
			condition: "a",
		},
		{
			name:      "leading when clause ended by semicolon",
			text:      "When in doubt; IF the form is empty THEN the page SHALL disable save",
			desc:      "IF the form is empty THEN the page SHALL disable save",
			condition: "the form is empty",
		},
		{
			name:      "dot inside a word",
			text:      "WHEN the user opens index.html THEN the system SHALL show the banner.",
			desc:      "WHEN the user opens index.html THEN the system SHALL show the banner",
			condition: "the user opens index.html",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crit := Flatten(New().ParseRequirements(tt.text))
			require.Len(t, crit, 1)
			assert.Equal(t, tt.desc, crit[0].Description)
			assert.Equal(t, tt.condition, crit[0].Condition)
		})
	}
}

func TestParseRequirements_SentenceWithoutThenIsSkipped(t *testing.T) {
	crit := Flatten(New().ParseRequirements("If the user is idle the session ends. The app SHALL log out."))
	assert.Empty(t, crit)
}

func TestParseRequirements_NoMatches(t *testing.T) {
	for _, text := range []string{"", "   ", "# Title\n\nJust prose, nothing structured.", "\x00\xff garbage"} {
		assert.Empty(t, Flatten(New().ParseRequirements(text)))
	}
}

func TestParseRequirements_PreambleCriteria(t *testing.T) {
	text := "WHEN a THEN the app SHALL show x\n\n## Requirement 3\n\n- IF b THEN it SHALL hide y\n"
	reqs := New().ParseRequirements(text)
	require.Len(t, reqs, 2)
	assert.Equal(t, 0, reqs[0].Number)
	assert.Equal(t, "0.1", reqs[0].Criteria[0].ID)
	assert.Equal(t, 3, reqs[1].Number)
	assert.Equal(t, "3.1", reqs[1].Criteria[0].ID)
}

func TestIsTestable(t *testing.T) {
	assert.True(t, IsTestable("display an error message"))
	assert.True(t, IsTestable("redirect to the dashboard"))
	assert.False(t, IsTestable("comply with GDPR"))
	assert.False(t, IsTestable("encrypt data at rest"))
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "requirements.md")
	require.NoError(t, os.WriteFile(p, []byte(passwordSpec), 0o644))

	reqs, err := New().ParseFile(p)
	require.NoError(t, err)
	assert.Len(t, Flatten(reqs), 4)

	_, err = New().ParseFile(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestDiscoverAndResolve(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta", "alpha"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, name, RequirementsFile), []byte(passwordSpec), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	docs, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Name)
	assert.Equal(t, "zeta", docs[1].Name)

	doc, err := Resolve("zeta", root)
	require.NoError(t, err)
	assert.Equal(t, "zeta", doc.Name)

	doc, err = Resolve(filepath.Join(root, "alpha", RequirementsFile), root)
	require.NoError(t, err)
	assert.Equal(t, "alpha", doc.Name)

	_, err = Resolve("empty", root)
	assert.Error(t, err)

	_, err = Resolve("nope", root)
	assert.Error(t, err)

	docs, err = Discover(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}
