package generate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/validation"
)

// PlanSuffix is appended to the spec name for the persisted step plan.
const PlanSuffix = "-steps.json"

// Written records where a script's artifacts were stored.
type Written struct {
	ScriptPath string
	PlanPath   string
}

// ScriptDir returns {scriptsRoot}/{specName}.
func ScriptDir(scriptsRoot, specName string) string {
	return filepath.Join(scriptsRoot, specName)
}

// PlanPath returns the step-plan path for specName under scriptsRoot.
func PlanPath(scriptsRoot, specName string) string {
	return filepath.Join(ScriptDir(scriptsRoot, specName), specName+PlanSuffix)
}

// WriteScript writes the rendered source to
// {scriptsRoot}/{spec}/{spec}-test.ts and the step plan next to it.
func WriteScript(scriptsRoot string, script *models.TestScript) (*Written, error) {
	dir := ScriptDir(scriptsRoot, script.SpecName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating script directory: %w", err)
	}

	out := &Written{
		ScriptPath: filepath.Join(dir, script.FileName),
		PlanPath:   PlanPath(scriptsRoot, script.SpecName),
	}
	if err := os.WriteFile(out.ScriptPath, []byte(script.Content), 0o644); err != nil {
		return nil, fmt.Errorf("writing script: %w", err)
	}

	plan, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling step plan: %w", err)
	}
	if err := os.WriteFile(out.PlanPath, append(plan, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing step plan: %w", err)
	}
	return out, nil
}

// LoadPlan reads and validates a persisted step plan. The script content is
// re-read from the sibling script file when present.
func LoadPlan(path string) (*models.TestScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading step plan: %w", err)
	}
	if errs := validation.ValidatePlanBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("step plan %s is invalid:\n  %s", path, strings.Join(errs, "\n  "))
	}

	var script models.TestScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing step plan: %w", err)
	}
	if content, err := os.ReadFile(filepath.Join(filepath.Dir(path), script.FileName)); err == nil {
		script.Content = string(content)
	}
	return &script, nil
}
