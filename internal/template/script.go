package template

import (
	_ "embed"
	"path"
	"path/filepath"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
)

//go:embed templates/script.ts.tmpl
var scriptTemplate string

// ScriptContext is the data a test script is rendered from.
type ScriptContext struct {
	SpecName            string
	SpecTitle           string
	Version             string
	GeneratedAt         string
	BaseURL             string
	ScreenshotDir       string
	StepTimeoutMs       int64
	MaxRetries          int
	ViewportWidth       int
	ViewportHeight      int
	EstimatedDurationMs int64
	Steps               []StepView
}

// StepView flattens a TestStep for the template.
type StepView struct {
	Number         int
	ID             string
	Description    string
	ExpectedResult string
	Kind           string
	URL            string
	Selector       string
	Value          string
	DurationMs     int64
	Validation     string
}

// NewScriptContext builds the render context for script.
func NewScriptContext(script *models.TestScript, title string, s Settings) ScriptContext {
	ctx := ScriptContext{
		SpecName:            script.SpecName,
		SpecTitle:           title,
		Version:             script.Metadata.Version,
		GeneratedAt:         script.Metadata.GeneratedAt.UTC().Format(time.RFC3339),
		BaseURL:             s.BaseURL,
		ScreenshotDir:       path.Join(filepath.ToSlash(s.AssetsRoot), script.SpecName),
		StepTimeoutMs:       s.StepTimeout.Milliseconds(),
		MaxRetries:          s.MaxRetries,
		ViewportWidth:       s.ViewportWidth,
		ViewportHeight:      s.ViewportHeight,
		EstimatedDurationMs: script.Metadata.EstimatedDurationMs,
		Steps:               make([]StepView, 0, len(script.Steps)),
	}
	for i, st := range script.Steps {
		ctx.Steps = append(ctx.Steps, StepView{
			Number:         i + 1,
			ID:             st.ID,
			Description:    st.Description,
			ExpectedResult: st.ExpectedResult,
			Kind:           string(st.Action.Kind),
			URL:            st.Action.URL,
			Selector:       st.Action.Selector,
			Value:          st.Action.Value,
			DurationMs:     st.Action.DurationMs,
			Validation:     st.Action.Validation,
		})
	}
	return ctx
}

// Settings are the runtime values baked into a generated script.
type Settings struct {
	BaseURL        string
	AssetsRoot     string
	StepTimeout    time.Duration
	MaxRetries     int
	ViewportWidth  int
	ViewportHeight int
}

// RenderScript renders the executable test source for ctx.
func RenderScript(ctx ScriptContext) (string, error) {
	return Render(scriptTemplate, ctx)
}
