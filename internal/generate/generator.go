// Package generate compiles acceptance criteria into test scripts: a
// structured step plan plus rendered executable source.
package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/gfaurobert/specflow/internal/classify"
	"github.com/gfaurobert/specflow/internal/models"
	tmpl "github.com/gfaurobert/specflow/internal/template"
	"github.com/gfaurobert/specflow/internal/utils"
	"go.uber.org/zap"
)

// ScriptVersion is stamped into every generated script's metadata.
const ScriptVersion = "1.0.0"

// ScriptExt is the extension of generated script files.
const ScriptExt = ".ts"

const baselineStepMs int64 = 1000

// categoryWeightMs is added to the baseline for every step of a category.
var categoryWeightMs = map[models.Category]int64{
	models.CategoryNavigation:     3000,
	models.CategoryFormValidation: 1500,
	models.CategoryAccessibility:  1000,
	models.CategoryUIInteraction:  500,
}

// Generator turns criteria into TestScripts.
type Generator struct {
	logger   *zap.Logger
	rules    []classify.Rule
	now      func() time.Time
	settings tmpl.Settings
}

// Option configures a Generator.
type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithRules(rules []classify.Rule) Option {
	return func(g *Generator) { g.rules = rules }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSettings sets the runtime values embedded in rendered scripts.
func WithSettings(s tmpl.Settings) Option {
	return func(g *Generator) { g.settings = s }
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		logger: zap.NewNop(),
		rules:  classify.Rules,
		now:    time.Now,
		settings: tmpl.Settings{
			BaseURL:        "http://localhost:3000",
			AssetsRoot:     "tests/e2e/assets",
			StepTimeout:    30 * time.Second,
			MaxRetries:     2,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ClassifyAcceptanceCriteria returns the category for a criterion description.
func (g *Generator) ClassifyAcceptanceCriteria(description string) models.Category {
	return classify.With(g.rules, description)
}

// GenerateTestScript expands every testable criterion into steps and renders
// the script source. Criteria with Testable=false contribute no steps.
func (g *Generator) GenerateTestScript(criteria []models.AcceptanceCriterion, specName string) (*models.TestScript, error) {
	if err := utils.ValidateSpecName(specName); err != nil {
		return nil, err
	}

	var steps []models.TestStep
	seq := 0
	for _, c := range criteria {
		if !c.Testable {
			g.logger.Debug("skipping non-testable criterion", zap.String("criterion", c.ID))
			continue
		}
		steps = append(steps, g.expand(c, &seq)...)
	}
	if steps == nil {
		steps = []models.TestStep{}
	}

	script := &models.TestScript{
		FileName: specName + "-test" + ScriptExt,
		SpecName: specName,
		Steps:    steps,
		Metadata: models.ScriptMetadata{
			SpecName:            specName,
			GeneratedAt:         g.now().UTC(),
			Version:             ScriptVersion,
			TotalSteps:          len(steps),
			EstimatedDurationMs: EstimateDurationMs(steps),
		},
	}

	content, err := tmpl.RenderScript(tmpl.NewScriptContext(script, utils.SpecTitle(specName), g.settings))
	if err != nil {
		return nil, fmt.Errorf("rendering script for %s: %w", specName, err)
	}
	script.Content = content

	g.logger.Info("generated test script",
		zap.String("spec", specName),
		zap.Int("criteria", len(criteria)),
		zap.Int("steps", len(steps)),
		zap.Int64("estimatedDurationMs", script.Metadata.EstimatedDurationMs))
	return script, nil
}

// expand produces the primary step for c followed by its evidence
// screenshot step.
func (g *Generator) expand(c models.AcceptanceCriterion, seq *int) []models.TestStep {
	category := c.Category
	if category == "" {
		category = g.ClassifyAcceptanceCriteria(c.Description)
	}
	nextID := func() string {
		*seq++
		return fmt.Sprintf("step-%d", *seq)
	}
	evidence := "criterion-" + strings.ReplaceAll(c.ID, ".", "-")
	expected := strings.TrimSpace(c.Subject + " shall " + c.Behavior)

	primary := models.TestStep{
		ID:             nextID(),
		ExpectedResult: expected,
		ScreenshotName: evidence + "-action",
		Category:       category,
		CriterionID:    c.ID,
	}
	switch category {
	case models.CategoryNavigation:
		path := navigationPath(c.Behavior, c.Condition)
		primary.Action = models.Navigate(path)
		primary.Description = fmt.Sprintf("Navigate to %s", path)
	case models.CategoryFormValidation:
		sel := testIDSelector(selectorToken(formVerbs, "form", c.Condition, c.Behavior))
		primary.Action = models.Assert(sel, models.ValidationForm)
		primary.Description = fmt.Sprintf("Validate %s", sel)
	case models.CategoryAccessibility:
		sel := testIDSelector(selectorToken(focusVerbs, "button", c.Condition, c.Behavior))
		primary.Action = models.Assert(sel, models.ValidationAccessibility)
		primary.Description = fmt.Sprintf("Check accessibility of %s", sel)
	default:
		sel := testIDSelector(selectorToken(clickVerbs, "toggle", c.Condition, c.Behavior))
		primary.Action = models.Click(sel, nil)
		primary.Description = fmt.Sprintf("Click %s", sel)
	}
	primary.Description += " (" + c.ID + ")"

	shot := models.TestStep{
		ID:             nextID(),
		Description:    fmt.Sprintf("Capture evidence for criterion %s", c.ID),
		Action:         models.Screenshot(),
		ExpectedResult: "Screenshot captured",
		ScreenshotName: evidence,
		Category:       category,
		CriterionID:    c.ID,
	}
	return []models.TestStep{primary, shot}
}

// EstimateDurationMs sums a fixed baseline plus the category weight of each
// step.
func EstimateDurationMs(steps []models.TestStep) int64 {
	var total int64
	for _, s := range steps {
		total += baselineStepMs + categoryWeightMs[s.Category]
	}
	return total
}
