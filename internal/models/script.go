package models

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// ActionKind is the discriminator of an Action.
type ActionKind string

const (
	ActionNavigate   ActionKind = "navigate"
	ActionClick      ActionKind = "click"
	ActionType       ActionKind = "type"
	ActionWait       ActionKind = "wait"
	ActionAssert     ActionKind = "assert"
	ActionScreenshot ActionKind = "screenshot"
)

// Validation kinds understood by assert actions.
const (
	ValidationExists        = "exists"
	ValidationForm          = "validation"
	ValidationAccessibility = "accessibility"
)

// Action is a tagged variant; which fields are meaningful depends on Kind.
//
//	navigate   URL
//	click      Selector, Options
//	type       Selector, Value, Options
//	wait       Selector or DurationMs
//	assert     Selector, Validation
//	screenshot (none)
type Action struct {
	Kind       ActionKind     `json:"type"`
	URL        string         `json:"url,omitempty"`
	Selector   string         `json:"selector,omitempty"`
	Value      string         `json:"value,omitempty"`
	DurationMs int64          `json:"durationMs,omitempty"`
	Validation string         `json:"validation,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

func Navigate(url string) Action { return Action{Kind: ActionNavigate, URL: url} }

func Click(selector string, options map[string]any) Action {
	return Action{Kind: ActionClick, Selector: selector, Options: options}
}

func TypeText(selector, value string, options map[string]any) Action {
	return Action{Kind: ActionType, Selector: selector, Value: value, Options: options}
}

func WaitFor(selector string) Action { return Action{Kind: ActionWait, Selector: selector} }

func WaitDuration(d time.Duration) Action {
	return Action{Kind: ActionWait, DurationMs: d.Milliseconds()}
}

func Assert(selector, validation string) Action {
	return Action{Kind: ActionAssert, Selector: selector, Validation: validation}
}

func Screenshot() Action { return Action{Kind: ActionScreenshot} }

// InteractionOptions are the typed form of Action.Options for click and type.
type InteractionOptions struct {
	TimeoutMs int64 `mapstructure:"timeout"`
	DelayMs   int64 `mapstructure:"delay"`
	Clear     bool  `mapstructure:"clear"`
	Force     bool  `mapstructure:"force"`
}

// Interaction decodes Options, rejecting unknown keys.
func (a Action) Interaction() (InteractionOptions, error) {
	var opts InteractionOptions
	if len(a.Options) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return opts, err
	}
	if err := dec.Decode(a.Options); err != nil {
		return opts, fmt.Errorf("decoding %s options: %w", a.Kind, err)
	}
	return opts, nil
}

// TestStep is one unit of the structured plan the runner drives.
type TestStep struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	Action         Action   `json:"action"`
	ExpectedResult string   `json:"expectedResult"`
	ScreenshotName string   `json:"screenshotName,omitempty"`
	Category       Category `json:"category"`
	CriterionID    string   `json:"criterionId,omitempty"`
}

// ScriptMetadata describes a generated script.
type ScriptMetadata struct {
	SpecName            string    `json:"specName"`
	GeneratedAt         time.Time `json:"generatedAt"`
	Version             string    `json:"version"`
	TotalSteps          int       `json:"totalSteps"`
	EstimatedDurationMs int64     `json:"estimatedDurationMs"`
}

// EstimatedDuration returns the metadata estimate as a time.Duration.
func (m ScriptMetadata) EstimatedDuration() time.Duration {
	return time.Duration(m.EstimatedDurationMs) * time.Millisecond
}

// TestScript pairs the rendered executable source with the structured plan.
// Steps is authoritative; Content is derived from it.
type TestScript struct {
	FileName string         `json:"fileName"`
	SpecName string         `json:"specName"`
	Content  string         `json:"-"`
	Steps    []TestStep     `json:"steps"`
	Metadata ScriptMetadata `json:"metadata"`
}
