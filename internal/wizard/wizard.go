// Package wizard collects project settings for `specflow init`.
package wizard

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/gfaurobert/specflow/internal/projectconfig"
	"github.com/gfaurobert/specflow/internal/utils"
	"golang.org/x/term"
)

// Answers holds all fields collected during the interactive wizard.
type Answers struct {
	BaseURL        string
	SpecsDir       string
	MaxRetries     int
	Headless       bool
	FullPage       bool
	StarterSpec    string
	StarterFeature string
}

const starterSpecTemplate = `# Requirements Document

## Introduction

{{ .Feature }} for the application under test.

## Requirements

### Requirement 1

**User Story:** As a user, I want {{ lower .Feature }}, so that I can complete my task.

#### Acceptance Criteria

1. WHEN the user opens the home page THEN the system SHALL display the main navigation
2. WHEN the user clicks the primary button THEN the system SHALL show the confirmation message
3. IF the user submits the form with an empty required field THEN the system SHALL display a validation error
`

// Run shows the init form prefilled from defaults.
func Run(in io.Reader, out io.Writer, defaults *projectconfig.ProjectConfig) (*Answers, error) {
	if defaults == nil {
		defaults = projectconfig.New()
	}
	var (
		baseURL     = defaults.Browser.BaseURL
		specsDir    = defaults.Paths.Specs
		retriesRaw  = strconv.Itoa(defaults.MaxRetries())
		headless    = defaults.Headless()
		fullPage    = defaults.Screenshot.FullPage != nil && *defaults.Screenshot.FullPage
		starterSpec string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Application URL").
				Description("Base URL relative navigation targets resolve against").
				Placeholder(projectconfig.DefaultBaseURL).
				Value(&baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Specs directory").
				Description("Folder holding <spec>/requirements.md").
				Placeholder(projectconfig.DefaultSpecsDir).
				Value(&specsDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("specs directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Retries per step").
				Description("Additional attempts after the first failure").
				Value(&retriesRaw).
				Validate(func(s string) error {
					_, err := parseRetries(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Run the browser headless?").
				Value(&headless),
			huh.NewConfirm().
				Title("Capture full-page screenshots?").
				Value(&fullPage),
			huh.NewInput().
				Title("Starter spec").
				Description("Optional spec name to scaffold a requirements.md for").
				Placeholder("user-login").
				Value(&starterSpec).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return utils.ValidateSpecName(strings.TrimSpace(s))
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	retries, err := parseRetries(retriesRaw)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(starterSpec)
	return &Answers{
		BaseURL:        strings.TrimSpace(baseURL),
		SpecsDir:       strings.TrimSpace(specsDir),
		MaxRetries:     retries,
		Headless:       headless,
		FullPage:       fullPage,
		StarterSpec:    name,
		StarterFeature: utils.SpecTitle(name),
	}, nil
}

// Defaults returns the answers `init --yes` uses.
func Defaults() *Answers {
	cfg := projectconfig.New()
	return &Answers{
		BaseURL:    cfg.Browser.BaseURL,
		SpecsDir:   cfg.Paths.Specs,
		MaxRetries: cfg.MaxRetries(),
		Headless:   true,
	}
}

// Apply copies the answers onto cfg.
func (a *Answers) Apply(cfg *projectconfig.ProjectConfig) {
	if a.BaseURL != "" {
		cfg.Browser.BaseURL = a.BaseURL
	}
	if a.SpecsDir != "" {
		cfg.Paths.Specs = a.SpecsDir
	}
	cfg.Browser.MaxRetries = utils.Ptr(a.MaxRetries)
	cfg.Browser.Headless = utils.Ptr(a.Headless)
	cfg.Screenshot.FullPage = utils.Ptr(a.FullPage)
}

// GenerateStarterSpec renders an EARS requirements.md for a new spec.
func GenerateStarterSpec(feature string) (string, error) {
	tmpl, err := template.New("starter").
		Funcs(template.FuncMap{"lower": strings.ToLower}).
		Parse(starterSpecTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	if strings.TrimSpace(feature) == "" {
		feature = "Example feature"
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, struct{ Feature string }{feature}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http(s) URL")
	}
	return nil
}

func parseRetries(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("retries must be a non-negative number")
	}
	return n, nil
}
