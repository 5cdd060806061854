package main

import (
	"fmt"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/generate"
	"github.com/gfaurobert/specflow/internal/resultstore"
	"github.com/gfaurobert/specflow/internal/screenshot"
	tmpl "github.com/gfaurobert/specflow/internal/template"
)

func (e *cliEnv) specsRoot() string   { return e.cfg.Resolve(e.cfg.Paths.Specs) }
func (e *cliEnv) scriptsRoot() string { return e.cfg.Resolve(e.cfg.Paths.Scripts) }
func (e *cliEnv) assetsRoot() string  { return e.cfg.Resolve(e.cfg.Paths.Assets) }
func (e *cliEnv) reportPath() string  { return e.cfg.Resolve(e.cfg.Paths.Report) }
func (e *cliEnv) resultsDir() string  { return e.cfg.Resolve(e.cfg.Paths.Results) }

// specDocs resolves the spec arguments, or discovers every spec under the
// specs root when none are given.
func (e *cliEnv) specDocs(args []string) ([]analyzer.SpecDocument, error) {
	root := e.specsRoot()
	if len(args) == 0 {
		docs, err := analyzer.Discover(root)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no specs found under %s", root)
		}
		return docs, nil
	}

	seen := make(map[string]bool, len(args))
	docs := make([]analyzer.SpecDocument, 0, len(args))
	for _, arg := range args {
		doc, err := analyzer.Resolve(arg, root)
		if err != nil {
			return nil, err
		}
		if seen[doc.Name] {
			continue
		}
		seen[doc.Name] = true
		docs = append(docs, doc)
	}
	return docs, nil
}

func (e *cliEnv) generator() *generate.Generator {
	b := e.cfg.Browser
	return generate.New(
		generate.WithLogger(e.logger),
		generate.WithSettings(tmpl.Settings{
			BaseURL:        b.BaseURL,
			AssetsRoot:     e.assetsRoot(),
			StepTimeout:    b.StepTimeout,
			MaxRetries:     e.cfg.MaxRetries(),
			ViewportWidth:  b.WindowWidth,
			ViewportHeight: b.WindowHeight,
		}),
	)
}

func (e *cliEnv) screenshots(capturer screenshot.Capturer) *screenshot.Manager {
	s := e.cfg.Screenshot
	return screenshot.New(e.assetsRoot(), capturer,
		screenshot.WithLogger(e.logger),
		screenshot.WithDefaults(screenshot.Options{
			FullPage:  s.FullPage,
			Quality:   s.Quality,
			Format:    s.Format,
			MaxWidth:  s.MaxWidth,
			MaxHeight: s.MaxHeight,
		}),
	)
}

func (e *cliEnv) resultStore() (*resultstore.Store, error) {
	return resultstore.New(e.resultsDir(), resultstore.WithLogger(e.logger))
}
