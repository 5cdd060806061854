// Package pipeline chains analysis, script generation, execution, result
// storage and reporting for a set of specs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/generate"
	"github.com/gfaurobert/specflow/internal/hooks"
	"github.com/gfaurobert/specflow/internal/metrics"
	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/reporting"
	"github.com/gfaurobert/specflow/internal/runner"
	"go.uber.org/zap"
)

// Executor runs one script. *runner.TestRunner satisfies it.
type Executor interface {
	ExecuteTest(ctx context.Context, script *models.TestScript, specName string) (*models.TestResult, error)
	TeardownBrowser()
}

// ResultStore persists results. *resultstore.Store satisfies it.
type ResultStore interface {
	Put(r *models.TestResult) error
	Latest() ([]*models.TestResult, error)
	Prune(spec string, keep int) (int, error)
}

// Reporter writes the markdown summary. *reporting.Generator satisfies it.
type Reporter interface {
	UpdateTestsSummary(results []*models.TestResult, future []models.FutureTest, errs []string) error
}

// HookRunner runs lifecycle hooks. *hooks.Runner satisfies it.
type HookRunner interface {
	Execute(ctx context.Context, name string, hooks []hooks.HookConfig, env ...string) error
}

// Config holds the paths and switches of a pipeline run.
type Config struct {
	ScriptsRoot string
	Hooks       hooks.HooksConfig
	KeepResults int
	JUnitPath   string
	MetricsPath string
	NoReport    bool
}

// Prepared is one spec taken through analysis and generation.
type Prepared struct {
	Doc          analyzer.SpecDocument
	Requirements []models.Requirement
	Criteria     []models.AcceptanceCriterion
	Script       *models.TestScript
	Written      *generate.Written
}

// TestableCount is the number of criteria that produced steps.
func (p *Prepared) TestableCount() int {
	n := 0
	for _, c := range p.Criteria {
		if c.Testable {
			n++
		}
	}
	return n
}

// Outcome is what a Run produced.
type Outcome struct {
	Results []*models.TestResult
	Future  []models.FutureTest
	Errors  []string
}

// Failed reports whether any executed script failed.
func (o *Outcome) Failed() bool {
	for _, r := range o.Results {
		if r.OverallStatus == models.StatusFailed {
			return true
		}
	}
	return false
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg       Config
	analyzer  *analyzer.Analyzer
	generator *generate.Generator
	executor  Executor
	store     ResultStore
	reporter  Reporter
	hooks     HookRunner
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithAnalyzer(a *analyzer.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

func WithGenerator(g *generate.Generator) Option {
	return func(p *Pipeline) { p.generator = g }
}

func WithExecutor(e Executor) Option {
	return func(p *Pipeline) { p.executor = e }
}

func WithStore(s ResultStore) Option {
	return func(p *Pipeline) { p.store = s }
}

func WithReporter(r Reporter) Option {
	return func(p *Pipeline) { p.reporter = r }
}

func WithHooks(h HookRunner) Option {
	return func(p *Pipeline) { p.hooks = h }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline. The executor, store, reporter and hooks are
// optional; stages without one are skipped.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	if p.analyzer == nil {
		p.analyzer = analyzer.New(analyzer.WithLogger(p.logger))
	}
	if p.generator == nil {
		p.generator = generate.New(generate.WithLogger(p.logger))
	}
	return p
}

// Analyze parses one spec document.
func (p *Pipeline) Analyze(doc analyzer.SpecDocument) (*Prepared, error) {
	reqs, err := p.analyzer.ParseFile(doc.Path)
	if err != nil {
		return nil, err
	}
	return &Prepared{Doc: doc, Requirements: reqs, Criteria: analyzer.Flatten(reqs)}, nil
}

// Prepare analyzes doc, generates its script and writes the script and step
// plan under the scripts root.
func (p *Pipeline) Prepare(doc analyzer.SpecDocument) (*Prepared, error) {
	prep, err := p.Analyze(doc)
	if err != nil {
		return nil, err
	}
	script, err := p.generator.GenerateTestScript(prep.Criteria, doc.Name)
	if err != nil {
		return nil, err
	}
	prep.Script = script
	if p.cfg.ScriptsRoot != "" {
		written, err := generate.WriteScript(p.cfg.ScriptsRoot, script)
		if err != nil {
			return nil, err
		}
		prep.Written = written
	}
	return prep, nil
}

// Run prepares and executes every doc, stores the results and regenerates
// the report. Per-spec problems are collected in Outcome.Errors; the returned
// error is reserved for failed hooks and report generation.
func (p *Pipeline) Run(ctx context.Context, docs []analyzer.SpecDocument) (*Outcome, error) {
	if p.executor == nil {
		return nil, fmt.Errorf("pipeline: no executor configured")
	}
	if err := p.runHooks(ctx, hooks.BeforeRun, p.cfg.Hooks.BeforeRun); err != nil {
		return nil, err
	}
	defer p.executor.TeardownBrowser()

	out := &Outcome{}
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: not executed: %v", doc.Name, err))
			continue
		}

		result, err := p.runSpec(ctx, doc, out)
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", doc.Name, err))
			p.logger.Error("spec failed to execute", zap.String("spec", doc.Name), zap.Error(err))
			if errors.Is(err, runner.ErrSessionUnavailable) {
				for _, rest := range docs[i+1:] {
					out.Errors = append(out.Errors, fmt.Sprintf("%s: not executed: browser session unavailable", rest.Name))
				}
				break
			}
			continue
		}
		if result != nil {
			out.Results = append(out.Results, result)
		}
	}

	if err := p.Report(ctx, docs, out); err != nil {
		return out, err
	}
	if err := p.runHooks(ctx, hooks.AfterRun, p.cfg.Hooks.AfterRun); err != nil {
		return out, err
	}
	return out, nil
}

// runSpec returns a nil result without error for specs that have nothing
// to execute; they are recorded as future tests.
func (p *Pipeline) runSpec(ctx context.Context, doc analyzer.SpecDocument, out *Outcome) (*models.TestResult, error) {
	prep, err := p.Prepare(doc)
	if err != nil {
		return nil, err
	}
	if len(prep.Script.Steps) == 0 {
		p.logger.Info("no testable criteria, skipping execution", zap.String("spec", doc.Name))
		return nil, nil
	}

	env := "SPECFLOW_SPEC=" + doc.Name
	if err := p.runHooks(ctx, hooks.BeforeSpec, p.cfg.Hooks.BeforeSpec, env); err != nil {
		return nil, err
	}

	result, err := p.executor.ExecuteTest(ctx, prep.Script, doc.Name)
	if err != nil {
		return nil, err
	}

	if p.store != nil {
		if err := p.store.Put(result); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s: storing result: %v", doc.Name, err))
		} else if p.cfg.KeepResults > 0 {
			if _, err := p.store.Prune(doc.Name, p.cfg.KeepResults); err != nil {
				p.logger.Warn("pruning results", zap.String("spec", doc.Name), zap.Error(err))
			}
		}
	}

	status := "SPECFLOW_STATUS=" + string(result.OverallStatus)
	if err := p.runHooks(ctx, hooks.AfterSpec, p.cfg.Hooks.AfterSpec, env, status); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", doc.Name, err))
	}
	return result, nil
}

// Report merges fresh results over the newest stored result of every other
// spec, lists discovered specs without results as future tests, and writes
// the markdown report plus the optional JUnit and metrics files.
func (p *Pipeline) Report(ctx context.Context, docs []analyzer.SpecDocument, out *Outcome) error {
	if p.cfg.NoReport {
		return nil
	}
	merged, err := p.merge(out.Results)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("loading stored results: %v", err))
	}

	have := make(map[string]bool, len(merged))
	for _, r := range merged {
		have[r.SpecName] = true
	}
	out.Future = nil
	for _, doc := range docs {
		if have[doc.Name] {
			continue
		}
		ft := models.FutureTest{SpecName: doc.Name}
		if prep, err := p.Analyze(doc); err == nil {
			ft.CriteriaCount = len(prep.Criteria)
			ft.TestableCount = prep.TestableCount()
		}
		out.Future = append(out.Future, ft)
	}

	if p.reporter != nil {
		if err := p.reporter.UpdateTestsSummary(merged, out.Future, out.Errors); err != nil {
			return err
		}
	}
	if p.cfg.JUnitPath != "" {
		if err := reporting.WriteJUnitXML(merged, p.cfg.JUnitPath); err != nil {
			return fmt.Errorf("writing JUnit report: %w", err)
		}
	}
	if p.cfg.MetricsPath != "" && p.metrics != nil {
		if err := p.metrics.Write(p.cfg.MetricsPath); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) merge(fresh []*models.TestResult) ([]*models.TestResult, error) {
	ran := make(map[string]bool, len(fresh))
	for _, r := range fresh {
		ran[r.SpecName] = true
	}
	merged := append([]*models.TestResult{}, fresh...)

	var err error
	if p.store != nil {
		var stored []*models.TestResult
		stored, err = p.store.Latest()
		for _, r := range stored {
			if !ran[r.SpecName] {
				merged = append(merged, r)
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].SpecName < merged[j].SpecName })
	return merged, err
}

func (p *Pipeline) runHooks(ctx context.Context, name string, hs []hooks.HookConfig, env ...string) error {
	if p.hooks == nil || len(hs) == 0 {
		return nil
	}
	p.logger.Debug("running hooks", zap.String("hook", name), zap.Int("count", len(hs)))
	return p.hooks.Execute(ctx, name, hs, env...)
}
