package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gfaurobert/specflow/internal/analyzer"
	"github.com/gfaurobert/specflow/internal/generate"
	"github.com/gfaurobert/specflow/internal/hooks"
	"github.com/gfaurobert/specflow/internal/metrics"
	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/resultstore"
	"github.com/gfaurobert/specflow/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginSpec = `# Login

### Requirement 1

**User Story:** As a user, I want to sign in, so that I see my dashboard.

1. WHEN the user clicks the login button THEN the system SHALL display the dashboard
2. WHEN the user navigates to the settings page THEN the system SHALL show the profile form
`

const notesSpec = `# Notes

Background only, nothing to test here.
`

var t0 = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type fakeExecutor struct {
	fail      map[string]bool
	err       map[string]error
	executed  []string
	teardowns int
}

func (f *fakeExecutor) ExecuteTest(_ context.Context, script *models.TestScript, spec string) (*models.TestResult, error) {
	f.executed = append(f.executed, spec)
	if err := f.err[spec]; err != nil {
		return nil, err
	}
	r := &models.TestResult{RunID: "run-" + spec, SpecName: spec, TestScript: script, StartTime: t0, EndTime: t0.Add(time.Second)}
	for i, st := range script.Steps {
		status := models.StatusPassed
		if f.fail[spec] && i == 0 {
			status = models.StatusFailed
		}
		r.Steps = append(r.Steps, models.StepResult{StepID: st.ID, Description: st.Description, Status: status})
	}
	r.Finalize()
	return r, nil
}

func (f *fakeExecutor) TeardownBrowser() { f.teardowns++ }

type fakeReporter struct {
	results []*models.TestResult
	future  []models.FutureTest
	errs    []string
	err     error
}

func (f *fakeReporter) UpdateTestsSummary(results []*models.TestResult, future []models.FutureTest, errs []string) error {
	f.results, f.future, f.errs = results, future, errs
	return f.err
}

type hookCall struct {
	name string
	env  []string
}

type fakeHooks struct {
	calls  []hookCall
	failOn string
}

func (f *fakeHooks) Execute(_ context.Context, name string, _ []hooks.HookConfig, env ...string) error {
	f.calls = append(f.calls, hookCall{name: name, env: env})
	if name == f.failOn {
		return fmt.Errorf("hook %s failed", name)
	}
	return nil
}

func writeSpecs(t *testing.T, specs map[string]string) (string, []analyzer.SpecDocument) {
	t.Helper()
	root := t.TempDir()
	for name, body := range specs {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, analyzer.RequirementsFile), []byte(body), 0o644))
	}
	docs, err := analyzer.Discover(root)
	require.NoError(t, err)
	return root, docs
}

type harness struct {
	exec     *fakeExecutor
	reporter *fakeReporter
	hooks    *fakeHooks
	store    *resultstore.Store
	scripts  string
}

func newHarness(t *testing.T, cfg Config) (*Pipeline, *harness) {
	t.Helper()
	store, err := resultstore.New(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	h := &harness{
		exec:     &fakeExecutor{fail: map[string]bool{}, err: map[string]error{}},
		reporter: &fakeReporter{},
		hooks:    &fakeHooks{},
		store:    store,
		scripts:  filepath.Join(t.TempDir(), "generated"),
	}
	cfg.ScriptsRoot = h.scripts
	cfg.Hooks = hooks.HooksConfig{
		BeforeRun:  []hooks.HookConfig{{Command: "true"}},
		AfterRun:   []hooks.HookConfig{{Command: "true"}},
		BeforeSpec: []hooks.HookConfig{{Command: "true"}},
		AfterSpec:  []hooks.HookConfig{{Command: "true"}},
	}
	p := New(cfg,
		WithExecutor(h.exec),
		WithStore(store),
		WithReporter(h.reporter),
		WithHooks(h.hooks),
		WithGenerator(generate.New(generate.WithClock(func() time.Time { return t0 }))))
	return p, h
}

func TestRun_ExecutesStoresAndReports(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec, "notes": notesSpec})
	p, h := newHarness(t, Config{})

	out, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"login"}, h.exec.executed)
	assert.Equal(t, 1, h.exec.teardowns)
	require.Len(t, out.Results, 1)
	assert.False(t, out.Failed())
	assert.Empty(t, out.Errors)

	require.Len(t, out.Future, 1)
	assert.Equal(t, models.FutureTest{SpecName: "notes"}, out.Future[0])

	stored, err := h.store.Get("login", "run-login")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPassed, stored.OverallStatus)

	assert.FileExists(t, filepath.Join(h.scripts, "login", "login-test.ts"))
	assert.FileExists(t, generate.PlanPath(h.scripts, "login"))

	require.Len(t, h.reporter.results, 1)
	assert.Equal(t, out.Future, h.reporter.future)
}

func TestRun_HookOrderAndEnvironment(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{})
	h.exec.fail["login"] = true

	out, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.True(t, out.Failed())

	var names []string
	for _, c := range h.hooks.calls {
		names = append(names, c.name)
	}
	assert.Equal(t, []string{hooks.BeforeRun, hooks.BeforeSpec, hooks.AfterSpec, hooks.AfterRun}, names)
	assert.Equal(t, []string{"SPECFLOW_SPEC=login"}, h.hooks.calls[1].env)
	assert.Equal(t, []string{"SPECFLOW_SPEC=login", "SPECFLOW_STATUS=failed"}, h.hooks.calls[2].env)
}

func TestRun_BeforeRunHookAborts(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{})
	h.hooks.failOn = hooks.BeforeRun

	_, err := p.Run(context.Background(), docs)
	require.Error(t, err)
	assert.Empty(t, h.exec.executed)
	assert.Nil(t, h.reporter.results)
}

func TestRun_SessionFailureStopsRemainingSpecs(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"a-login": loginSpec, "b-login": loginSpec})
	p, h := newHarness(t, Config{})
	h.exec.err["a-login"] = fmt.Errorf("%w: starting browser: no chrome", runner.ErrSessionUnavailable)

	out, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"a-login"}, h.exec.executed)
	require.Len(t, out.Errors, 2)
	assert.Contains(t, out.Errors[0], "a-login: browser session unavailable")
	assert.Equal(t, "b-login: not executed: browser session unavailable", out.Errors[1])
	assert.Len(t, out.Future, 2)
	assert.Equal(t, out.Errors, h.reporter.errs)
}

func TestRun_OtherExecutionErrorsContinue(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"a-login": loginSpec, "b-login": loginSpec})
	p, h := newHarness(t, Config{})
	h.exec.err["a-login"] = errors.New("script is nil")

	out, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-login", "b-login"}, h.exec.executed)
	assert.Len(t, out.Results, 1)
	assert.Len(t, out.Errors, 1)
}

func TestRun_MergesStoredResultsForOtherSpecs(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec, "signup": loginSpec})
	p, h := newHarness(t, Config{})

	older := &models.TestResult{RunID: "old", SpecName: "signup", StartTime: t0.Add(-time.Hour), EndTime: t0.Add(-time.Hour),
		Steps: []models.StepResult{{StepID: "s", Status: models.StatusFailed}}}
	older.Finalize()
	require.NoError(t, h.store.Put(older))
	stale := &models.TestResult{RunID: "stale", SpecName: "login", StartTime: t0.Add(-time.Hour), EndTime: t0.Add(-time.Hour),
		Steps: []models.StepResult{{StepID: "s", Status: models.StatusFailed}}}
	stale.Finalize()
	require.NoError(t, h.store.Put(stale))

	_, err := p.Run(context.Background(), docs[:1])
	require.NoError(t, err)

	require.Len(t, h.reporter.results, 2)
	assert.Equal(t, "run-login", h.reporter.results[0].RunID)
	assert.Equal(t, "old", h.reporter.results[1].RunID)
}

func TestRun_PrunesOldResults(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{KeepResults: 1})
	old := &models.TestResult{RunID: "old", SpecName: "login", StartTime: t0.Add(-time.Hour)}
	old.Finalize()
	require.NoError(t, h.store.Put(old))

	_, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	runs, err := h.store.List("login")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-login", runs[0].RunID)
}

func TestRun_CancelledContextSkipsSpecs(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{})
	p.hooks = nil
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := p.Run(ctx, docs)
	require.NoError(t, err)
	assert.Empty(t, h.exec.executed)
	require.Len(t, out.Errors, 1)
	assert.True(t, strings.HasPrefix(out.Errors[0], "login: not executed"))
}

func TestReport_WritesJUnitAndMetrics(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	dir := t.TempDir()
	junit := filepath.Join(dir, "out", "junit.xml")
	prom := filepath.Join(dir, "out", "specflow.prom")
	p, _ := newHarness(t, Config{JUnitPath: junit, MetricsPath: prom})
	collector := metrics.NewCollector()
	collector.ObserveTest("login", "passed", time.Second)
	p.metrics = collector

	_, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	data, err := os.ReadFile(junit)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuite name="login"`)
	data, err = os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "specflow_tests_total")
}

func TestReport_NoReportSkipsEverything(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{NoReport: true})

	_, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Nil(t, h.reporter.results)
}

func TestReport_ErrorPropagates(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, h := newHarness(t, Config{})
	h.reporter.err = errors.New("Report generation failed: disk full")

	_, err := p.Run(context.Background(), docs)
	require.Error(t, err)
	assert.Equal(t, "Report generation failed: disk full", err.Error())
}

func TestPrepare_CountsTestableCriteria(t *testing.T) {
	_, docs := writeSpecs(t, map[string]string{"login": loginSpec})
	p, _ := newHarness(t, Config{})

	prep, err := p.Prepare(docs[0])
	require.NoError(t, err)
	assert.Len(t, prep.Criteria, 2)
	assert.Equal(t, 2, prep.TestableCount())
	assert.NotEmpty(t, prep.Script.Steps)
	require.NotNil(t, prep.Written)
}
