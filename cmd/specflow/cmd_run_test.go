package main

import (
	"errors"
	"testing"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/gfaurobert/specflow/internal/projectconfig"
	"github.com/gfaurobert/specflow/internal/runner"
	"github.com/gfaurobert/specflow/internal/spinner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplyRunFlags(t *testing.T) {
	env := &cliEnv{cfg: projectconfig.New(), logger: zap.NewNop()}
	cmd := newRunCommand(env)
	require.NoError(t, cmd.ParseFlags([]string{
		"--base-url", "http://app.test:8080",
		"--headless=false",
		"--max-retries", "0",
		"--timeout", "5s",
		"--junit", "out/junit.xml",
	}))

	var f runFlags
	f.baseURL, _ = cmd.Flags().GetString("base-url")
	f.headless, _ = cmd.Flags().GetBool("headless")
	f.maxRetries, _ = cmd.Flags().GetInt("max-retries")
	f.timeout, _ = cmd.Flags().GetDuration("timeout")
	f.junit, _ = cmd.Flags().GetString("junit")
	applyRunFlags(cmd, env, f)

	cfg := env.cfg
	assert.Equal(t, "http://app.test:8080", cfg.Browser.BaseURL)
	assert.False(t, cfg.Headless())
	assert.Equal(t, 0, cfg.MaxRetries())
	assert.Equal(t, 5*time.Second, cfg.Browser.StepTimeout)
	assert.Equal(t, "out/junit.xml", cfg.Output.JUnit)
	assert.Empty(t, cfg.Output.MetricsFile)
}

func TestApplyRunFlags_UnsetKeepsConfig(t *testing.T) {
	env := &cliEnv{cfg: projectconfig.New(), logger: zap.NewNop()}
	cmd := newRunCommand(env)
	require.NoError(t, cmd.ParseFlags(nil))
	applyRunFlags(cmd, env, runFlags{headless: true})

	assert.Equal(t, projectconfig.DefaultBaseURL, env.cfg.Browser.BaseURL)
	assert.Equal(t, projectconfig.DefaultMaxRetries, env.cfg.MaxRetries())
	assert.True(t, env.cfg.Headless())
}

func TestRunOutcomeError(t *testing.T) {
	passed := &models.TestResult{SpecName: "a", OverallStatus: models.StatusPassed}
	failed := &models.TestResult{SpecName: "b", OverallStatus: models.StatusFailed}

	tests := []struct {
		name        string
		out         *pipeline.Outcome
		wantErr     bool
		wantFailure bool
	}{
		{name: "all passed", out: &pipeline.Outcome{Results: []*models.TestResult{passed}}},
		{name: "one failed", out: &pipeline.Outcome{Results: []*models.TestResult{passed, failed}}, wantErr: true, wantFailure: true},
		{name: "nothing executed", out: &pipeline.Outcome{Errors: []string{"a: not executed"}}, wantErr: true},
		{name: "partial errors", out: &pipeline.Outcome{Results: []*models.TestResult{passed}, Errors: []string{"b: boom"}}},
		{name: "failure wins over errors", out: &pipeline.Outcome{Results: []*models.TestResult{failed}, Errors: []string{"c: boom"}}, wantErr: true, wantFailure: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runOutcomeError(tt.out)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var tf *TestFailureError
			assert.Equal(t, tt.wantFailure, errors.As(err, &tf))
		})
	}
}

func TestRunCommand_NoSpecs(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := runCLI(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no specs found")
}

func TestProgressListener_ToleratesSilentSpinner(t *testing.T) {
	sp := spinner.Start(&nopWriter{}, "starting")
	listen := progressListener(sp)
	assert.NotPanics(t, func() {
		listen(runner.ProgressEvent{EventType: runner.EventTestStart, SpecName: "login"})
		listen(runner.ProgressEvent{EventType: runner.EventStepStart, SpecName: "login", StepNum: 1, TotalSteps: 2, StepID: "step-1"})
		listen(runner.ProgressEvent{EventType: runner.EventTestComplete, SpecName: "login", Status: models.StatusPassed})
	})
	sp.Stop()
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
