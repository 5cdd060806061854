package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gfaurobert/specflow/internal/browser"
	"github.com/gfaurobert/specflow/internal/hooks"
	"github.com/gfaurobert/specflow/internal/metrics"
	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/gfaurobert/specflow/internal/reporting"
	"github.com/gfaurobert/specflow/internal/runner"
	"github.com/gfaurobert/specflow/internal/session"
	"github.com/gfaurobert/specflow/internal/spinner"
	"github.com/gfaurobert/specflow/internal/telemetry"
	"github.com/gfaurobert/specflow/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	baseURL     string
	headless    bool
	maxRetries  int
	timeout     time.Duration
	junit       string
	metricsFile string
	noReport    bool
	noSession   bool
}

func newRunCommand(env *cliEnv) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [spec...]",
		Short: "Generate and execute test scripts against the application",
		Long: `Generate each spec's script, execute it in a browser session with
per-step retries and screenshots, store the result and regenerate the
markdown summary.

With no arguments every spec under the specs directory is run. The exit
code is 1 when any script failed and 2 when the run itself could not
complete.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyRunFlags(cmd, env, f)
			return runSpecs(cmd, env, args, f)
		},
	}

	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Base URL of the application under test")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run the browser without a window")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "Additional attempts per failing step")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-step timeout (e.g. 30s)")
	cmd.Flags().StringVar(&f.junit, "junit", "", "Also write a JUnit XML report to this path")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this path")
	cmd.Flags().BoolVar(&f.noReport, "no-report", false, "Do not regenerate the markdown summary")
	cmd.Flags().BoolVar(&f.noSession, "no-session-log", false, "Do not record the run timeline under the results directory")
	return cmd
}

// applyRunFlags overlays explicitly set flags on the loaded config.
func applyRunFlags(cmd *cobra.Command, env *cliEnv, f runFlags) {
	cfg := env.cfg
	if f.baseURL != "" {
		cfg.Browser.BaseURL = f.baseURL
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = utils.Ptr(f.headless)
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.Browser.MaxRetries = utils.Ptr(f.maxRetries)
	}
	if f.timeout > 0 {
		cfg.Browser.StepTimeout = f.timeout
	}
	if f.junit != "" {
		cfg.Output.JUnit = f.junit
	}
	if f.metricsFile != "" {
		cfg.Output.MetricsFile = f.metricsFile
	}
}

func runSpecs(cmd *cobra.Command, env *cliEnv, args []string, f runFlags) error {
	cfg, logger := env.cfg, env.logger
	docs, err := env.specDocs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, shutdown, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	store, err := env.resultStore()
	if err != nil {
		return err
	}
	defer store.Close()

	chrome := browser.NewChrome(browser.ChromeOptions{
		Headless:     cfg.Headless(),
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		ExecPath:     cfg.Browser.ExecPath,
	}, logger)
	collector := metrics.NewCollector()
	r := runner.New(chrome, env.screenshots(chrome), runner.Settings{
		BaseURL:     cfg.Browser.BaseURL,
		StepTimeout: cfg.Browser.StepTimeout,
		MaxRetries:  cfg.MaxRetries(),
	},
		runner.WithLogger(logger),
		runner.WithMetrics(collector),
		runner.WithTelemetry(tel),
	)

	rec, closeLog := openSessionLog(env, f.noSession)
	defer closeLog()
	r.OnProgress(rec.Listener())

	sp := spinner.Start(cmd.ErrOrStderr(), "Starting browser")
	defer sp.Stop()
	r.OnProgress(progressListener(sp))

	p := pipeline.New(pipeline.Config{
		ScriptsRoot: env.scriptsRoot(),
		Hooks:       cfg.Hooks,
		KeepResults: cfg.Output.KeepResults,
		JUnitPath:   resolveOptional(env, cfg.Output.JUnit),
		MetricsPath: resolveOptional(env, cfg.Output.MetricsFile),
		NoReport:    f.noReport,
	},
		pipeline.WithGenerator(env.generator()),
		pipeline.WithExecutor(r),
		pipeline.WithStore(store),
		pipeline.WithReporter(reporting.NewGenerator(env.reportPath(), reporting.WithLogger(logger))),
		pipeline.WithHooks(&hooks.Runner{Logger: logger}),
		pipeline.WithMetrics(collector),
		pipeline.WithLogger(logger),
	)

	started := time.Now()
	rec.Record(session.NewEvent(session.EventRunStart, session.RunStartData(cfg.Browser.BaseURL, len(docs))))
	out, err := p.Run(ctx, docs)
	sp.Stop()
	recordOutcome(rec, out, err, time.Since(started))
	if out != nil {
		w := cmd.OutOrStdout()
		printResults(w, out.Results)
		printErrors(cmd.ErrOrStderr(), out.Errors)
		if !f.noReport {
			fmt.Fprintf(w, "Report: %s\n", env.reportPath())
		}
	}
	if err != nil {
		return err
	}
	return runOutcomeError(out)
}

// runOutcomeError maps an outcome to the command result. Failed scripts take
// precedence over specs that could not be executed.
func runOutcomeError(out *pipeline.Outcome) error {
	var failed int
	for _, r := range out.Results {
		if r.OverallStatus == models.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		return &TestFailureError{Message: fmt.Sprintf("%d of %d spec(s) failed", failed, len(out.Results))}
	}
	if len(out.Results) == 0 && len(out.Errors) > 0 {
		return errors.New("no spec could be executed")
	}
	return nil
}

// openSessionLog returns a recorder writing to a new log under the results
// directory, or a discarding recorder when disabled or the log cannot be
// created.
func openSessionLog(env *cliEnv, disabled bool) (*session.Recorder, func()) {
	if disabled {
		return session.NewRecorder(nil, env.logger), func() {}
	}
	path := session.DefaultLogPath(filepath.Join(env.resultsDir(), sessionsDir), time.Now())
	l, err := session.NewJSONLogger(path)
	if err != nil {
		env.logger.Warn("session log disabled", zap.Error(err))
		return session.NewRecorder(nil, env.logger), func() {}
	}
	env.logger.Debug("recording session", zap.String("path", path))
	return session.NewRecorder(l, env.logger), func() {
		if err := l.Close(); err != nil {
			env.logger.Warn("closing session log", zap.Error(err))
		}
	}
}

func recordOutcome(rec *session.Recorder, out *pipeline.Outcome, runErr error, elapsed time.Duration) {
	var passed, failed, errs int
	if out != nil {
		for _, r := range out.Results {
			if r.OverallStatus == models.StatusFailed {
				failed++
			} else {
				passed++
			}
		}
		for _, e := range out.Errors {
			rec.Record(session.NewEvent(session.EventError, session.ErrorData(e, nil)))
		}
		errs = len(out.Errors)
	}
	if runErr != nil {
		rec.Record(session.NewEvent(session.EventError, session.ErrorData(runErr.Error(), nil)))
		errs++
	}
	rec.Record(session.NewEvent(session.EventRunComplete,
		session.RunCompleteData(passed+failed, passed, failed, errs, elapsed.Milliseconds())))
}

func progressListener(sp *spinner.Spinner) runner.ProgressListener {
	return func(ev runner.ProgressEvent) {
		switch ev.EventType {
		case runner.EventTestStart:
			sp.Update(fmt.Sprintf("%s: starting", ev.SpecName))
		case runner.EventStepStart:
			sp.Update(fmt.Sprintf("%s: step %d/%d %s", ev.SpecName, ev.StepNum, ev.TotalSteps, ev.StepID))
		case runner.EventTestComplete:
			sp.Update(fmt.Sprintf("%s: %s", ev.SpecName, ev.Status))
		}
	}
}

func resolveOptional(env *cliEnv, p string) string {
	if p == "" {
		return ""
	}
	return env.cfg.Resolve(p)
}
