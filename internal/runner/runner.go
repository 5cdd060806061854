// Package runner drives a structured step plan against a live browser
// session, retrying failed actions and capturing screenshot evidence after
// every step.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gfaurobert/specflow/internal/browser"
	"github.com/gfaurobert/specflow/internal/metrics"
	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/screenshot"
	"github.com/gfaurobert/specflow/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionUnavailable is returned when the browser session cannot be
// started or fails its liveness probe.
var ErrSessionUnavailable = errors.New("browser session unavailable")

const (
	DefaultStepTimeout  = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultPollInterval = 250 * time.Millisecond
)

// Settings are the plain configuration values the runner consumes.
type Settings struct {
	BaseURL      string
	StepTimeout  time.Duration
	MaxRetries   int
	PollInterval time.Duration
}

// DefaultSettings returns the built-in runner settings.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:      "http://localhost:3000",
		StepTimeout:  DefaultStepTimeout,
		MaxRetries:   DefaultMaxRetries,
		PollInterval: DefaultPollInterval,
	}
}

func (s Settings) withDefaults() Settings {
	if s.StepTimeout <= 0 {
		s.StepTimeout = DefaultStepTimeout
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	return s
}

// Screenshotter stores step evidence. *screenshot.Manager satisfies it.
type Screenshotter interface {
	Capture(ctx context.Context, stepID, specName string, opts *screenshot.Options) (*screenshot.Info, error)
	CaptureError(ctx context.Context, stepID, specName, errorMessage string) (*screenshot.Info, error)
}

// RetryError is the failure recorded for a step whose every attempt failed.
type RetryError struct {
	Retries int
	Err     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("Failed after %d retries: %v", e.Retries, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// TestRunner owns one browser session and executes scripts on it, one at a
// time.
type TestRunner struct {
	browser  browser.Browser
	shots    Screenshotter
	settings Settings

	logger    *zap.Logger
	metrics   *metrics.Collector
	telemetry *telemetry.Telemetry
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	newRunID  func() string

	sessionMu sync.Mutex
	ready     bool

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// Option configures a TestRunner.
type Option func(*TestRunner)

func WithLogger(l *zap.Logger) Option {
	return func(r *TestRunner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(r *TestRunner) { r.metrics = c }
}

func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(r *TestRunner) { r.telemetry = t }
}

func WithClock(now func() time.Time) Option {
	return func(r *TestRunner) { r.now = now }
}

// WithSleep replaces the context-aware sleep used for duration waits and
// readiness polling.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(r *TestRunner) { r.sleep = sleep }
}

func WithRunID(newID func() string) Option {
	return func(r *TestRunner) { r.newRunID = newID }
}

// New creates a runner for the given session.
func New(b browser.Browser, shots Screenshotter, settings Settings, opts ...Option) *TestRunner {
	r := &TestRunner{
		browser:  b,
		shots:    shots,
		settings: settings.withDefaults(),
		logger:   zap.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
		newRunID: uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Settings returns the effective settings.
func (r *TestRunner) Settings() Settings { return r.settings }

// SetupBrowser starts the session and probes it once. It is a no-op when the
// session is already ready.
func (r *TestRunner) SetupBrowser(ctx context.Context) error {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	if r.ready {
		r.logger.Debug("browser already initialized")
		return nil
	}
	if err := r.browser.Start(ctx); err != nil {
		return fmt.Errorf("%w: starting browser: %w", ErrSessionUnavailable, err)
	}
	title, err := r.browser.Snapshot(ctx)
	if err != nil {
		if closeErr := r.browser.Close(); closeErr != nil {
			r.logger.Warn("closing browser after failed probe", zap.Error(closeErr))
		}
		return fmt.Errorf("%w: liveness probe: %w", ErrSessionUnavailable, err)
	}
	r.ready = true
	r.logger.Info("browser ready", zap.String("page", title))
	return nil
}

// TeardownBrowser releases the session. Close errors are logged, never
// returned, and the runner can be set up again afterwards.
func (r *TestRunner) TeardownBrowser() {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	if !r.ready {
		return
	}
	if err := r.browser.Close(); err != nil {
		r.logger.Warn("closing browser", zap.Error(err))
	}
	r.ready = false
	r.logger.Debug("browser closed")
}

// Ready reports whether the session is initialized.
func (r *TestRunner) Ready() bool {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()
	return r.ready
}

// ExecuteTest runs every step of script in order. A session that cannot be
// set up fails the call with no result; step failures never do. Steps not
// reached because ctx was cancelled are recorded as skipped.
func (r *TestRunner) ExecuteTest(ctx context.Context, script *models.TestScript, specName string) (*models.TestResult, error) {
	if script == nil {
		return nil, errors.New("no test script provided")
	}
	if specName == "" {
		specName = script.SpecName
	}
	if err := r.SetupBrowser(ctx); err != nil {
		return nil, err
	}

	start := r.now()
	result := &models.TestResult{
		RunID:      r.newRunID(),
		SpecName:   specName,
		TestScript: script,
		Steps:      make([]models.StepResult, 0, len(script.Steps)),
		StartTime:  start,
	}

	testCtx, span := r.telemetry.StartSpan(ctx, "specflow.test", map[string]string{
		"spec":        specName,
		"run.id":      result.RunID,
		"steps.total": strconv.Itoa(len(script.Steps)),
	})

	total := len(script.Steps)
	r.notifyProgress(ProgressEvent{EventType: EventTestStart, SpecName: specName, TotalSteps: total})
	r.logger.Info("executing test", zap.String("spec", specName), zap.Int("steps", total))

	for i, step := range script.Steps {
		var sr models.StepResult
		if err := testCtx.Err(); err != nil {
			sr = models.StepResult{
				StepID:       step.ID,
				Description:  step.Description,
				Status:       models.StatusSkipped,
				ErrorMessage: fmt.Sprintf("not executed: %v", err),
				Timestamp:    r.now(),
			}
		} else {
			r.notifyProgress(ProgressEvent{EventType: EventStepStart, SpecName: specName, StepID: step.ID, StepNum: i + 1, TotalSteps: total})
			sr = r.executeStep(testCtx, specName, step)
		}
		result.Steps = append(result.Steps, sr)
		r.notifyProgress(ProgressEvent{
			EventType:  EventStepComplete,
			SpecName:   specName,
			StepID:     step.ID,
			StepNum:    i + 1,
			TotalSteps: total,
			Status:     sr.Status,
			DurationMs: sr.ExecutionTimeMs,
			Details:    map[string]any{"error": sr.ErrorMessage, "screenshot": sr.Screenshot},
		})
	}

	result.EndTime = r.now()
	result.ExecutionTimeMs = result.EndTime.Sub(start).Milliseconds()
	result.Finalize()

	duration := result.EndTime.Sub(start)
	r.metrics.ObserveTest(specName, string(result.OverallStatus), duration)
	var spanErr error
	if result.OverallStatus == models.StatusFailed {
		spanErr = errors.New("test failed")
	}
	r.telemetry.EndSpan(span, string(result.OverallStatus), spanErr, map[string]string{
		"duration_ms": strconv.FormatInt(result.ExecutionTimeMs, 10),
		"screenshots": strconv.Itoa(len(result.Screenshots)),
	})

	r.notifyProgress(ProgressEvent{
		EventType:  EventTestComplete,
		SpecName:   specName,
		TotalSteps: total,
		Status:     result.OverallStatus,
		DurationMs: result.ExecutionTimeMs,
	})
	r.logger.Info("test finished",
		zap.String("spec", specName),
		zap.String("status", string(result.OverallStatus)),
		zap.Int64("duration_ms", result.ExecutionTimeMs))
	return result, nil
}

func (r *TestRunner) executeStep(ctx context.Context, specName string, step models.TestStep) models.StepResult {
	start := r.now()
	stepCtx, span := r.telemetry.StartSpan(ctx, "specflow.step", map[string]string{
		"spec":    specName,
		"step.id": step.ID,
		"action":  string(step.Action.Kind),
	})

	sr := models.StepResult{
		StepID:      step.ID,
		Description: step.Description,
		Timestamp:   start,
	}
	log := r.logger.With(zap.String("spec", specName), zap.String("step", step.ID))

	var err error
	if step.Action.Kind == models.ActionScreenshot {
		sr.Attempts = 1
		sr.Status = models.StatusPassed
		sr.Screenshot = r.CaptureScreenshot(stepCtx, step.ID, specName)
	} else {
		sr.Attempts, err = r.runWithRetries(stepCtx, step, log)
		if err != nil {
			sr.Status = models.StatusFailed
			sr.ErrorMessage = err.Error()
			sr.Screenshot = r.captureErrorScreenshot(stepCtx, step.ID, specName, sr.ErrorMessage)
			log.Warn("step failed", zap.Int("attempts", sr.Attempts), zap.Error(err))
		} else {
			sr.Status = models.StatusPassed
			sr.Screenshot = r.CaptureScreenshot(stepCtx, step.ID, specName)
			log.Debug("step passed", zap.Int("attempts", sr.Attempts))
		}
	}

	elapsed := r.now().Sub(start)
	sr.ExecutionTimeMs = elapsed.Milliseconds()
	r.metrics.ObserveStep(specName, string(step.Action.Kind), string(sr.Status), sr.Attempts, elapsed)
	r.telemetry.EndSpan(span, string(sr.Status), err, map[string]string{
		"step.attempts": strconv.Itoa(sr.Attempts),
	})
	return sr
}

// runWithRetries makes up to 1+MaxRetries attempts with no delay between
// them. It stops early once ctx is done.
func (r *TestRunner) runWithRetries(ctx context.Context, step models.TestStep, log *zap.Logger) (int, error) {
	maxAttempts := 1 + r.settings.MaxRetries
	var last error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		last = r.dispatch(ctx, step)
		if last == nil {
			return attempts, nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempts < maxAttempts {
			log.Debug("retrying step", zap.Int("attempt", attempts), zap.Error(last))
		}
	}
	return attempts, &RetryError{Retries: attempts - 1, Err: last}
}

// CaptureScreenshot stores an evidence screenshot and returns its path, or
// "" when the capture could not be stored.
func (r *TestRunner) CaptureScreenshot(ctx context.Context, stepID, specName string) string {
	ctx, cancel := context.WithTimeout(ctx, r.settings.StepTimeout)
	defer cancel()

	info, err := r.shots.Capture(ctx, stepID, specName, nil)
	if err != nil {
		r.logger.Warn("screenshot failed", zap.String("spec", specName), zap.String("step", stepID), zap.Error(err))
		return ""
	}
	return info.Path
}

func (r *TestRunner) captureErrorScreenshot(ctx context.Context, stepID, specName, message string) string {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.settings.StepTimeout)
	defer cancel()

	info, err := r.shots.CaptureError(ctx, stepID, specName, message)
	if err != nil {
		r.logger.Warn("error screenshot failed", zap.String("spec", specName), zap.String("step", stepID), zap.Error(err))
		return ""
	}
	return info.Path
}

// ResolveURL joins a relative path onto the base URL. Absolute URLs pass
// through unchanged.
func (r *TestRunner) ResolveURL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || r.settings.BaseURL == "" {
		return target
	}
	if target == "" {
		target = "/"
	}
	return strings.TrimRight(r.settings.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
