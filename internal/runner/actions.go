package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
	"go.uber.org/zap"
)

const readyStateExpr = "document.readyState"

// dispatch performs a single attempt of step's action, bounded by the step
// timeout or the action's own timeout option.
func (r *TestRunner) dispatch(ctx context.Context, step models.TestStep) error {
	action := step.Action
	switch action.Kind {
	case models.ActionNavigate:
		ctx, cancel := context.WithTimeout(ctx, r.settings.StepTimeout)
		defer cancel()
		return r.navigate(ctx, action.URL)

	case models.ActionClick:
		opts, err := action.Interaction()
		if err != nil {
			return err
		}
		if action.Selector == "" {
			return errors.New("click requires a selector")
		}
		ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(opts))
		defer cancel()
		return r.browser.Click(ctx, action.Selector, opts)

	case models.ActionType:
		opts, err := action.Interaction()
		if err != nil {
			return err
		}
		if action.Selector == "" {
			return errors.New("type requires a selector")
		}
		ctx, cancel := context.WithTimeout(ctx, r.timeoutFor(opts))
		defer cancel()
		return r.browser.Type(ctx, action.Selector, action.Value, opts)

	case models.ActionWait:
		if action.Selector == "" {
			return r.sleep(ctx, time.Duration(action.DurationMs)*time.Millisecond)
		}
		ctx, cancel := context.WithTimeout(ctx, r.settings.StepTimeout)
		defer cancel()
		if err := r.browser.WaitFor(ctx, action.Selector); err != nil {
			return fmt.Errorf("waiting for %s: %w", action.Selector, err)
		}
		return nil

	case models.ActionAssert:
		ctx, cancel := context.WithTimeout(ctx, r.settings.StepTimeout)
		defer cancel()
		if !r.ValidateResult(ctx, step) {
			return fmt.Errorf("assertion failed: %s (%s) not found", action.Selector, validationKind(action))
		}
		return nil

	case models.ActionScreenshot:
		return nil

	default:
		return fmt.Errorf("unsupported action type %q", action.Kind)
	}
}

// ValidateResult reports whether the element an assertion step targets is
// present. It never changes page state.
func (r *TestRunner) ValidateResult(ctx context.Context, step models.TestStep) bool {
	selector := step.Action.Selector
	if selector == "" {
		return false
	}
	exists, err := r.browser.ElementExists(ctx, selector)
	if err != nil {
		r.logger.Debug("existence check failed", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return exists
}

// navigate loads target and polls until the document has finished loading.
func (r *TestRunner) navigate(ctx context.Context, target string) error {
	url := r.ResolveURL(target)
	if err := r.browser.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	for {
		var state string
		if err := r.browser.Evaluate(ctx, readyStateExpr, &state); err != nil {
			return fmt.Errorf("checking page readiness: %w", err)
		}
		if state == "complete" {
			return nil
		}
		if err := r.sleep(ctx, r.settings.PollInterval); err != nil {
			return fmt.Errorf("waiting for %s to load: %w", url, err)
		}
	}
}

func (r *TestRunner) timeoutFor(opts models.InteractionOptions) time.Duration {
	if opts.TimeoutMs > 0 {
		return time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	return r.settings.StepTimeout
}

func validationKind(a models.Action) string {
	if a.Validation == "" {
		return models.ValidationExists
	}
	return a.Validation
}
