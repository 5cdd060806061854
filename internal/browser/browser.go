// Package browser is the boundary between the test runner and a real
// browser-automation backend.
package browser

import (
	"context"

	"github.com/gfaurobert/specflow/internal/models"
)

//go:generate go tool mockgen -source=browser.go -destination=mock_browser.go -package=browser

// ScreenshotOptions control a single capture.
type ScreenshotOptions struct {
	FullPage  bool
	Quality   int
	Format    string
	MaxWidth  int
	MaxHeight int
}

// Browser is a single automation session. Every call blocks until the
// backend has finished the operation or ctx is done.
type Browser interface {
	// Start launches the session. Calling Start on a started session is an error.
	Start(ctx context.Context) error
	// Close releases the session.
	Close() error
	// Snapshot returns a short textual description of the current page and
	// doubles as a liveness probe.
	Snapshot(ctx context.Context) (string, error)

	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string, opts models.InteractionOptions) error
	Type(ctx context.Context, selector, value string, opts models.InteractionOptions) error
	WaitFor(ctx context.Context, selector string) error
	ElementExists(ctx context.Context, selector string) (bool, error)
	Evaluate(ctx context.Context, expression string, result any) error
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
}
