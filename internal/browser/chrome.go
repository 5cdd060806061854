package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/gfaurobert/specflow/internal/models"
	"go.uber.org/zap"
)

// ErrNotStarted is returned by every operation on a Chrome that has not been
// started or has been closed.
var ErrNotStarted = errors.New("browser session not started")

// ChromeOptions configure the headless Chrome allocator.
type ChromeOptions struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	ExecPath     string
	UserAgent    string
}

// DefaultChromeOptions returns a headless 1920x1080 configuration.
func DefaultChromeOptions() ChromeOptions {
	return ChromeOptions{Headless: true, WindowWidth: 1920, WindowHeight: 1080}
}

// Chrome drives a local Chrome/Chromium through the DevTools protocol.
type Chrome struct {
	opts   ChromeOptions
	logger *zap.Logger

	mu            sync.Mutex
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

var _ Browser = (*Chrome)(nil)

// NewChrome creates an unstarted session.
func NewChrome(opts ChromeOptions, logger *zap.Logger) *Chrome {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}
	return &Chrome{opts: opts, logger: logger}
}

func (c *Chrome) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return errors.New("browser session already started")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(c.opts.WindowWidth, c.opts.WindowHeight),
	)
	if c.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.opts.ExecPath))
	}
	if c.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.opts.UserAgent))
	}

	// The session outlives the caller's ctx; ctx only bounds the launch.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(c.logger.Sugar().Debugf),
		chromedp.WithErrorf(c.logger.Sugar().Warnf))
	c.ctx, c.cancelBrowser, c.cancelAlloc = browserCtx, cancelBrowser, cancelAlloc
	c.mu.Unlock()

	// The first Run allocates the browser under the context it is given,
	// so it must be the session context itself and not a derived one.
	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(browserCtx) }()

	select {
	case err := <-launched:
		if err != nil {
			_ = c.Close()
			return fmt.Errorf("launching chrome: %w", err)
		}
	case <-ctx.Done():
		_ = c.Close()
		<-launched
		return fmt.Errorf("launching chrome: %w", ctx.Err())
	}
	c.logger.Debug("chrome started", zap.Bool("headless", c.opts.Headless))
	return nil
}

func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return nil
	}
	err := chromedp.Cancel(c.ctx)
	c.cancelBrowser()
	c.cancelAlloc()
	c.ctx, c.cancelBrowser, c.cancelAlloc = nil, nil, nil
	return err
}

func (c *Chrome) Snapshot(ctx context.Context) (string, error) {
	var title, location string
	if err := c.run(ctx, chromedp.Title(&title), chromedp.Location(&location)); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s <%s>", title, location), nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Click(ctx context.Context, selector string, opts models.InteractionOptions) error {
	ctx, cancel := withOptionalTimeout(ctx, opts.TimeoutMs)
	defer cancel()

	var actions []chromedp.Action
	if opts.DelayMs > 0 {
		actions = append(actions, chromedp.Sleep(time.Duration(opts.DelayMs)*time.Millisecond))
	}
	if opts.Force {
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf("document.querySelector(%s).click()", jsQuote(selector)), nil))
	} else {
		actions = append(actions, chromedp.Click(selector, chromedp.ByQuery))
	}
	return c.run(ctx, actions...)
}

func (c *Chrome) Type(ctx context.Context, selector, value string, opts models.InteractionOptions) error {
	ctx, cancel := withOptionalTimeout(ctx, opts.TimeoutMs)
	defer cancel()

	actions := []chromedp.Action{chromedp.WaitVisible(selector, chromedp.ByQuery)}
	if opts.Clear {
		actions = append(actions, chromedp.Clear(selector, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.SendKeys(selector, value, chromedp.ByQuery))
	return c.run(ctx, actions...)
}

func (c *Chrome) WaitFor(ctx context.Context, selector string) error {
	return c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (c *Chrome) ElementExists(ctx context.Context, selector string) (bool, error) {
	var exists bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", jsQuote(selector))
	if err := c.run(ctx, chromedp.Evaluate(expr, &exists)); err != nil {
		return false, err
	}
	return exists, nil
}

func (c *Chrome) Evaluate(ctx context.Context, expression string, result any) error {
	return c.run(ctx, chromedp.Evaluate(expression, result))
}

// Screenshot captures the viewport, or the whole page when opts.FullPage is
// set, in the requested format. A MaxWidth/MaxHeight viewport override only
// lasts for the capture.
func (c *Chrome) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	var buf []byte
	params := captureParams(opts)
	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = params.Do(ctx)
		return err
	})

	if opts.MaxWidth <= 0 || opts.MaxHeight <= 0 {
		if err := c.run(ctx, capture); err != nil {
			return nil, err
		}
		return buf, nil
	}

	err := c.run(ctx, chromedp.EmulateViewport(int64(opts.MaxWidth), int64(opts.MaxHeight)), capture)
	if resetErr := c.run(context.WithoutCancel(ctx), chromedp.EmulateReset()); resetErr != nil {
		c.logger.Warn("resetting viewport emulation", zap.Error(resetErr))
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// DefaultJPEGQuality applies when a jpeg capture asks for no quality.
const DefaultJPEGQuality = 90

func captureParams(opts ScreenshotOptions) *page.CaptureScreenshotParams {
	p := page.CaptureScreenshot().WithFromSurface(true)
	if opts.FullPage {
		p = p.WithCaptureBeyondViewport(true)
	}
	switch opts.Format {
	case "jpeg", "jpg":
		quality := opts.Quality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return p.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(int64(quality))
	default:
		return p.WithFormat(page.CaptureScreenshotFormatPng)
	}
}

// run executes actions on the session, bounded by ctx's deadline and
// cancellation.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	c.mu.Lock()
	sessionCtx := c.ctx
	c.mu.Unlock()
	if sessionCtx == nil {
		return ErrNotStarted
	}

	runCtx, cancel := context.WithCancel(sessionCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func withOptionalTimeout(ctx context.Context, ms int64) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

func jsQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
