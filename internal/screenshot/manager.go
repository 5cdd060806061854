// Package screenshot stores evidence screenshots with deterministic names
// and keeps a per-spec metadata sidecar.
package screenshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gfaurobert/specflow/internal/browser"
	"go.uber.org/zap"
)

// MetadataFile is the sidecar kept in every spec's asset directory.
const MetadataFile = "screenshot-metadata.json"

const errorDetailSuffix = ".error.json"

// Capturer produces raw image bytes. browser.Browser satisfies it.
type Capturer interface {
	Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error)
}

// Options override individual capture defaults. Zero fields keep the
// default.
type Options struct {
	FullPage  *bool
	Quality   int
	Format    string
	MaxWidth  int
	MaxHeight int
}

// DefaultOptions are used for every capture unless overridden.
func DefaultOptions() browser.ScreenshotOptions {
	return browser.ScreenshotOptions{
		FullPage:  false,
		Quality:   90,
		Format:    "png",
		MaxWidth:  1920,
		MaxHeight: 1080,
	}
}

// Merge applies o over base.
func (o *Options) Merge(base browser.ScreenshotOptions) browser.ScreenshotOptions {
	if o == nil {
		return base
	}
	if o.FullPage != nil {
		base.FullPage = *o.FullPage
	}
	if o.Quality > 0 {
		base.Quality = o.Quality
	}
	if o.Format != "" {
		base.Format = strings.ToLower(o.Format)
	}
	if o.MaxWidth > 0 {
		base.MaxWidth = o.MaxWidth
	}
	if o.MaxHeight > 0 {
		base.MaxHeight = o.MaxHeight
	}
	return base
}

// Info describes one stored screenshot.
type Info struct {
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	FileSize   int64     `json:"fileSize"`
	StepID     string    `json:"stepId"`
	SpecName   string    `json:"specName"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Metadata is the sidecar document.
type Metadata struct {
	Screenshots   []Info    `json:"screenshots"`
	TotalFileSize int64     `json:"totalFileSize"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ErrorDetail is persisted next to every error screenshot.
type ErrorDetail struct {
	StepID       string    `json:"stepId"`
	SpecName     string    `json:"specName"`
	ErrorMessage string    `json:"errorMessage"`
	Screenshot   string    `json:"screenshot,omitempty"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// Manager owns the assets root.
type Manager struct {
	root     string
	capturer Capturer
	defaults browser.ScreenshotOptions
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDefaults merges o over the built-in capture defaults.
func WithDefaults(o Options) Option {
	return func(m *Manager) { m.defaults = o.Merge(m.defaults) }
}

// New creates a Manager writing below root.
func New(root string, capturer Capturer, opts ...Option) *Manager {
	m := &Manager{
		root:     root,
		capturer: capturer,
		defaults: DefaultOptions(),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Root returns the assets root.
func (m *Manager) Root() string { return m.root }

// SpecDir returns the asset directory for specName.
func (m *Manager) SpecDir(specName string) string {
	return filepath.Join(m.root, Sanitize(specName))
}

// Capture takes a screenshot for stepID, stores it and records it in the
// sidecar.
func (m *Manager) Capture(ctx context.Context, stepID, specName string, opts *Options) (*Info, error) {
	merged := opts.Merge(m.defaults)
	at := m.now().UTC()
	return m.capture(ctx, stepID, specName, FileName(specName, stepID, at, false, merged.Format), at, merged)
}

// CaptureError takes the failure screenshot for stepID and writes an error
// detail file beside it. The detail file is written even when the capture
// itself fails.
func (m *Manager) CaptureError(ctx context.Context, stepID, specName, errorMessage string) (*Info, error) {
	at := m.now().UTC()
	name := FileName(specName, stepID, at, true, m.defaults.Format)
	info, capErr := m.capture(ctx, stepID+"-error", specName, name, at, m.defaults)

	detail := ErrorDetail{
		StepID:       stepID,
		SpecName:     specName,
		ErrorMessage: errorMessage,
		CapturedAt:   at,
	}
	if info != nil {
		detail.Screenshot = info.Path
	}
	detailPath := filepath.Join(m.SpecDir(specName), strings.TrimSuffix(name, filepath.Ext(name))+errorDetailSuffix)
	if err := writeJSON(detailPath, detail); err != nil {
		m.logger.Warn("writing error detail failed", zap.String("path", detailPath), zap.Error(err))
	}
	return info, capErr
}

func (m *Manager) capture(ctx context.Context, stepID, specName, name string, at time.Time, opts browser.ScreenshotOptions) (*Info, error) {
	data, err := m.capturer.Screenshot(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	dir := m.SpecDir(specName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing screenshot: %w", err)
	}

	info := &Info{
		Filename:   name,
		Path:       path,
		FileSize:   int64(len(data)),
		StepID:     stepID,
		SpecName:   specName,
		CapturedAt: at,
	}
	if err := m.record(dir, *info); err != nil {
		m.logger.Warn("updating screenshot metadata failed", zap.String("spec", specName), zap.Error(err))
	}
	m.logger.Debug("screenshot saved", zap.String("path", path), zap.Int64("bytes", info.FileSize))
	return info, nil
}

func (m *Manager) record(dir string, info Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta := m.readMetadata(dir)
	meta.Screenshots = append(meta.Screenshots, info)
	meta.TotalFileSize += info.FileSize
	meta.LastUpdated = info.CapturedAt
	return writeJSON(filepath.Join(dir, MetadataFile), meta)
}

// readMetadata returns the sidecar for dir, or an empty document when it is
// missing or unreadable.
func (m *Manager) readMetadata(dir string) Metadata {
	var meta Metadata
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return Metadata{Screenshots: []Info{}}
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		m.logger.Debug("ignoring unreadable screenshot metadata", zap.String("dir", dir), zap.Error(err))
		return Metadata{Screenshots: []Info{}}
	}
	if meta.Screenshots == nil {
		meta.Screenshots = []Info{}
	}
	return meta
}

var unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9-]+`)

// Sanitize replaces every run of characters other than ASCII letters,
// digits and hyphens with a single hyphen.
func Sanitize(s string) string {
	return unsafeRun.ReplaceAllString(s, "-")
}

// Timestamp renders at as an ISO-8601 UTC timestamp with ':' and '.'
// replaced by '-'.
func Timestamp(at time.Time) string {
	iso := at.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}

// FileName builds the deterministic screenshot file name.
//
//	<spec>-step-<step>-<timestamp>.png
//	<spec>-error-step-<step>-<timestamp>.png
func FileName(specName, stepID string, at time.Time, isError bool, format string) string {
	kind := "-step-"
	if isError {
		kind = "-error-step-"
	}
	return Sanitize(specName) + kind + Sanitize(stepID) + "-" + Timestamp(at) + extension(format)
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpeg"
	default:
		return ".png"
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
