package screenshot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gfaurobert/specflow/internal/browser"
	"github.com/gfaurobert/specflow/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapturer struct {
	data  []byte
	err   error
	calls []browser.ScreenshotOptions
}

func (f *fakeCapturer) Screenshot(_ context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	f.calls = append(f.calls, opts)
	return f.data, f.err
}

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(1500 * time.Millisecond)
	return c.t
}

func newManager(t *testing.T, capt Capturer) (*Manager, *stepClock) {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
	return New(t.TempDir(), capt, WithClock(clock.now)), clock
}

func readMeta(t *testing.T, dir string) Metadata {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(data, &meta))
	return meta
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	assert.Equal(t, "spec-a-step-step-1-2026-01-02T03-04-05-678Z.png", FileName("spec-a", "step-1", at, false, "png"))
	assert.Equal(t, "spec-a-error-step-step-1-2026-01-02T03-04-05-678Z.png", FileName("spec-a", "step-1", at, true, ""))
	assert.Equal(t, "my-spec--step-a-b-2026-01-02T03-04-05-678Z.jpeg", FileName("my spec!", "a/../b", at, false, "jpeg"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a-b", Sanitize("a  b"))
	assert.Equal(t, "a-b-", Sanitize("a/b?"))
	assert.Equal(t, "already-safe-123", Sanitize("already-safe-123"))
	assert.Equal(t, "-etc-passwd", Sanitize("../etc/passwd"))
}

func TestCapture_DeterministicNames(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("png-bytes")})
	ctx := context.Background()

	first, err := m.Capture(ctx, "step-1", "spec-a", nil)
	require.NoError(t, err)
	second, err := m.Capture(ctx, "step-1", "spec-a", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Filename, second.Filename)
	const prefix = "spec-a-step-step-1-"
	assert.True(t, strings.HasPrefix(first.Filename, prefix))
	assert.True(t, strings.HasPrefix(second.Filename, prefix))
	assert.True(t, strings.HasSuffix(first.Filename, ".png"))

	assert.Equal(t, "step-1", first.StepID)
	assert.Equal(t, int64(len("png-bytes")), first.FileSize)
	assert.FileExists(t, first.Path)
}

func TestCapture_SpecialCharactersNeverLiteral(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("x")})

	info, err := m.Capture(context.Background(), "step:1/.. x", "spec?*<a>", nil)
	require.NoError(t, err)
	for _, ch := range []string{":", "/", "?", "*", "<", ">", " ", ".."} {
		assert.NotContains(t, strings.TrimSuffix(info.Filename, ".png"), ch)
	}
	assert.Equal(t, filepath.Join(m.Root(), "spec-a-"), filepath.Dir(info.Path))
}

func TestCapture_MergesOptionsOverDefaults(t *testing.T) {
	capt := &fakeCapturer{data: []byte("x")}
	m, _ := newManager(t, capt)

	_, err := m.Capture(context.Background(), "s", "spec", nil)
	require.NoError(t, err)
	_, err = m.Capture(context.Background(), "s", "spec", &Options{FullPage: utils.Ptr(true), Quality: 50})
	require.NoError(t, err)

	require.Len(t, capt.calls, 2)
	assert.Equal(t, DefaultOptions(), capt.calls[0])
	assert.Equal(t, browser.ScreenshotOptions{FullPage: true, Quality: 50, Format: "png", MaxWidth: 1920, MaxHeight: 1080}, capt.calls[1])
}

func TestCapture_UpdatesSidecar(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("12345")})
	ctx := context.Background()

	a, err := m.Capture(ctx, "step-1", "spec", nil)
	require.NoError(t, err)
	b, err := m.Capture(ctx, "step-2", "spec", nil)
	require.NoError(t, err)

	meta := readMeta(t, m.SpecDir("spec"))
	require.Len(t, meta.Screenshots, 2)
	assert.Equal(t, a.Filename, meta.Screenshots[0].Filename)
	assert.Equal(t, b.Filename, meta.Screenshots[1].Filename)
	assert.Equal(t, int64(10), meta.TotalFileSize)
	assert.True(t, meta.LastUpdated.Equal(b.CapturedAt))
}

func TestCapture_CapturerError(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{err: errors.New("target closed")})

	info, err := m.Capture(context.Background(), "step-1", "spec", nil)
	require.Error(t, err)
	assert.Nil(t, info)
	assert.NoDirExists(t, m.SpecDir("spec"))
}

func TestCaptureError(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("x")})

	info, err := m.CaptureError(context.Background(), "step-3", "spec", "Failed after 2 retries: boom")
	require.NoError(t, err)
	assert.Equal(t, "step-3-error", info.StepID)
	assert.True(t, strings.HasPrefix(info.Filename, "spec-error-step-step-3-"))

	detailPath := strings.TrimSuffix(info.Path, ".png") + ".error.json"
	data, err := os.ReadFile(detailPath)
	require.NoError(t, err)
	var detail ErrorDetail
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, "Failed after 2 retries: boom", detail.ErrorMessage)
	assert.Equal(t, info.Path, detail.Screenshot)
}

func TestCaptureError_DetailWrittenWhenCaptureFails(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{err: errors.New("no page")})

	info, err := m.CaptureError(context.Background(), "step-3", "spec", "boom")
	require.Error(t, err)
	assert.Nil(t, info)

	matches, err := filepath.Glob(filepath.Join(m.SpecDir("spec"), "*.error.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDirectoryInfo(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("abc")})

	empty, err := m.DirectoryInfo("nothing-yet")
	require.NoError(t, err)
	assert.Zero(t, empty.ScreenshotCount)
	assert.Empty(t, empty.Files)

	_, err = m.Capture(context.Background(), "step-1", "spec", nil)
	require.NoError(t, err)
	last, err := m.Capture(context.Background(), "step-2", "spec", nil)
	require.NoError(t, err)

	info, err := m.DirectoryInfo("spec")
	require.NoError(t, err)
	assert.Equal(t, 2, info.ScreenshotCount)
	assert.Equal(t, int64(6), info.TotalFileSize)
	assert.True(t, info.LastUpdated.Equal(last.CapturedAt))
}

func TestDirectoryInfo_MissingSidecar(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{data: []byte("abc")})
	_, err := m.Capture(context.Background(), "step-1", "spec", nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(m.SpecDir("spec"), MetadataFile)))

	info, err := m.DirectoryInfo("spec")
	require.NoError(t, err)
	assert.Equal(t, 1, info.ScreenshotCount)
	assert.False(t, info.LastUpdated.IsZero())
}

func TestCleanupOld(t *testing.T) {
	m, clock := newManager(t, &fakeCapturer{data: []byte("abc")})
	ctx := context.Background()

	old, err := m.CaptureError(ctx, "step-1", "spec", "boom")
	require.NoError(t, err)
	clock.t = clock.t.Add(48 * time.Hour)
	fresh, err := m.Capture(ctx, "step-2", "spec", nil)
	require.NoError(t, err)

	removed, err := m.CleanupOld("spec", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, old.Path)
	assert.NoFileExists(t, strings.TrimSuffix(old.Path, ".png")+".error.json")
	assert.FileExists(t, fresh.Path)

	meta := readMeta(t, m.SpecDir("spec"))
	require.Len(t, meta.Screenshots, 1)
	assert.Equal(t, fresh.Filename, meta.Screenshots[0].Filename)
	assert.Equal(t, int64(3), meta.TotalFileSize)
}

func TestCleanupOld_MissingSidecarUsesModTime(t *testing.T) {
	m, clock := newManager(t, &fakeCapturer{data: []byte("abc")})
	info, err := m.Capture(context.Background(), "step-1", "spec", nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(m.SpecDir("spec"), MetadataFile)))

	past := clock.t.Add(-72 * time.Hour)
	require.NoError(t, os.Chtimes(info.Path, past, past))

	removed, err := m.CleanupOld("spec", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, info.Path)
}

func TestCleanupOld_MissingDirectory(t *testing.T) {
	m, _ := newManager(t, &fakeCapturer{})
	removed, err := m.CleanupOld("ghost", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
