package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu       sync.Mutex
	uploads  map[string]string
	types    map[string]string
	inFlight atomic.Int32
	peak     atomic.Int32
	failKey  string
	delay    time.Duration
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: map[string]string{}, types: map[string]string{}}
}

func (f *fakeUploader) Upload(ctx context.Context, key, localPath, contentType string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if key == f.failKey {
		return errors.New("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key] = localPath
	f.types[key] = contentType
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func layout(t *testing.T) (report, assets string) {
	t.Helper()
	root := t.TempDir()
	report = filepath.Join(root, "e2e", "TESTS_SUMMARY.md")
	assets = filepath.Join(root, "e2e", "assets")
	writeFile(t, report, "# E2E Test Summary\n")
	writeFile(t, filepath.Join(assets, "login", "a.png"), "png")
	writeFile(t, filepath.Join(assets, "login", "screenshots.json"), "{}")
	writeFile(t, filepath.Join(assets, "signup", "b.png"), "png")
	return report, assets
}

func TestPublish_KeysFollowReportLayout(t *testing.T) {
	report, assets := layout(t)
	up := newFakeUploader()

	summary, err := New(up, WithPrefix("/runs/42/")).Publish(context.Background(), report, assets)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"runs/42/TESTS_SUMMARY.md",
		"runs/42/assets/login/a.png",
		"runs/42/assets/login/screenshots.json",
		"runs/42/assets/signup/b.png",
	}, summary.Keys)
	assert.EqualValues(t, len("# E2E Test Summary\n")+3+2+3, summary.Bytes)
	assert.Equal(t, "text/markdown; charset=utf-8", up.types["runs/42/TESTS_SUMMARY.md"])
	assert.Equal(t, "image/png", up.types["runs/42/assets/login/a.png"])
	assert.Equal(t, "application/json", up.types["runs/42/assets/login/screenshots.json"])
}

func TestPublish_AssetsOutsideReportDir(t *testing.T) {
	root := t.TempDir()
	report := filepath.Join(root, "docs", "REPORT.md")
	assets := filepath.Join(root, "shots")
	writeFile(t, report, "x")
	writeFile(t, filepath.Join(assets, "login", "a.png"), "png")

	summary, err := New(newFakeUploader()).Publish(context.Background(), report, assets)
	require.NoError(t, err)
	assert.Equal(t, []string{"REPORT.md", "shots/login/a.png"}, summary.Keys)
}

func TestPublish_MissingAssetsUploadsReportOnly(t *testing.T) {
	root := t.TempDir()
	report := filepath.Join(root, "TESTS_SUMMARY.md")
	writeFile(t, report, "x")

	summary, err := New(newFakeUploader()).Publish(context.Background(), report, filepath.Join(root, "absent"))
	require.NoError(t, err)
	assert.Equal(t, []string{"TESTS_SUMMARY.md"}, summary.Keys)
}

func TestPublish_MissingReport(t *testing.T) {
	_, err := New(newFakeUploader()).Publish(context.Background(), filepath.Join(t.TempDir(), "nope.md"), t.TempDir())
	require.Error(t, err)
}

func TestPublish_BoundsConcurrency(t *testing.T) {
	root := t.TempDir()
	report := filepath.Join(root, "TESTS_SUMMARY.md")
	writeFile(t, report, "x")
	for i := 0; i < 12; i++ {
		writeFile(t, filepath.Join(root, "assets", "s", string(rune('a'+i))+".png"), "p")
	}
	up := newFakeUploader()
	up.delay = 5 * time.Millisecond

	summary, err := New(up, WithConcurrency(3)).Publish(context.Background(), report, filepath.Join(root, "assets"))
	require.NoError(t, err)
	assert.Len(t, summary.Keys, 13)
	assert.LessOrEqual(t, up.peak.Load(), int32(3))
}

func TestPublish_UploadErrorFails(t *testing.T) {
	report, assets := layout(t)
	up := newFakeUploader()
	up.failKey = "assets/login/a.png"

	_, err := New(up).Publish(context.Background(), report, assets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestResolveKey(t *testing.T) {
	assert.Equal(t, "a/b.png", ResolveKey("", "/a/b.png"))
	assert.Equal(t, "p", ResolveKey("p/", ""))
	assert.Equal(t, "p/q/a.png", ResolveKey("/p/q/", "a.png"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("x.PNG"))
	assert.Equal(t, "image/jpeg", ContentType("x.jpg"))
	assert.Equal(t, "application/octet-stream", ContentType("x.unknownext"))
}

func TestContainerURL(t *testing.T) {
	u, err := ContainerURL(AzureConfig{AccountName: "acct", Container: "reports"})
	require.NoError(t, err)
	assert.Equal(t, "https://acct.blob.core.windows.net/reports", u)

	u, err = ContainerURL(AzureConfig{AccountURL: "http://127.0.0.1:10000/devstoreaccount1/", Container: "r", SASToken: "?sv=1&sig=x"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:10000/devstoreaccount1/r?sv=1&sig=x", u)

	_, err = ContainerURL(AzureConfig{Container: "r"})
	require.Error(t, err)
	_, err = ContainerURL(AzureConfig{AccountName: "acct"})
	require.Error(t, err)
}

func TestNewAzureUploader_SharedKeyNeedsAccount(t *testing.T) {
	_, err := NewAzureUploader(AzureConfig{AccountURL: "https://x.blob.core.windows.net", Container: "c", AccountKey: "a2V5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account name")
}

func TestNewAzureUploader_SAS(t *testing.T) {
	u, err := NewAzureUploader(AzureConfig{AccountName: "acct", Container: "c", SASToken: "sv=1"})
	require.NoError(t, err)
	assert.Equal(t, "https://acct.blob.core.windows.net/c?sv=1", u.containerURL)
}
