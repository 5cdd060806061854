// Package publish uploads the markdown report and its screenshot assets to
// object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gfaurobert/specflow/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of uploads in flight.
const DefaultConcurrency = 4

// Uploader stores one local file under key.
type Uploader interface {
	Upload(ctx context.Context, key, localPath, contentType string) error
}

// Summary describes a finished publication.
type Summary struct {
	Keys  []string
	Bytes int64
}

// Publisher walks the report outputs and hands them to an Uploader.
type Publisher struct {
	uploader    Uploader
	prefix      string
	concurrency int
	logger      *zap.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithPrefix places every key under prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) { p.prefix = prefix }
}

// WithConcurrency sets the upload limit. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Publisher.
func New(u Uploader, opts ...Option) *Publisher {
	p := &Publisher{uploader: u, concurrency: DefaultConcurrency, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

type item struct {
	key  string
	path string
	size int64
}

// Publish uploads reportPath and every file below assetsRoot. Keys keep the
// layout relative to the report so its screenshot links stay valid.
func (p *Publisher) Publish(ctx context.Context, reportPath, assetsRoot string) (*Summary, error) {
	items, err := collect(reportPath, assetsRoot)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	var (
		mu      sync.Mutex
		summary Summary
	)
	for _, it := range items {
		key := ResolveKey(p.prefix, it.key)
		g.Go(func() error {
			if err := p.uploader.Upload(gctx, key, it.path, ContentType(it.path)); err != nil {
				return fmt.Errorf("uploading %s: %w", it.path, err)
			}
			p.logger.Debug("uploaded", zap.String("key", key), zap.Int64("bytes", it.size))
			mu.Lock()
			summary.Keys = append(summary.Keys, key)
			summary.Bytes += it.size
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(summary.Keys)
	p.logger.Info("published report",
		zap.Int("files", len(summary.Keys)),
		zap.Int64("bytes", summary.Bytes))
	return &summary, nil
}

func collect(reportPath, assetsRoot string) ([]item, error) {
	info, err := os.Stat(reportPath)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", reportPath, err)
	}
	reportDir := filepath.Dir(reportPath)
	items := []item{{key: filepath.Base(reportPath), path: reportPath, size: info.Size()}}

	err = filepath.WalkDir(assetsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == assetsRoot {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		items = append(items, item{key: assetKey(path, reportDir, assetsRoot), path: path, size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking assets %s: %w", assetsRoot, err)
	}
	return items, nil
}

// assetKey is the report-relative path, or <assets dir name>/<rel> when the
// assets live outside the report directory.
func assetKey(path, reportDir, assetsRoot string) string {
	if rel := utils.RelativeLink(path, reportDir); !strings.HasPrefix(rel, "../") {
		return rel
	}
	rel, err := filepath.Rel(assetsRoot, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(assetsRoot), rel))
}

// ResolveKey joins prefix and key with a single slash.
func ResolveKey(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimPrefix(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

// ContentType guesses the MIME type from the file extension.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
