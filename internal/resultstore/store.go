// Package resultstore persists test results as zstd-compressed JSON, one
// file per run, so reports can be regenerated from everything executed so
// far.
package resultstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/utils"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Ext is the suffix of every stored result.
const Ext = ".json.zst"

// ErrNotFound is returned by Get for unknown runs.
var ErrNotFound = errors.New("result not found")

// Store is an append-only directory of results laid out as
// <dir>/<spec>/<runId>.json.zst.
type Store struct {
	dir    string
	logger *zap.Logger

	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store rooted at dir.
func New(dir string, opts ...Option) (*Store, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	s := &Store{dir: dir, logger: zap.NewNop(), enc: enc, dec: dec}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases the decoder.
func (s *Store) Close() {
	s.dec.Close()
}

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Put stores result. Existing runs are never overwritten.
func (s *Store) Put(result *models.TestResult) error {
	if result == nil {
		return errors.New("nil result")
	}
	if err := utils.ValidateSpecName(result.SpecName); err != nil {
		return err
	}
	if err := utils.ValidateSpecName(result.RunID); err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, result.SpecName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating result directory: %w", err)
	}
	path := filepath.Join(dir, result.RunID+Ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating result file: %w", err)
	}
	if _, err := f.Write(s.enc.EncodeAll(data, nil)); err != nil {
		f.Close()
		return fmt.Errorf("writing result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing result file: %w", err)
	}
	s.logger.Debug("stored result", zap.String("spec", result.SpecName), zap.String("run", result.RunID))
	return nil
}

// Get loads one run.
func (s *Store) Get(specName, runID string) (*models.TestResult, error) {
	if err := utils.ValidateSpecName(specName); err != nil {
		return nil, err
	}
	if err := utils.ValidateSpecName(runID); err != nil {
		return nil, fmt.Errorf("invalid run id: %w", err)
	}
	r, err := s.read(filepath.Join(s.dir, specName, runID+Ext))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", specName, runID, ErrNotFound)
	}
	return r, err
}

// Specs lists spec names with at least one stored run, sorted.
func (s *Store) Specs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading result store: %w", err)
	}
	var specs []string
	for _, e := range entries {
		if e.IsDir() {
			specs = append(specs, e.Name())
		}
	}
	sort.Strings(specs)
	return specs, nil
}

// List returns every readable run of specName, oldest first. Unreadable
// entries are logged and skipped.
func (s *Store) List(specName string) ([]*models.TestResult, error) {
	if err := utils.ValidateSpecName(specName); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, specName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s results: %w", specName, err)
	}

	var results []*models.TestResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		r, err := s.read(filepath.Join(dir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable result", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].StartTime.Equal(results[j].StartTime) {
			return results[i].RunID < results[j].RunID
		}
		return results[i].StartTime.Before(results[j].StartTime)
	})
	return results, nil
}

// Latest returns the newest run of every spec, in spec-name order.
func (s *Store) Latest() ([]*models.TestResult, error) {
	specs, err := s.Specs()
	if err != nil {
		return nil, err
	}
	var latest []*models.TestResult
	for _, spec := range specs {
		runs, err := s.List(spec)
		if err != nil {
			return nil, err
		}
		if len(runs) > 0 {
			latest = append(latest, runs[len(runs)-1])
		}
	}
	return latest, nil
}

// Prune keeps the newest keep runs of specName and deletes the rest. It
// returns how many runs were removed.
func (s *Store) Prune(specName string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	runs, err := s.List(specName)
	if err != nil {
		return 0, err
	}
	if len(runs) <= keep {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, r := range runs[:len(runs)-keep] {
		path := filepath.Join(s.dir, specName, r.RunID+Ext)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) read(path string) (*models.TestResult, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", filepath.Base(path), err)
	}
	var r models.TestResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &r, nil
}
