package screenshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DirectoryInfo summarises a spec's asset directory.
type DirectoryInfo struct {
	SpecName        string    `json:"specName"`
	Directory       string    `json:"directory"`
	ScreenshotCount int       `json:"screenshotCount"`
	TotalFileSize   int64     `json:"totalFileSize"`
	LastUpdated     time.Time `json:"lastUpdated"`
	Files           []string  `json:"files"`
}

type assetFile struct {
	name    string
	size    int64
	modTime time.Time
}

// DirectoryInfo reports the images currently in the spec's directory. A
// missing directory or sidecar yields an empty report.
func (m *Manager) DirectoryInfo(specName string) (*DirectoryInfo, error) {
	dir := m.SpecDir(specName)
	info := &DirectoryInfo{SpecName: specName, Directory: dir, Files: []string{}}

	files, err := listImages(dir)
	if err != nil {
		return nil, err
	}
	var newest time.Time
	for _, f := range files {
		info.Files = append(info.Files, f.name)
		info.TotalFileSize += f.size
		if f.modTime.After(newest) {
			newest = f.modTime
		}
	}
	info.ScreenshotCount = len(files)

	m.mu.Lock()
	meta := m.readMetadata(dir)
	m.mu.Unlock()
	info.LastUpdated = meta.LastUpdated
	if info.LastUpdated.IsZero() {
		info.LastUpdated = newest
	}
	return info, nil
}

// CleanupOld removes screenshots (and their error details) older than maxAge
// and rewrites the sidecar to match what is left. It returns the number of
// screenshots removed.
func (m *Manager) CleanupOld(specName string, maxAge time.Duration) (int, error) {
	dir := m.SpecDir(specName)
	files, err := listImages(dir)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	meta := m.readMetadata(dir)
	capturedAt := make(map[string]time.Time, len(meta.Screenshots))
	for _, s := range meta.Screenshots {
		capturedAt[s.Filename] = s.CapturedAt
	}

	cutoff := m.now().Add(-maxAge)
	removed := map[string]bool{}
	for _, f := range files {
		at, ok := capturedAt[f.name]
		if !ok {
			at = f.modTime
		}
		if !at.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, f.name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return len(removed), fmt.Errorf("removing %s: %w", f.name, err)
		}
		detail := filepath.Join(dir, strings.TrimSuffix(f.name, filepath.Ext(f.name))+errorDetailSuffix)
		if err := os.Remove(detail); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("removing error detail failed", zap.String("path", detail), zap.Error(err))
		}
		removed[f.name] = true
	}

	if len(removed) == 0 && len(meta.Screenshots) == 0 {
		return 0, nil
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		if !removed[f.name] {
			present[f.name] = true
		}
	}
	kept := Metadata{Screenshots: []Info{}, LastUpdated: m.now().UTC()}
	for _, s := range meta.Screenshots {
		if present[s.Filename] {
			kept.Screenshots = append(kept.Screenshots, s)
			kept.TotalFileSize += s.FileSize
		}
	}
	if err := writeJSON(filepath.Join(dir, MetadataFile), kept); err != nil {
		return len(removed), fmt.Errorf("writing screenshot metadata: %w", err)
	}

	m.logger.Info("cleaned up screenshots",
		zap.String("spec", specName),
		zap.Int("removed", len(removed)),
		zap.Int("remaining", len(kept.Screenshots)))
	return len(removed), nil
}

func listImages(dir string) ([]assetFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading asset directory: %w", err)
	}
	var files []assetFile
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, assetFile{name: e.Name(), size: fi.Size(), modTime: fi.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpeg", ".jpg":
		return true
	}
	return false
}
