package analyzer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RequirementsFile is the file name looked for inside each spec folder.
const RequirementsFile = "requirements.md"

// SpecDocument locates one specification on disk.
type SpecDocument struct {
	Name string
	Path string
}

// Discover lists <root>/<name>/requirements.md folders sorted by name.
// A missing root yields no documents.
func Discover(root string) ([]SpecDocument, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading specs root %s: %w", root, err)
	}

	var docs []SpecDocument
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(root, e.Name(), RequirementsFile)
		if _, err := os.Stat(p); err == nil {
			docs = append(docs, SpecDocument{Name: e.Name(), Path: p})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Resolve turns a CLI argument into a SpecDocument. The argument may be a
// spec name under root, a spec folder, or a markdown file.
func Resolve(arg, root string) (SpecDocument, error) {
	candidates := []string{arg, filepath.Join(root, arg)}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil {
			continue
		}
		if info.IsDir() {
			p := filepath.Join(c, RequirementsFile)
			if _, err := os.Stat(p); err != nil {
				return SpecDocument{}, fmt.Errorf("spec folder %s has no %s", c, RequirementsFile)
			}
			abs, _ := filepath.Abs(c)
			return SpecDocument{Name: filepath.Base(abs), Path: p}, nil
		}
		return SpecDocument{Name: nameForFile(c, root), Path: c}, nil
	}
	return SpecDocument{}, fmt.Errorf("spec %q not found (looked in %s)", arg, root)
}

func nameForFile(path, root string) string {
	dir, _ := filepath.Abs(filepath.Dir(path))
	absRoot, _ := filepath.Abs(root)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if filepath.Base(path) != RequirementsFile || dir == absRoot {
		return stem
	}
	return filepath.Base(dir)
}
