package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ResolvePath returns path unchanged when absolute, otherwise joined onto
// baseDir.
func ResolvePath(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// RelativeLink returns target relative to fromDir using forward slashes, for
// links embedded in markdown. Falls back to target when no relative path
// exists (different volumes).
func RelativeLink(target, fromDir string) string {
	if target == "" {
		return ""
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	absFrom, err := filepath.Abs(fromDir)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(absFrom, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// ValidateSpecName rejects names that are empty or could escape a root
// directory.
func ValidateSpecName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("spec name must not be empty")
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return fmt.Errorf("spec name %q contains invalid path characters", name)
	}
	return nil
}

// SpecTitle turns a kebab or snake spec name into a display title.
func SpecTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
