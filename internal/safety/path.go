package safety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CleanRelativePath validates and normalizes an archive member name.
// It rejects absolute names and any name that resolves to the root or
// to a parent of it. Normalization is purely lexical; the filesystem
// is never consulted.
func CleanRelativePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("member name is empty")
	}

	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." {
		return "", fmt.Errorf("member name resolves to current directory")
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, string(filepath.Separator)) {
		return "", fmt.Errorf("absolute member name is not allowed: %q", name)
	}
	if filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("member name carries a volume prefix: %q", name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("parent traversal is not allowed: %q", name)
	}
	return clean, nil
}

// SafeJoinUnder joins a validated member name under root and verifies
// the final path remains inside root.
func SafeJoinUnder(root, name string) (string, error) {
	clean, err := CleanRelativePath(name)
	if err != nil {
		return "", err
	}
	return EnsureUnderRoot(root, filepath.Join(root, clean))
}

// EnsureUnderRoot verifies candidate resolves under root and returns
// an absolute normalized path.
func EnsureUnderRoot(root, candidate string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	candAbs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve candidate: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, candAbs)
	if err != nil {
		return "", fmt.Errorf("compare paths: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %q", candidate)
	}
	return candAbs, nil
}
