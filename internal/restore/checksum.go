package restore

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ComputeSHA256 streams the file at path through SHA-256 and returns
// the lowercase hex digest.
func ComputeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LookupManifestDigest finds the digest recorded for archiveName in a
// sha256sum-style manifest: one "<hex>  <filename>" pair per line.
// Filenames are matched by base name; a leading "*" (binary-mode
// marker) is tolerated.
func LookupManifestDigest(manifestPath, archiveName string) (string, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return "", fmt.Errorf("opening checksum manifest: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	want := filepath.Base(archiveName)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := strings.TrimPrefix(fields[len(fields)-1], "*")
		if filepath.Base(name) == want {
			return fields[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading checksum manifest: %w", err)
	}
	return "", fmt.Errorf("no manifest entry for %q in %s", want, manifestPath)
}

// VerifyArchive compares the archive's SHA-256 digest against its
// manifest entry. The comparison is case-insensitive. A mismatch is
// fatal and reported as ErrIntegrity; extraction must not start after
// that.
func VerifyArchive(archivePath, manifestPath string) error {
	expected, err := LookupManifestDigest(manifestPath, archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	actual, err := ComputeSHA256(archivePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	if !strings.EqualFold(expected, actual) {
		return fmt.Errorf("%w: %s: expected sha256 %s, got %s",
			ErrIntegrity, filepath.Base(archivePath), strings.ToLower(expected), actual)
	}
	return nil
}
