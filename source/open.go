package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ExpandInputs resolves a mix of plain paths and glob patterns (including
// doublestar ** patterns) into a sorted, deduplicated list of files.
// Plain paths must exist; a glob that matches nothing is an error, since a
// silent empty input would masquerade as an empty graph.
func ExpandInputs(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := expandPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}
		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	sort.Strings(resolved)
	return resolved, nil
}

func expandPattern(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory: %s", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match pattern: %s", pattern)
	}
	return files, nil
}

// Open returns a reader over the file at path, transparently
// decompressing gzip and zstandard content based on the file extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, closeCompression, err := wrapCompression(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rc := &reader{Reader: r}
	if closeCompression != nil {
		rc.closers = append(rc.closers, closeCompression)
	}
	rc.closers = append(rc.closers, f.Close)
	return rc, nil
}

// wrapCompression layers a decompressor over raw when the path extension
// calls for one. The returned close function, if any, releases the
// decompressor and must run before the underlying file is closed.
func wrapCompression(path string, raw io.Reader) (io.Reader, func() error, error) {
	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		return zr, zr.Close, nil
	case ".zst":
		zr, err := zstd.NewReader(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd %s: %w", path, err)
		}
		return zr, func() error { zr.Close(); return nil }, nil
	default:
		return raw, nil, nil
	}
}

type reader struct {
	io.Reader
	closers []func() error
}

func (r *reader) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
