// Package source streams N-Triples from local files into the extraction
// passes. It handles glob expansion, transparent gzip and zstandard
// decompression, blake3 input fingerprinting, and line-by-line decoding
// where a malformed line is recorded and skipped instead of aborting a
// long-running scan.
package source

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/knakk/rdf"
	"lukechampine.com/blake3"
)

const (
	// maxErrorSamples bounds how many malformed line diagnostics are
	// retained verbatim; the rest are only counted.
	maxErrorSamples = 16

	// progressInterval is the triple count between progress log lines.
	progressInterval = 10_000_000
)

// LineError describes one line that failed to decode.
type LineError struct {
	Path    string `json:"path"`
	Line    int64  `json:"line"`
	Message string `json:"message"`
}

// ScanStats summarizes one scan over the source.
type ScanStats struct {
	// Lines is the number of non-blank, non-comment lines visited.
	Lines int64 `json:"lines"`

	// Triples is the number of lines that decoded into a triple.
	Triples int64 `json:"triples"`

	// Skipped is the number of malformed lines passed over.
	Skipped int64 `json:"skipped"`

	// Errors holds up to maxErrorSamples malformed line samples.
	Errors []LineError `json:"errors,omitempty"`
}

func (st *ScanStats) recordError(path string, line int64, err error) {
	st.Skipped++
	if len(st.Errors) < maxErrorSamples {
		st.Errors = append(st.Errors, LineError{Path: path, Line: line, Message: err.Error()})
	}
}

// Source is an ordered sequence of triple files that can be scanned
// repeatedly; the extraction passes scan it once each. The first complete
// scan records a blake3 fingerprint per file.
type Source struct {
	paths        []string
	logger       *slog.Logger
	fingerprints map[string]string
}

// New returns a Source over the given files, in order.
func New(paths []string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		paths:        paths,
		logger:       logger,
		fingerprints: make(map[string]string, len(paths)),
	}
}

// Paths returns the files the source reads, in scan order.
func (s *Source) Paths() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Fingerprints returns the blake3 hex digest per fully scanned file.
func (s *Source) Fingerprints() map[string]string {
	out := make(map[string]string, len(s.fingerprints))
	for path, sum := range s.fingerprints {
		out[path] = sum
	}
	return out
}

// Scan streams every triple in the source through fn, in file and line
// order. Blank and comment lines are ignored; lines that fail to decode
// are counted and sampled in the returned stats without stopping the
// scan. Scan stops early only on context cancellation or an error from
// fn.
func (s *Source) Scan(ctx context.Context, fn func(t rdf.Triple) error) (*ScanStats, error) {
	stats := &ScanStats{}
	for _, path := range s.paths {
		if err := s.scanFile(ctx, path, fn, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (s *Source) scanFile(ctx context.Context, path string, fn func(t rdf.Triple) error, stats *ScanStats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// Fingerprint the raw file bytes on the first full pass over it.
	var hasher *blake3.Hasher
	var raw io.Reader = f
	if _, done := s.fingerprints[path]; !done {
		hasher = blake3.New(32, nil)
		raw = io.TeeReader(f, hasher)
	}

	r, closeCompression, err := wrapCompression(path, raw)
	if err != nil {
		return err
	}
	if closeCompression != nil {
		defer closeCompression()
	}

	if err := s.scanLines(ctx, path, r, fn, stats); err != nil {
		return err
	}

	if hasher != nil {
		// Drain any compressed trailer the decompressor left unread so
		// the digest covers the whole file.
		if _, err := io.Copy(io.Discard, raw); err != nil {
			return fmt.Errorf("fingerprint %s: %w", path, err)
		}
		s.fingerprints[path] = hex.EncodeToString(hasher.Sum(nil))
	}
	return nil
}

func (s *Source) scanLines(ctx context.Context, path string, r io.Reader, fn func(t rdf.Triple) error, stats *ScanStats) error {
	br := bufio.NewReaderSize(r, 1<<20)
	var lineNo int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		lineNo++

		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			stats.Lines++
			t, err := ParseLine(trimmed)
			if err != nil {
				stats.recordError(path, lineNo, err)
				s.logger.Debug("Skipping malformed line",
					"path", path,
					"line", lineNo,
					"error", err)
			} else {
				stats.Triples++
				if stats.Triples%progressInterval == 0 {
					s.logger.Info("Scan progress",
						"path", path,
						"triples", stats.Triples,
						"skipped", stats.Skipped)
				}
				if err := fn(t); err != nil {
					return err
				}
			}
		}

		if readErr == io.EOF {
			return nil
		}
	}
}
