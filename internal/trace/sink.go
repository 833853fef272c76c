// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Sink writes one CSV trace file: a header row built from the sockets
// discovered at Open time, followed by one row per call to Write. Every
// Write flushes the underlying file so a reader tailing the trace, or a
// process killed between samples, never sees a partial buffer.
type Sink struct {
	logger *slog.Logger

	mu      sync.Mutex
	file    *os.File
	w       *csv.Writer
	sockets []int
}

// OptionFn configures a Sink.
type OptionFn func(*Sink)

// WithLogger sets the sink's logger.
func WithLogger(logger *slog.Logger) OptionFn {
	return func(s *Sink) { s.logger = logger.With("service", "trace-sink") }
}

// Open creates (or truncates) the trace file at path and writes the CSV
// header for the given sockets, in order.
func Open(path string, sockets []int, opts ...OptionFn) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file %s: %w", path, err)
	}

	s := &Sink{
		logger:  slog.Default().With("service", "trace-sink"),
		file:    f,
		w:       csv.NewWriter(f),
		sockets: append([]int(nil), sockets...),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.w.Write(Header(s.sockets)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write trace header to %s: %w", path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to flush trace header to %s: %w", path, err)
	}

	return s, nil
}

// Write appends one row and flushes it to disk. row.Sockets must list
// sockets in the same order the Sink was opened with.
func (s *Sink) Write(row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Write(row.Fields()); err != nil {
		return fmt.Errorf("failed to write trace row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush trace row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Safe to call once, at
// shutdown, after the last Write.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.logger.Warn("trace flush error on close", "error", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}
