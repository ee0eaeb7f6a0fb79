// Package pkg provides reusable utilities for qlty.
package pkg

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Journal is an append-only on-disk log of items of type T.
type Journal[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type journalImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
	closed  bool
}

// OpenJournal creates a journal at path, truncating any previous content.
func OpenJournal[T any](path string) (Journal[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		slog.Error("failed to create journal directory", "path", path, "error", err)
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Error("failed to open journal", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	slog.Debug("opened journal", "path", path)

	return &journalImpl[T]{
		path:    path,
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append implements Journal.
func (j *journalImpl[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("journal %s is closed", j.path)
	}

	if err := j.encoder.Encode(item); err != nil {
		slog.Error("failed to encode journal entry", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	j.length++

	return nil
}

// Path implements Journal.
func (j *journalImpl[T]) Path() string {
	return j.path
}

// Len implements Journal.
func (j *journalImpl[T]) Len() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.length
}

// Range implements Journal.
func (j *journalImpl[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("failed to open journal for range", "path", j.path, "error", err)
		return fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close journal", "path", j.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range j.length {
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode journal entry", "path", j.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode journal entry %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements Journal. Closing twice is a no-op.
func (j *journalImpl[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	j.closed = true

	if err := j.file.Close(); err != nil {
		slog.Error("failed to close journal", "path", j.path, "error", err)
		return err
	}

	slog.Debug("closed journal", "path", j.path, "length", j.length)

	return nil
}

// ReadJournal decodes every complete entry of the journal at path.
// A torn trailing entry, left by a crash mid-write, is dropped.
func ReadJournal[T any](path string) ([]T, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close journal", "path", path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	var items []T

	for {
		var item T

		err := decoder.Decode(&item)
		if errors.Is(err, io.EOF) {
			return items, nil
		}

		if errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Warn("dropping torn journal entry", "path", path, "index", len(items))
			return items, nil
		}

		if err != nil {
			return items, fmt.Errorf("failed to decode journal entry %d: %w", len(items), err)
		}

		items = append(items, item)
	}
}
