package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LineCapWriter appends to a log file and keeps it to roughly the last maxLines lines.
// Once twice the cap has been written, the file is rewritten with only the newest lines.
type LineCapWriter struct {
	mu       sync.Mutex
	file     io.WriteCloser
	path     string
	maxLines int
	tail     []string // newest lines, oldest first
	pending  int      // lines written since the last rewrite
}

// NewLineCapWriter opens path for appending.
func NewLineCapWriter(path string, maxLines int) (*LineCapWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}
	if maxLines <= 0 {
		maxLines = 10000
	}

	return &LineCapWriter{
		file:     file,
		path:     path,
		maxLines: maxLines,
		tail:     make([]string, 0, maxLines),
	}, nil
}

// Write implements io.Writer.
func (w *LineCapWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		if len(w.tail) == w.maxLines {
			w.tail = append(w.tail[:0], w.tail[1:]...)
		}
		w.tail = append(w.tail, line)
		w.pending++
	}

	if w.pending >= w.maxLines*2 {
		if err := w.truncate(); err != nil {
			return n, fmt.Errorf("failed to truncate log file: %w", err)
		}
	}

	return n, nil
}

// Sync is a no-op; writes go straight to the file.
func (w *LineCapWriter) Sync() error {
	return nil
}

// Close closes the underlying file.
func (w *LineCapWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// truncate replaces the file with the retained tail. Callers hold mu.
func (w *LineCapWriter) truncate() error {
	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}
	tempPath := temp.Name()

	if _, err := temp.WriteString(strings.Join(w.tail, "\n") + "\n"); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return err
	}
	temp.Close()

	w.file.Close()
	os.Remove(w.path) // rename over an open file fails on Windows

	if err := os.Rename(tempPath, w.path); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.file = file
	w.pending = len(w.tail)
	return nil
}
