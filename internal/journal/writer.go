package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/tasks"
)

const (
	filePrefix = "session_"
	fileSuffix = ".jsonl"
)

type cycleLine struct {
	Type string `json:"type"`
	tasks.CycleRecord
}

type eventLine struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Writer appends session records to a JSONL file. It implements [tasks.EventSink].
//
// Write failures never reach the scheduler; the first one is kept and returned by [Writer.Err].
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
	path   string
	logger *log.Logger
	err    error
	lines  int
}

// FileName returns the journal file name for a session started at t by process pid.
func FileName(t time.Time, pid int) string {
	return fmt.Sprintf("%s%d_%d%s", filePrefix, t.Unix(), pid, fileSuffix)
}

// Create opens a new journal file in dir, creating the directory if needed.
func Create(dir string, logger *log.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	path := filepath.Join(dir, FileName(time.Now(), os.Getpid()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	w := NewWriter(f, logger)
	w.closer = f
	w.path = path
	return w, nil
}

// NewWriter writes records to w. A nil logger discards output.
func NewWriter(w io.Writer, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Writer{w: w, enc: json.NewEncoder(w), logger: logger}
}

// Path is the journal file path, empty for writers not created by [Create].
func (w *Writer) Path() string { return w.path }

// Record implements [tasks.EventSink].
func (w *Writer) Record(kind tasks.EventKind, payload any) {
	var line any
	if rec, ok := payload.(tasks.CycleRecord); ok {
		line = cycleLine{Type: kind.String(), CycleRecord: rec}
	} else {
		line = eventLine{Type: kind.String(), Timestamp: time.Now(), Data: payload}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enc == nil {
		return
	}
	if err := w.enc.Encode(line); err != nil {
		if w.err == nil {
			w.err = err
			w.logger.Warn("journal write failed", "path", w.path, "err", err)
		}
		return
	}
	w.lines++
}

// Lines is the number of records written so far.
func (w *Writer) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close flushes and closes the underlying file. Records after Close are dropped.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.enc = nil
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}
