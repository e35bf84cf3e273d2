// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
)

// MockResolver resolves "title|artist" keys from a fixed map.
type MockResolver struct {
	mu    sync.Mutex
	known map[string]string
	calls int
}

func NewMockResolver(known map[string]string) *MockResolver {
	return &MockResolver{known: known}
}

func (m *MockResolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if uri, ok := m.known[title+"|"+artist]; ok {
		return uri, nil
	}
	return "", shared.ErrTrackNotFound
}

func (m *MockResolver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockOracle replays a script of snapshots, repeating the last one when the script runs out.
//
// A nil Err with an empty script reports an idle player.
type MockOracle struct {
	mu     sync.Mutex
	script []models.PlaybackSnapshot
	next   int
	calls  int
	Err    error
	hook   func(call int) (models.PlaybackSnapshot, error)
}

func NewMockOracle(script ...models.PlaybackSnapshot) *MockOracle {
	return &MockOracle{script: script}
}

// NewMockOracleFunc builds an oracle whose answer is computed from the 1-based call number.
func NewMockOracleFunc(fn func(call int) (models.PlaybackSnapshot, error)) *MockOracle {
	return &MockOracle{hook: fn}
}

func (m *MockOracle) Snapshot(ctx context.Context) (models.PlaybackSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.hook != nil {
		return m.hook(m.calls)
	}
	if m.Err != nil {
		return models.PlaybackSnapshot{}, m.Err
	}
	if len(m.script) == 0 {
		return models.PlaybackSnapshot{}, nil
	}

	snap := m.script[m.next]
	if m.next < len(m.script)-1 {
		m.next++
	}
	return snap, nil
}

func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Playing builds a snapshot of uri at progress out of duration seconds.
func Playing(uri string, progress, duration float64) models.PlaybackSnapshot {
	return models.PlaybackSnapshot{
		IsPlaying: true,
		TrackURI:  uri,
		Title:     uri,
		Progress:  shared.Seconds(progress),
		Duration:  shared.Seconds(duration),
	}
}

// MockPlayer records calls and fails the first FailEnqueue enqueue attempts.
type MockPlayer struct {
	mu          sync.Mutex
	FailEnqueue int
	StartErr    error
	EnqueueErr  error // returned for every enqueue when set
	Panic       bool

	started  []string
	enqueued []string
	attempts []time.Time
}

func (m *MockPlayer) StartPlayback(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = append(m.started, uri)
	return nil
}

func (m *MockPlayer) Enqueue(ctx context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts = append(m.attempts, time.Now())
	if m.Panic {
		panic("player exploded")
	}
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	if len(m.attempts) <= m.FailEnqueue {
		return errors.New("transient enqueue failure")
	}
	m.enqueued = append(m.enqueued, uri)
	return nil
}

func (m *MockPlayer) Started() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.started...)
}

func (m *MockPlayer) Enqueued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.enqueued...)
}

func (m *MockPlayer) Attempts() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.attempts...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
