package journal

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/desertthunder/jitdj/internal/tasks"
	"github.com/fsnotify/fsnotify"
)

// Line is one parsed journal record. Cycle is set for "cycle" records, Data for everything else.
type Line struct {
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Cycle     *tasks.CycleRecord `json:"cycle,omitempty"`
	Data      json.RawMessage    `json:"data,omitempty"`
}

// Kind maps the record type back to a [tasks.EventKind].
func (l Line) Kind() (tasks.EventKind, bool) {
	return tasks.ParseEventKind(l.Type)
}

// Decode unmarshals the data of an event record into v.
func (l Line) Decode(v any) error {
	if len(l.Data) == 0 {
		return fmt.Errorf("%w: %s record has no data", shared.ErrMalformedRecord, l.Type)
	}
	return json.Unmarshal(l.Data, v)
}

// ParseLine parses a single JSONL record.
func ParseLine(b []byte) (Line, error) {
	var head struct {
		Type      string          `json:"type"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return Line{}, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}
	if head.Type == "" {
		return Line{}, fmt.Errorf("%w: missing type", shared.ErrMalformedRecord)
	}

	line := Line{Type: head.Type, Timestamp: head.Timestamp}
	if head.Type != tasks.EventCycle.String() {
		line.Data = head.Data
		return line, nil
	}

	var rec tasks.CycleRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return Line{}, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}
	line.Cycle = &rec
	return line, nil
}

// Latest returns the most recently modified session journal in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", shared.ErrNoJournal, dir)
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: m, mod: info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", shared.ErrNoJournal, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mod.Equal(candidates[j].mod) {
			return candidates[i].path > candidates[j].path
		}
		return candidates[i].mod.After(candidates[j].mod)
	})
	return candidates[0].path, nil
}

// Read parses every record in r and passes it to fn. Malformed lines are counted and skipped.
func Read(r io.Reader, fn func(Line)) (malformed int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		line, err := ParseLine(b)
		if err != nil {
			malformed++
			continue
		}
		fn(line)
	}
	return malformed, scanner.Err()
}

// ReadFile is [Read] over the file at path.
func ReadFile(path string, fn func(Line)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()
	return Read(f, fn)
}

// Follow passes every record already in path to fn, then keeps delivering records as they are
// appended until ctx is done. Incomplete trailing lines are held back until their newline arrives.
func Follow(ctx context.Context, path string, fn func(Line)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	t := &tail{r: bufio.NewReader(f), fn: fn}
	if err := t.drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				return fmt.Errorf("journal %s was moved or removed", path)
			}
			if event.Has(fsnotify.Write) {
				if err := t.drain(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

type tail struct {
	r       *bufio.Reader
	pending []byte
	fn      func(Line)
}

// drain reads up to EOF and emits every complete line.
func (t *tail) drain() error {
	for {
		chunk, err := t.r.ReadBytes('\n')
		t.pending = append(t.pending, chunk...)

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		b := strings.TrimSpace(string(t.pending))
		t.pending = t.pending[:0]
		if b == "" {
			continue
		}
		if line, err := ParseLine([]byte(b)); err == nil {
			t.fn(line)
		}
	}
}
