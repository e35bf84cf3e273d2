package journal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/desertthunder/jitdj/internal/tasks"
	tu "github.com/desertthunder/jitdj/internal/testing"
)

func sampleCycle(n int) tasks.CycleRecord {
	next := models.QueueItem{Title: "Song B", Artist: "Band", URI: "spotify:track:b"}
	return tasks.CycleRecord{
		Number:    n,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		NowPlaying: &tasks.NowPlaying{
			Title:      "Song A",
			Artist:     "Band",
			Identifier: "spotify:track:a",
			Progress:   185,
			Duration:   200,
		},
		ShadowQueue: tasks.QueueView{Remaining: 2, NextItem: &next},
		Injection: tasks.InjectionView{
			Eligible:      true,
			TimeRemaining: 15,
			LastInjected:  "spotify:track:a",
		},
	}
}

func TestWriter(t *testing.T) {
	t.Run("cycle record shape", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, nil)
		w.Record(tasks.EventCycle, sampleCycle(7))

		out := buf.String()
		for _, want := range []string{
			`"type":"cycle"`,
			`"cycle_number":7`,
			`"now_playing":{"title":"Song A"`,
			`"shadow_queue":{"remaining":2`,
			`"injection_state":{"eligible":true,"time_remaining":15,"already_injected":false,"last_injected_identifier":"spotify:track:a"}`,
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %s in %s", want, out)
			}
		}
		if strings.Count(out, "\n") != 1 {
			t.Errorf("expected exactly one line, got %q", out)
		}
	})

	t.Run("event record shape", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, nil)
		w.Record(tasks.EventSessionEnd, tasks.SessionEndData{Reason: tasks.ReasonQueueExhausted, Injected: 3})

		out := buf.String()
		for _, want := range []string{`"type":"session_end"`, `"timestamp":`, `"data":{"reason":"queue_exhausted"`, `"injected":3`} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %s in %s", want, out)
			}
		}
		if w.Lines() != 1 {
			t.Errorf("Lines() = %d, want 1", w.Lines())
		}
	})

	t.Run("write errors are kept", func(t *testing.T) {
		w := NewWriter(&tu.FWriter{}, nil)
		w.Record(tasks.EventError, tasks.ErrorData{Error: "boom"})
		w.Record(tasks.EventError, tasks.ErrorData{Error: "again"})

		if w.Err() == nil {
			t.Error("expected write error to be recorded")
		}
		if w.Lines() != 0 {
			t.Errorf("Lines() = %d, want 0", w.Lines())
		}
	})

	t.Run("create names file by session", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "logs")
		w, err := Create(dir, nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		w.Record(tasks.EventCycle, sampleCycle(1))
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		tu.AssertFileExists(t, w.Path())
		name := filepath.Base(w.Path())
		if !strings.HasPrefix(name, "session_") || !strings.HasSuffix(name, ".jsonl") {
			t.Errorf("unexpected journal name %q", name)
		}

		w.Record(tasks.EventCycle, sampleCycle(2))
		if content := tu.MustReadFile(t, w.Path()); strings.Count(content, "\n") != 1 {
			t.Errorf("records after Close must be dropped, got %q", content)
		}
	})

	t.Run("concurrent records stay line delimited", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, nil)

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				w.Record(tasks.EventCycle, sampleCycle(n))
			}(i)
		}
		wg.Wait()

		bad, err := Read(&buf, func(Line) {})
		if err != nil || bad != 0 {
			t.Errorf("Read() malformed=%d err=%v", bad, err)
		}
	})
}

func TestFileName(t *testing.T) {
	got := FileName(time.Unix(1700000000, 0), 4242)
	if got != "session_1700000000_4242.jsonl" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestParseLine(t *testing.T) {
	t.Run("round trip through writer", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf, nil)
		w.Record(tasks.EventCycle, sampleCycle(3))
		w.Record(tasks.EventInjection, tasks.InjectionData{Item: models.QueueItem{Title: "Song B", Artist: "Band", URI: "spotify:track:b"}, Attempts: 2})

		var lines []Line
		if _, err := Read(&buf, func(l Line) { lines = append(lines, l) }); err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}

		cycle := lines[0]
		if cycle.Cycle == nil || cycle.Cycle.Number != 3 || cycle.Cycle.ShadowQueue.NextItem.URI != "spotify:track:b" {
			t.Errorf("unexpected cycle line: %+v", cycle)
		}
		if kind, ok := cycle.Kind(); !ok || kind != tasks.EventCycle {
			t.Errorf("Kind() = %v, %v", kind, ok)
		}

		var inj tasks.InjectionData
		if err := lines[1].Decode(&inj); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if inj.Item.Title != "Song B" || inj.Attempts != 2 {
			t.Errorf("unexpected injection payload: %+v", inj)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		tests := []string{`not json`, `{"data":{}}`, `{"type":"cycle","cycle_number":"seven"}`}
		for _, in := range tests {
			if _, err := ParseLine([]byte(in)); !errors.Is(err, shared.ErrMalformedRecord) {
				t.Errorf("ParseLine(%q) error = %v, want ErrMalformedRecord", in, err)
			}
		}
	})

	t.Run("decode without data", func(t *testing.T) {
		line, err := ParseLine([]byte(`{"type":"session_end","timestamp":"2025-01-02T03:04:05Z"}`))
		if err != nil {
			t.Fatalf("ParseLine() error = %v", err)
		}
		var end tasks.SessionEndData
		if err := line.Decode(&end); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("Decode() error = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("read skips bad lines", func(t *testing.T) {
		in := "{\"type\":\"error\",\"data\":{\"cycle\":1,\"error\":\"x\"}}\n\ngarbage\n{\"type\":\"queue_update\",\"data\":{}}\n"
		count := 0
		bad, err := Read(strings.NewReader(in), func(Line) { count++ })
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if count != 2 || bad != 1 {
			t.Errorf("parsed=%d malformed=%d, want 2 and 1", count, bad)
		}
	})
}

func TestLatest(t *testing.T) {
	t.Run("picks newest", func(t *testing.T) {
		dir := t.TempDir()
		old := filepath.Join(dir, "session_100_1.jsonl")
		recent := filepath.Join(dir, "session_200_1.jsonl")
		tu.MustWriteFile(t, old, "")
		tu.MustWriteFile(t, recent, "")
		tu.MustWriteFile(t, filepath.Join(dir, "notes.txt"), "")

		past := time.Now().Add(-time.Hour)
		if err := os.Chtimes(old, past, past); err != nil {
			t.Fatal(err)
		}

		got, err := Latest(dir)
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if got != recent {
			t.Errorf("Latest() = %q, want %q", got, recent)
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if _, err := Latest(t.TempDir()); !errors.Is(err, shared.ErrNoJournal) {
			t.Errorf("Latest() error = %v, want ErrNoJournal", err)
		}
	})
}

func TestFollow(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(time.Now(), 1))
	tu.MustWriteFile(t, path, "{\"type\":\"session_start\",\"data\":{\"session_id\":\"s1\"}}\n")

	lines := make(chan Line, 10)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, func(l Line) { lines <- l }) }()

	next := func() Line {
		t.Helper()
		select {
		case l := <-lines:
			return l
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for journal line")
			return Line{}
		}
	}

	if l := next(); l.Type != "session_start" {
		t.Fatalf("first line type = %q", l.Type)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := NewWriter(f, nil)
	w.Record(tasks.EventCycle, sampleCycle(1))
	if l := next(); l.Cycle == nil || l.Cycle.Number != 1 {
		t.Errorf("expected appended cycle, got %+v", l)
	}

	if _, err := f.WriteString(`{"type":"session_end",`); err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("\"data\":{\"reason\":\"stopped\"}}\n"); err != nil {
		t.Fatal(err)
	}
	if l := next(); l.Type != "session_end" {
		t.Errorf("expected split line to be joined, got %q", l.Type)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Follow() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
