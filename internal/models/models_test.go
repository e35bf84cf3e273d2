package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestQueueItem(t *testing.T) {
	t.Run("rejects empty identifier", func(t *testing.T) {
		if _, err := NewQueueItem("Song", "Artist", "  "); err == nil {
			t.Error("expected error for empty identifier")
		}
	})

	t.Run("keeps fields", func(t *testing.T) {
		item, err := NewQueueItem("Song", "Artist", "spotify:track:1")
		if err != nil {
			t.Fatalf("NewQueueItem() error = %v", err)
		}
		if item.URI != "spotify:track:1" || item.String() != "Song - Artist" {
			t.Errorf("unexpected item: %+v", item)
		}
	})
}

func TestRequestValid(t *testing.T) {
	tc := []struct {
		req  Request
		want bool
	}{
		{Request{Title: "A", Artist: "B"}, true},
		{Request{Title: "", Artist: "B"}, false},
		{Request{Title: "A", Artist: "   "}, false},
	}

	for _, tt := range tc {
		if got := tt.req.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.req, got, tt.want)
		}
	}
}

func TestPlaybackSnapshotRemaining(t *testing.T) {
	tc := []struct {
		name     string
		progress time.Duration
		duration time.Duration
		want     time.Duration
	}{
		{"mid track", 185 * time.Second, 200 * time.Second, 15 * time.Second},
		{"overrun", 210 * time.Second, 200 * time.Second, 0},
		{"unknown duration", 5 * time.Second, 0, 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			snap := PlaybackSnapshot{Progress: tt.progress, Duration: tt.duration}
			if got := snap.Remaining(); got != tt.want {
				t.Errorf("Remaining() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionRecord(t *testing.T) {
	rec := NewSessionRecord("abc", 3, 2, "logs/x.jsonl")
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if rec.Status() != SessionRunning {
		t.Errorf("expected running status, got %s", rec.Status())
	}

	at := time.Now()
	rec.Finish("queue_exhausted", 2, 0, 10, false, at)
	if rec.Status() != SessionFinished || rec.EndedAt() == nil || rec.Cycles() != 10 {
		t.Errorf("unexpected record after finish: %+v", rec)
	}

	rec.Finish("internal_error", 2, 1, 11, true, at)
	if rec.Status() != SessionFailed {
		t.Errorf("expected failed status, got %s", rec.Status())
	}

	if err := NewSessionRecord("abc", 1, 2, "").Validate(); err == nil {
		t.Error("resolved greater than requested should be invalid")
	}
}

func TestResolutionValidate(t *testing.T) {
	if err := NewResolution("", "a", "b", "uri").Validate(); err == nil {
		t.Error("expected error for missing key")
	}
	if err := NewResolution("a|b", "a", "b", "").Validate(); err == nil {
		t.Error("expected error for missing uri")
	}
	if err := NewResolution("a|b", "a", "b", "spotify:track:1").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRequests(t *testing.T) {
	dir := t.TempDir()

	tc := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "queue.toml", "[[tracks]]\ntitle = \"One\"\nartist = \"A\"\n\n[[tracks]]\ntitle = \"Two\"\nartist = \"B\"\n"},
		{"json array", "queue.json", `[{"title":"One","artist":"A"},{"title":"Two","artist":"B"}]`},
		{"json object", "object.json", `{"tracks":[{"title":"One","artist":"A"},{"title":"Two","artist":"B"}]}`},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write queue file: %v", err)
			}

			reqs, err := LoadRequests(path)
			if err != nil {
				t.Fatalf("LoadRequests() error = %v", err)
			}
			if len(reqs) != 2 || reqs[0].Title != "One" || reqs[1].Artist != "B" {
				t.Errorf("unexpected requests: %+v", reqs)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRequests(filepath.Join(dir, "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := ParseRequests([]byte("[[tracks"), ".toml"); err == nil {
			t.Error("expected parse error")
		}
	})
}
