package shared

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNormalizeTrackKey(t *testing.T) {
	tc := []struct {
		name   string
		title  string
		artist string
		want   string
	}{
		{name: "basic normalization", title: "Song Title", artist: "Artist Name", want: "song title|artist name"},
		{name: "extra whitespace", title: "  Song   Title  ", artist: "  Artist   Name  ", want: "song title|artist name"},
		{name: "mixed case", title: "SoNg TiTlE", artist: "ArTiSt NaMe", want: "song title|artist name"},
		{name: "empty artist", title: "Song", artist: "", want: "song|"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTrackKey(tt.title, tt.artist); got != tt.want {
				t.Errorf("NormalizeTrackKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
		{65 * time.Second, "1:05"},
		{200 * time.Second, "3:20"},
		{3723 * time.Second, "1:02:03"},
		{1500 * time.Millisecond, "0:01"},
	}

	for _, tt := range tc {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSeconds(t *testing.T) {
	if got := Seconds(1.5); got != 1500*time.Millisecond {
		t.Errorf("Seconds(1.5) = %v", got)
	}
	if got := Seconds(0); got != 0 {
		t.Errorf("Seconds(0) = %v", got)
	}
}

func TestLogger(t *testing.T) {
	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "session", "abc")
		logger.Info("hello")

		if out := buf.String(); !strings.Contains(out, "session=abc") || !strings.Contains(out, "hello") {
			t.Errorf("unexpected log output: %q", out)
		}
	})

	t.Run("SetLogLevel", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.WarnLevel)
		logger.Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("info should be filtered at warn level, got %q", buf.String())
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if a == b || len(a) != 32 {
		t.Errorf("expected distinct 32 char tokens, got %q and %q", a, b)
	}
}

func TestOpenBrowser(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	getRuntime = func() string { return "plan9" }
	if err := OpenBrowser("http://127.0.0.1"); err == nil || !strings.Contains(err.Error(), "unsupported platform") {
		t.Errorf("expected unsupported platform error, got %v", err)
	}
}
