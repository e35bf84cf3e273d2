package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
)

func mapResolver(known map[string]string) Resolver {
	return ResolverFunc(func(ctx context.Context, title, artist string) (string, error) {
		if uri, ok := known[title+"|"+artist]; ok {
			return uri, nil
		}
		return "", shared.ErrTrackNotFound
	})
}

var fastOpts = Options{Workers: 3, Rate: 1000}

func reqs(pairs ...string) []models.Request {
	out := make([]models.Request, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Request{Title: pairs[i], Artist: pairs[i+1]})
	}
	return out
}

func TestShadowQueue_Initialize(t *testing.T) {
	known := map[string]string{
		"A|X": "spotify:track:a",
		"B|Y": "spotify:track:b",
		"C|Z": "spotify:track:c",
	}

	tests := []struct {
		name         string
		requests     []models.Request
		wantURIs     []string
		wantSkipped  int
		wantResolved int
	}{
		{
			name:         "all resolve in order",
			requests:     reqs("A", "X", "B", "Y", "C", "Z"),
			wantURIs:     []string{"spotify:track:a", "spotify:track:b", "spotify:track:c"},
			wantResolved: 3,
		},
		{
			name:         "unresolved item dropped",
			requests:     reqs("A", "X", "Nope", "Nobody", "C", "Z"),
			wantURIs:     []string{"spotify:track:a", "spotify:track:c"},
			wantResolved: 2,
			wantSkipped:  1,
		},
		{
			name:        "missing artist skipped",
			requests:    reqs("A", "", "B", "Y"),
			wantURIs:    []string{"spotify:track:b"},
			wantSkipped: 1, wantResolved: 1,
		},
		{
			name:     "empty request list",
			requests: nil,
			wantURIs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(mapResolver(known), nil, fastOpts)

			report, err := q.Initialize(context.Background(), tt.requests)
			if err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if report.Resolved != tt.wantResolved || len(report.Skipped) != tt.wantSkipped {
				t.Errorf("report = %+v, want resolved=%d skipped=%d", report, tt.wantResolved, tt.wantSkipped)
			}
			if q.RemainingCount() != len(tt.wantURIs) {
				t.Fatalf("RemainingCount() = %d, want %d", q.RemainingCount(), len(tt.wantURIs))
			}
			for i, item := range q.Items() {
				if item.URI != tt.wantURIs[i] {
					t.Errorf("item %d uri = %s, want %s", i, item.URI, tt.wantURIs[i])
				}
			}
		})
	}

	t.Run("resolver errors wrap ErrResolution", func(t *testing.T) {
		q := New(mapResolver(nil), nil, fastOpts)
		report, err := q.Initialize(context.Background(), reqs("A", "X"))
		if err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if len(report.Skipped) != 1 || !errors.Is(report.Skipped[0].Err, shared.ErrResolution) {
			t.Errorf("expected ErrResolution in report, got %+v", report.Skipped)
		}
	})

	t.Run("cancelled context leaves queue untouched", func(t *testing.T) {
		q := New(mapResolver(known), nil, fastOpts)
		q.Load([]models.QueueItem{{Title: "Old", Artist: "O", URI: "spotify:track:old"}})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := q.Initialize(ctx, reqs("A", "X", "B", "Y")); err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if item, ok := q.Peek(); !ok || item.URI != "spotify:track:old" {
			t.Errorf("queue should be unchanged, got %+v", item)
		}
	})
}

func TestShadowQueue_PopPeek(t *testing.T) {
	q := New(nil, nil, Options{})
	q.Load([]models.QueueItem{
		{Title: "A", Artist: "X", URI: "spotify:track:a"},
		{Title: "B", Artist: "Y", URI: "spotify:track:b"},
	})

	t.Run("peek is idempotent", func(t *testing.T) {
		first, ok1 := q.Peek()
		second, ok2 := q.Peek()
		if !ok1 || !ok2 || first != second {
			t.Errorf("Peek() not idempotent: %+v vs %+v", first, second)
		}
		if q.RemainingCount() != 2 {
			t.Errorf("Peek() should not consume, remaining = %d", q.RemainingCount())
		}
	})

	t.Run("pop advances", func(t *testing.T) {
		item, ok := q.Pop()
		if !ok || item.Title != "A" {
			t.Fatalf("Pop() = %+v, %v", item, ok)
		}
		if q.RemainingCount() != 1 {
			t.Errorf("RemainingCount() = %d, want 1", q.RemainingCount())
		}
		item, _ = q.Peek()
		if item.Title != "B" {
			t.Errorf("Peek() after pop = %s, want B", item.Title)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		q.Pop()
		if _, ok := q.Pop(); ok {
			t.Error("Pop() on exhausted queue should report false")
		}
		if _, ok := q.Peek(); ok {
			t.Error("Peek() on exhausted queue should report false")
		}
		if q.RemainingCount() != 0 {
			t.Errorf("RemainingCount() = %d, want 0", q.RemainingCount())
		}
	})

	t.Run("replacement resets cursor", func(t *testing.T) {
		q.Load([]models.QueueItem{{Title: "C", Artist: "Z", URI: "spotify:track:c"}})
		if q.RemainingCount() != 1 {
			t.Errorf("after replace remaining=%d, want 1", q.RemainingCount())
		}
		if item, _ := q.Peek(); item.Title != "C" {
			t.Errorf("Peek() after replace = %s, want C", item.Title)
		}
	})
}

func TestShadowQueue_Replace(t *testing.T) {
	known := map[string]string{
		"A|X": "spotify:track:a",
		"B|Y": "spotify:track:b",
		"C|Z": "spotify:track:c",
		"D|W": "spotify:track:d",
	}

	t.Run("partly unresolvable after pop", func(t *testing.T) {
		q := New(mapResolver(known), nil, fastOpts)
		if _, err := q.Initialize(context.Background(), reqs("A", "X", "B", "Y")); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if item, ok := q.Pop(); !ok || item.Title != "A" {
			t.Fatalf("Pop() = %+v, %v", item, ok)
		}

		report, err := q.Replace(context.Background(), reqs("C", "Z", "Nope", "Nobody", "D", "W"))
		if err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
		if report.Resolved != 2 || len(report.Skipped) != 1 {
			t.Errorf("report = %+v, want 2 resolved and 1 skipped", report)
		}
		if q.RemainingCount() != report.Resolved {
			t.Errorf("RemainingCount() = %d, want %d", q.RemainingCount(), report.Resolved)
		}
		if item, ok := q.Pop(); !ok || item.Title != "C" {
			t.Errorf("Pop() after replace = %+v, %v, want C", item, ok)
		}
	})

	t.Run("nothing resolves empties the queue", func(t *testing.T) {
		q := New(mapResolver(known), nil, fastOpts)
		if _, err := q.Initialize(context.Background(), reqs("A", "X", "B", "Y")); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}

		report, err := q.Replace(context.Background(), reqs("Nope", "Nobody"))
		if err != nil {
			t.Fatalf("Replace() error = %v", err)
		}
		if report.Resolved != 0 || q.RemainingCount() != 0 {
			t.Errorf("resolved=%d remaining=%d, want an empty queue", report.Resolved, q.RemainingCount())
		}
		if _, ok := q.Peek(); ok {
			t.Error("Peek() on replaced empty queue should report false")
		}
	})
}

func TestShadowQueue_PopIf(t *testing.T) {
	q := New(nil, nil, Options{})
	q.Load([]models.QueueItem{{Title: "A", Artist: "X", URI: "spotify:track:a"}})

	_, gen, ok := q.PeekWithGeneration()
	if !ok {
		t.Fatal("expected an item")
	}

	q.Load([]models.QueueItem{{Title: "B", Artist: "Y", URI: "spotify:track:b"}})

	if _, ok := q.PopIf(gen); ok {
		t.Error("PopIf() with stale generation should not pop")
	}
	if q.RemainingCount() != 1 {
		t.Errorf("stale PopIf consumed an item, remaining = %d", q.RemainingCount())
	}

	_, gen, _ = q.PeekWithGeneration()
	if item, ok := q.PopIf(gen); !ok || item.Title != "B" {
		t.Errorf("PopIf() = %+v, %v", item, ok)
	}
}

func TestShadowQueue_Concurrent(t *testing.T) {
	q := New(nil, nil, Options{})
	items := make([]models.QueueItem, 100)
	for i := range items {
		items[i] = models.QueueItem{Title: fmt.Sprint(i), Artist: "X", URI: fmt.Sprintf("spotify:track:%d", i)}
	}
	q.Load(items)

	var popped atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := q.Pop(); !ok {
					return
				}
				popped.Add(1)
			}
		}()
	}
	wg.Wait()

	if popped.Load() != 100 {
		t.Errorf("expected each item popped exactly once, got %d pops", popped.Load())
	}

	t.Run("replace while popping", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Load(items[:10])
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				q.Pop()
				if n := q.RemainingCount(); n < 0 || n > 10 {
					t.Errorf("RemainingCount() out of range: %d", n)
					return
				}
			}
		}()
		wg.Wait()
	})
}
