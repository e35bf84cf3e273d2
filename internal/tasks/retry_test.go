package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/jitdj/internal/shared"
	tu "github.com/desertthunder/jitdj/internal/testing"
)

func TestRetryPolicy_Do(t *testing.T) {
	t.Run("fails twice then succeeds", func(t *testing.T) {
		delay := 20 * time.Millisecond
		calls := 0
		var first, last time.Time

		res := RetryPolicy{Attempts: 3, Delay: delay}.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				first = time.Now()
			}
			last = time.Now()
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		if !res.Succeeded() {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if res.Attempts != 3 || calls != 3 {
			t.Errorf("expected 3 attempts, got result=%d calls=%d", res.Attempts, calls)
		}
		if gap := last.Sub(first); gap < 2*delay {
			t.Errorf("expected at least %v between first and last attempt, got %v", 2*delay, gap)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		boom := errors.New("boom")
		res := RetryPolicy{Attempts: 3, Delay: time.Millisecond}.Do(context.Background(), func(ctx context.Context) error {
			return boom
		})

		if res.Succeeded() || !errors.Is(res.Err, boom) || res.Attempts != 3 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("zero attempts still tries once", func(t *testing.T) {
		calls := 0
		res := RetryPolicy{}.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		if calls != 1 || res.Attempts != 1 {
			t.Errorf("expected single attempt, got calls=%d attempts=%d", calls, res.Attempts)
		}
	})

	t.Run("no sleep after last attempt", func(t *testing.T) {
		res := RetryPolicy{Attempts: 1, Delay: time.Second}.Do(context.Background(), func(ctx context.Context) error {
			return errors.New("nope")
		})
		if res.Elapsed > 500*time.Millisecond {
			t.Errorf("slept after final attempt: %v", res.Elapsed)
		}
	})

	t.Run("context cancellation aborts wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		res := RetryPolicy{Attempts: 5, Delay: time.Hour}.Do(ctx, func(ctx context.Context) error {
			calls++
			cancel()
			return errors.New("fail")
		})

		if calls != 1 || !errors.Is(res.Err, context.Canceled) {
			t.Errorf("expected abort after first attempt, got calls=%d err=%v", calls, res.Err)
		}
	})

	t.Run("panic becomes error", func(t *testing.T) {
		res := RetryPolicy{Attempts: 2}.Do(context.Background(), func(ctx context.Context) error {
			panic("kaboom")
		})
		if res.Err == nil || !strings.Contains(res.Err.Error(), "kaboom") || res.Attempts != 2 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("multiplier grows delay", func(t *testing.T) {
		var stamps []time.Time
		RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond, Multiplier: 3}.Do(context.Background(), func(ctx context.Context) error {
			stamps = append(stamps, time.Now())
			return errors.New("fail")
		})

		if len(stamps) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(stamps))
		}
		if gap := stamps[2].Sub(stamps[1]); gap < 30*time.Millisecond {
			t.Errorf("second delay should be at least 30ms, got %v", gap)
		}
	})
}

func TestExecutor(t *testing.T) {
	t.Run("Inject retries then succeeds", func(t *testing.T) {
		player := &tu.MockPlayer{FailEnqueue: 2}
		exec := NewExecutor(player, RetryPolicy{Attempts: 3, Delay: 5 * time.Millisecond}, nil)

		if !exec.Inject(context.Background(), "spotify:track:b") {
			t.Fatal("expected injection to succeed")
		}
		attempts := player.Attempts()
		if len(attempts) != 3 {
			t.Errorf("expected 3 append attempts, got %d", len(attempts))
		}
		if gap := attempts[2].Sub(attempts[0]); gap < 10*time.Millisecond {
			t.Errorf("expected at least 2x delay between attempts, got %v", gap)
		}
	})

	t.Run("Inject reports failure", func(t *testing.T) {
		player := &tu.MockPlayer{EnqueueErr: errors.New("down")}
		exec := NewExecutor(player, RetryPolicy{Attempts: 2, Delay: time.Millisecond}, nil)

		res := exec.Enqueue(context.Background(), "spotify:track:b")
		if res.Succeeded() || !errors.Is(res.Err, shared.ErrInjectionFailed) || res.Attempts != 2 {
			t.Errorf("unexpected result: %+v", res)
		}
		if exec.Inject(context.Background(), "spotify:track:b") {
			t.Error("Inject() should report false")
		}
	})

	t.Run("panicking player is contained", func(t *testing.T) {
		exec := NewExecutor(&tu.MockPlayer{Panic: true}, RetryPolicy{Attempts: 1}, nil)
		if exec.Inject(context.Background(), "spotify:track:b") {
			t.Error("expected failure from panicking player")
		}
	})

	t.Run("StartPlayback failure", func(t *testing.T) {
		exec := NewExecutor(&tu.MockPlayer{StartErr: errors.New("no device")}, RetryPolicy{Attempts: 1}, nil)
		if res := exec.StartPlayback(context.Background(), "spotify:track:a"); !errors.Is(res.Err, shared.ErrPlaybackFailed) {
			t.Errorf("expected ErrPlaybackFailed, got %v", res.Err)
		}
	})
}

func TestInjectionState(t *testing.T) {
	var s InjectionState

	if changed, _ := s.Observe(""); changed {
		t.Error("empty identifier should never count as a change")
	}

	if changed, prev := s.Observe("a"); !changed || prev != "" {
		t.Errorf("first observation should be a change, got changed=%v prev=%q", changed, prev)
	}

	s.MarkInjected("b")
	if !s.Latched() || s.LastInjected() != "b" {
		t.Fatal("MarkInjected should latch and record")
	}

	if changed, _ := s.Observe("a"); changed || !s.Latched() {
		t.Error("same track must not clear the latch")
	}
	if changed, _ := s.Observe(""); changed || !s.Latched() {
		t.Error("empty identifier must not clear the latch")
	}

	if changed, prev := s.Observe("b"); !changed || prev != "a" || s.Latched() {
		t.Errorf("track change should clear latch, got changed=%v prev=%q latched=%v", changed, prev, s.Latched())
	}
	if s.LastPlaying() != "b" {
		t.Errorf("LastPlaying() = %q", s.LastPlaying())
	}
}

func TestEventKind(t *testing.T) {
	for k := EventCycle; k <= EventError; k++ {
		name := k.String()
		if name == "" {
			t.Errorf("kind %d has no name", k)
		}
		if parsed, ok := ParseEventKind(name); !ok || parsed != k {
			t.Errorf("ParseEventKind(%q) = %v, %v", name, parsed, ok)
		}
	}
	if _, ok := ParseEventKind("bogus"); ok {
		t.Error("unknown kind should not parse")
	}
}

func TestChannelSink_NonBlocking(t *testing.T) {
	ch := make(chan Event, 1)
	sink := ChannelSink(ch)

	done := make(chan struct{})
	go func() {
		sink.Record(EventInjection, nil)
		sink.Record(EventInjection, nil)
		sink.Record(EventInjection, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ChannelSink blocked on a full channel")
	}
	if len(ch) != 1 {
		t.Errorf("expected one buffered event, got %d", len(ch))
	}

	var nilSink ChannelSink
	nilSink.Record(EventCycle, nil)
}

func TestEventLog(t *testing.T) {
	ch := make(chan Event, 8)
	sink := ChannelSink(ch)
	sink.Record(EventSessionStart, nil)
	sink.Record(EventCycle, CycleRecord{Number: 1})
	sink.Record(EventTrackChange, nil)
	sink.Record(EventInjection, nil)
	sink.Record(EventSessionEnd, nil)
	close(ch)

	l := NewEventLog(2)
	l.Consume(context.Background(), ch)

	recent := l.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 kept events, got %d", len(recent))
	}
	if recent[0].Kind != EventInjection || recent[1].Kind != EventSessionEnd {
		t.Errorf("Recent() = [%s %s], want [injection session_end]", recent[0].Kind, recent[1].Kind)
	}

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			NewEventLog(0).Consume(ctx, make(chan Event))
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Consume() did not return after cancel")
		}
	})
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	MultiSink{a, nil, b}.Record(EventQueueUpdate, QueueUpdateData{Resolved: 1})

	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Errorf("expected event fanned out to both sinks")
	}
}
