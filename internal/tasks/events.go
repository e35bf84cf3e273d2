package tasks

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
)

// EventKind identifies the payload passed to an [EventSink].
type EventKind int

const (
	EventCycle EventKind = iota
	EventSessionStart
	EventTrackChange
	EventInjection
	EventInjectionFailed
	EventQueueUpdate
	EventSessionEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventCycle:
		return "cycle"
	case EventSessionStart:
		return "session_start"
	case EventTrackChange:
		return "track_change"
	case EventInjection:
		return "injection"
	case EventInjectionFailed:
		return "injection_failed"
	case EventQueueUpdate:
		return "queue_update"
	case EventSessionEnd:
		return "session_end"
	case EventError:
		return "error"
	default:
		return ""
	}
}

// ParseEventKind is the inverse of [EventKind.String].
func ParseEventKind(s string) (EventKind, bool) {
	for k := EventCycle; k <= EventError; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// EventSink receives session events. Implementations must return quickly.
type EventSink interface {
	Record(kind EventKind, payload any)
}

// CycleRecord is emitted once per scheduler iteration.
type CycleRecord struct {
	Number      int           `json:"cycle_number"`
	Timestamp   time.Time     `json:"timestamp"`
	NowPlaying  *NowPlaying   `json:"now_playing"`
	ShadowQueue QueueView     `json:"shadow_queue"`
	Injection   InjectionView `json:"injection_state"`
}

// NowPlaying describes the current track. Progress and Duration are in seconds.
type NowPlaying struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Identifier string  `json:"identifier"`
	Progress   float64 `json:"progress"`
	Duration   float64 `json:"duration"`
}

type QueueView struct {
	Remaining int               `json:"remaining"`
	NextItem  *models.QueueItem `json:"next_item"`
}

type InjectionView struct {
	Eligible        bool    `json:"eligible"`
	TimeRemaining   float64 `json:"time_remaining"`
	AlreadyInjected bool    `json:"already_injected"`
	LastInjected    string  `json:"last_injected_identifier"`
}

func nowPlayingFrom(snap models.PlaybackSnapshot) *NowPlaying {
	return &NowPlaying{
		Title:      snap.Title,
		Artist:     snap.Artist,
		Identifier: snap.TrackURI,
		Progress:   snap.Progress.Seconds(),
		Duration:   snap.Duration.Seconds(),
	}
}

// SessionStartData is the payload of [EventSessionStart].
type SessionStartData struct {
	SessionID string           `json:"session_id"`
	Requested int              `json:"requested"`
	Resolved  int              `json:"resolved"`
	Skipped   []string         `json:"skipped,omitempty"`
	First     models.QueueItem `json:"first"`
}

// TrackChangeData is the payload of [EventTrackChange].
type TrackChangeData struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// InjectionData is the payload of [EventInjection] and [EventInjectionFailed].
type InjectionData struct {
	Item          models.QueueItem `json:"item"`
	Attempts      int              `json:"attempts"`
	TimeRemaining float64          `json:"time_remaining"`
	Remaining     int              `json:"queue_remaining"`
	Skipped       bool             `json:"skipped,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// QueueUpdateData is the payload of [EventQueueUpdate].
type QueueUpdateData struct {
	Requested int      `json:"requested"`
	Resolved  int      `json:"resolved"`
	Skipped   []string `json:"skipped,omitempty"`
}

// SessionEndData is the payload of [EventSessionEnd].
type SessionEndData struct {
	Reason   StopReason `json:"reason"`
	Cycles   int        `json:"cycles"`
	Injected int        `json:"injected"`
	Failures int        `json:"failures"`
	Duration float64    `json:"duration"`
	Error    string     `json:"error,omitempty"`
}

// ErrorData is the payload of [EventError].
type ErrorData struct {
	Cycle int    `json:"cycle"`
	Error string `json:"error"`
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Record(EventKind, any) {}

// LogSink writes events to a [log.Logger]. Cycle records are logged at debug level.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a [LogSink]. A nil logger discards output.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(kind EventKind, payload any) {
	switch p := payload.(type) {
	case CycleRecord:
		kv := []any{"cycle", p.Number, "queue", p.ShadowQueue.Remaining, "eligible", p.Injection.Eligible}
		if p.NowPlaying != nil {
			kv = append(kv, "track", p.NowPlaying.Title, "left", p.Injection.TimeRemaining)
		}
		s.logger.Debug("cycle", kv...)
	case SessionStartData:
		s.logger.Info("session started", "id", p.SessionID, "resolved", p.Resolved, "requested", p.Requested, "first", p.First.String())
	case TrackChangeData:
		s.logger.Info("track changed", "title", p.Title, "artist", p.Artist)
	case InjectionData:
		if kind == EventInjectionFailed {
			s.logger.Warn("injection failed", "item", p.Item.String(), "attempts", p.Attempts, "skipped", p.Skipped, "err", p.Error)
			return
		}
		s.logger.Info("injected", "item", p.Item.String(), "attempts", p.Attempts, "queue", p.Remaining)
	case QueueUpdateData:
		s.logger.Info("queue updated", "resolved", p.Resolved, "requested", p.Requested)
	case SessionEndData:
		s.logger.Info("session ended", "reason", p.Reason, "injected", p.Injected, "failures", p.Failures, "cycles", p.Cycles)
	case ErrorData:
		s.logger.Error("session error", "cycle", p.Cycle, "err", p.Error)
	default:
		s.logger.Info(kind.String(), "payload", payload)
	}
}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Record(kind EventKind, payload any) {
	for _, s := range m {
		if s != nil {
			s.Record(kind, payload)
		}
	}
}

// Event is the value delivered by a [ChannelSink].
type Event struct {
	Kind    EventKind
	Payload any
	At      time.Time
}

// ChannelSink forwards events to a channel without blocking. Events are dropped when the channel is full.
type ChannelSink chan<- Event

func (c ChannelSink) Record(kind EventKind, payload any) {
	if c == nil {
		return
	}
	select {
	case c <- Event{Kind: kind, Payload: payload, At: time.Now()}:
	default:
	}
}

// EventLog keeps the last few events read from a [ChannelSink]'s channel. Cycle events are not kept.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	size   int
}

func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = 20
	}
	return &EventLog{size: size}
}

// Consume reads ch until ctx is done or ch is closed.
func (l *EventLog) Consume(ctx context.Context, ch <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			l.add(ev)
		}
	}
}

func (l *EventLog) add(ev Event) {
	if ev.Kind == EventCycle {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	if over := len(l.events) - l.size; over > 0 {
		l.events = append(l.events[:0:0], l.events[over:]...)
	}
}

// Recent returns the kept events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
