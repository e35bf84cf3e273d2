package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/queue"
	"github.com/desertthunder/jitdj/internal/services"
	"github.com/desertthunder/jitdj/internal/shared"
)

// SchedulerOpts tunes the injection loop.
type SchedulerOpts struct {
	Threshold     time.Duration // Inject once this much or less of the current track is left
	PollInterval  time.Duration // Sleep between snapshot and decision
	MaxDuration   time.Duration // Zero means unbounded
	FailurePolicy string        // shared.FailurePolicyRetry or shared.FailurePolicySkip
}

// Scheduler is the background loop that decides when to inject.
type Scheduler struct {
	queue    *queue.ShadowQueue
	state    *InjectionState
	oracle   services.Oracle
	executor *Executor
	sink     EventSink
	logger   *log.Logger
	opts     SchedulerOpts

	lifecycle atomic.Int32
	stopped   atomic.Bool
	ran       atomic.Bool
}

// NewScheduler creates an idle [Scheduler] over a shared queue and injection state.
func NewScheduler(
	q *queue.ShadowQueue,
	state *InjectionState,
	oracle services.Oracle,
	executor *Executor,
	sink EventSink,
	logger *log.Logger,
	opts SchedulerOpts,
) *Scheduler {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = shared.FailurePolicyRetry
	}
	return &Scheduler{
		queue:    q,
		state:    state,
		oracle:   oracle,
		executor: executor,
		sink:     sink,
		logger:   logger,
		opts:     opts,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.lifecycle.Load())
}

// Stop asks the loop to exit at the top of its next iteration. In-flight sleeps and retries finish first.
//
// Stopping an idle scheduler moves it straight to [Stopped].
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
	s.lifecycle.CompareAndSwap(int32(Idle), int32(Stopped))
}

// Run executes the loop in the calling goroutine until the session ends.
//
// A scheduler runs at most once; later calls return [shared.ErrAlreadyStarted], or
// [shared.ErrSessionStopped] when Stop was called before the first run. Every run that ends,
// including one stopped before it began, records [EventSessionEnd].
func (s *Scheduler) Run(ctx context.Context) (res Result) {
	if !s.lifecycle.CompareAndSwap(int32(Idle), int32(Running)) {
		if s.ran.Load() {
			return Result{Reason: ReasonStopped, Err: shared.ErrAlreadyStarted}
		}
		now := time.Now()
		res = Result{Reason: ReasonStopped, Err: shared.ErrSessionStopped, StartedAt: now, EndedAt: now}
		s.sink.Record(EventSessionEnd, SessionEndData{Reason: res.Reason, Error: res.Err.Error()})
		s.logger.Info("scheduler stopped before running")
		return res
	}
	s.ran.Store(true)

	res.StartedAt = time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler panic", "panic", r)
			res.Reason = ReasonInternalError
			res.Err = fmt.Errorf("scheduler panic: %v", r)
			s.sink.Record(EventError, ErrorData{Cycle: res.Cycles, Error: res.Err.Error()})
		}
		res.EndedAt = time.Now()
		s.lifecycle.Store(int32(Stopped))

		end := SessionEndData{
			Reason:   res.Reason,
			Cycles:   res.Cycles,
			Injected: res.Injected,
			Failures: res.Failures,
			Duration: res.Duration().Seconds(),
		}
		if res.Err != nil {
			end.Error = res.Err.Error()
		}
		s.sink.Record(EventSessionEnd, end)
		s.logger.Info("scheduler stopped", "reason", res.Reason, "cycles", res.Cycles, "injected", res.Injected)
	}()

	for {
		reason, err := s.cycle(ctx, &res)
		if reason != "" {
			res.Reason, res.Err = reason, err
			return res
		}
	}
}

// cycle runs one loop iteration and returns a non-empty reason when the loop must end.
func (s *Scheduler) cycle(ctx context.Context, res *Result) (StopReason, error) {
	if s.stopped.Load() || ctx.Err() != nil {
		return ReasonStopped, nil
	}
	if s.opts.MaxDuration > 0 && time.Since(res.StartedAt) >= s.opts.MaxDuration {
		return ReasonTimeout, nil
	}

	res.Cycles++
	rec := CycleRecord{Number: res.Cycles, Timestamp: time.Now()}

	snap, err := s.oracle.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("playback state unavailable, ending session", "err", err)
		s.emitCycle(rec, false, 0)
		if !errors.Is(err, shared.ErrOracleUnavailable) {
			err = fmt.Errorf("%w: %v", shared.ErrOracleUnavailable, err)
		}
		return ReasonPlaybackEnded, err
	}
	rec.NowPlaying = nowPlayingFrom(snap)

	if !snap.IsPlaying {
		s.logger.Info("playback stopped externally")
		s.emitCycle(rec, false, snap.Remaining())
		return ReasonPlaybackEnded, nil
	}

	if changed, prev := s.state.Observe(snap.TrackURI); changed {
		s.logger.Debug("track change", "from", prev, "to", snap.TrackURI)
		s.sink.Record(EventTrackChange, TrackChangeData{From: prev, To: snap.TrackURI, Title: snap.Title, Artist: snap.Artist})
	}

	if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
		return ReasonStopped, nil
	}

	remaining := snap.Remaining()
	eligible := snap.Duration > 0 && remaining <= s.opts.Threshold && !s.state.Latched()

	next, generation, ok := s.queue.PeekWithGeneration()
	s.emitCycle(rec, eligible, remaining)

	if !eligible {
		return "", nil
	}
	if !ok {
		s.logger.Info("shadow queue exhausted")
		return ReasonQueueExhausted, nil
	}

	attempt := s.executor.Enqueue(ctx, next.URI)
	data := InjectionData{Item: next, Attempts: attempt.Attempts, TimeRemaining: remaining.Seconds()}

	if attempt.Succeeded() {
		if _, popped := s.queue.PopIf(generation); !popped {
			s.logger.Debug("queue replaced during injection, keeping new head", "uri", next.URI)
		}
		s.state.MarkInjected(next.URI)
		res.Injected++
		data.Remaining = s.queue.RemainingCount()
		s.sink.Record(EventInjection, data)
		return "", nil
	}

	res.Failures++
	data.Error = attempt.Err.Error()
	if s.opts.FailurePolicy == shared.FailurePolicySkip {
		_, data.Skipped = s.queue.PopIf(generation)
	}
	data.Remaining = s.queue.RemainingCount()
	s.logger.Warn("injection failed", "uri", next.URI, "attempts", attempt.Attempts, "skipped", data.Skipped, "err", attempt.Err)
	s.sink.Record(EventInjectionFailed, data)
	return "", nil
}

func (s *Scheduler) emitCycle(rec CycleRecord, eligible bool, remaining time.Duration) {
	next, ok := s.queue.Peek()
	rec.ShadowQueue = QueueView{Remaining: s.queue.RemainingCount()}
	if ok {
		rec.ShadowQueue.NextItem = &next
	}
	rec.Injection = InjectionView{
		Eligible:        eligible,
		TimeRemaining:   remaining.Seconds(),
		AlreadyInjected: s.state.Latched(),
		LastInjected:    s.state.LastInjected(),
	}
	s.sink.Record(EventCycle, rec)
}
