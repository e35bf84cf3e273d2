package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/queue"
	"github.com/desertthunder/jitdj/internal/services"
	"github.com/desertthunder/jitdj/internal/shared"
)

// SessionOpts holds a session's collaborators and tunables.
type SessionOpts struct {
	Resolver queue.Resolver
	Oracle   services.Oracle
	Player   services.Player
	Sink     EventSink
	Logger   *log.Logger
	Config   shared.InjectionConfig
}

// Session owns one shadow queue and one injection state for the lifetime of a listening session.
type Session struct {
	id        string
	queue     *queue.ShadowQueue
	state     *InjectionState
	executor  *Executor
	scheduler *Scheduler
	sink      EventSink
	logger    *log.Logger

	mu       sync.Mutex
	started  bool
	launched bool
	done     chan struct{}
	result   Result
}

// NewSession wires a [Session] from opts. Zero config values fall back to the defaults.
func NewSession(opts SessionOpts) *Session {
	cfg := opts.Config
	defaults := shared.DefaultConfig().Injection
	if cfg.ThresholdSeconds <= 0 {
		cfg.ThresholdSeconds = defaults.ThresholdSeconds
	}
	if cfg.PollIntervalSeconds <= 0 {
		cfg.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = defaults.RetryAttempts
	}

	id := shared.GenerateID()
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = shared.WithLogger(logger, "session", id[:8])

	sink := opts.Sink
	if sink == nil {
		sink = NopSink{}
	}

	q := queue.New(opts.Resolver, shared.WithLogger(logger, "component", "queue"), queue.Options{
		Workers: cfg.ResolveWorkers,
		Rate:    cfg.ResolveRate,
	})
	state := &InjectionState{}
	executor := NewExecutor(opts.Player, RetryPolicy{
		Attempts:   cfg.RetryAttempts,
		Delay:      cfg.RetryDelay(),
		Multiplier: cfg.RetryMultiplier,
	}, shared.WithLogger(logger, "component", "executor"))

	scheduler := NewScheduler(q, state, opts.Oracle, executor, sink, shared.WithLogger(logger, "component", "scheduler"), SchedulerOpts{
		Threshold:     cfg.Threshold(),
		PollInterval:  cfg.PollInterval(),
		MaxDuration:   cfg.MaxSessionDuration(),
		FailurePolicy: cfg.FailurePolicy,
	})

	return &Session{
		id:        id,
		queue:     q,
		state:     state,
		executor:  executor,
		scheduler: scheduler,
		sink:      sink,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// ID is the session's UUID.
func (s *Session) ID() string { return s.id }

// Start resolves reqs, starts playback of the first resolved track and queues the rest.
//
// It fails with [shared.ErrEmptyQueue], [shared.ErrNothingResolved] or [shared.ErrPlaybackFailed].
// A failed Start may be retried; a successful one may not.
func (s *Session) Start(ctx context.Context, reqs []models.Request) error {
	if len(reqs) == 0 {
		return shared.ErrEmptyQueue
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.scheduler.State() != Idle {
		return shared.ErrAlreadyStarted
	}

	report, err := s.queue.Initialize(ctx, reqs)
	if err != nil {
		return fmt.Errorf("failed to resolve queue: %w", err)
	}

	first, ok := s.queue.Pop()
	if !ok {
		return fmt.Errorf("%w: 0 of %d requests resolved", shared.ErrNothingResolved, report.Requested)
	}

	if res := s.executor.StartPlayback(ctx, first.URI); !res.Succeeded() {
		return res.Err
	}

	s.state.SetLastInjected(first.URI)
	s.started = true

	s.sink.Record(EventSessionStart, SessionStartData{
		SessionID: s.id,
		Requested: report.Requested,
		Resolved:  report.Resolved,
		Skipped:   skippedNames(report),
		First:     first,
	})
	s.logger.Info("playback started", "track", first.String(), "queued", s.queue.RemainingCount())
	return nil
}

// Run executes the scheduler loop in the calling goroutine.
func (s *Session) Run(ctx context.Context) Result {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return Result{Reason: ReasonStopped, Err: shared.ErrNoSession}
	}
	return s.scheduler.Run(ctx)
}

// Go runs the scheduler loop on a background goroutine. Use [Session.Wait] to join it.
func (s *Session) Go(ctx context.Context) {
	s.mu.Lock()
	if s.launched {
		s.mu.Unlock()
		return
	}
	s.launched = true
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.result = s.Run(ctx)
	}()
}

// Wait blocks until the goroutine started by [Session.Go] returns.
func (s *Session) Wait() Result {
	s.mu.Lock()
	launched := s.launched
	s.mu.Unlock()

	if !launched {
		return Result{Reason: ReasonStopped, Err: shared.ErrNoSession}
	}
	<-s.done
	return s.result
}

// Done is closed when the background loop started by [Session.Go] exits.
func (s *Session) Done() <-chan struct{} { return s.done }

// UpdateQueue replaces the pending tracks. It is safe to call while the loop runs.
//
// The queue is swapped even when nothing resolves. A non-empty request list that resolves to
// nothing leaves the queue empty and returns [shared.ErrNothingResolved].
func (s *Session) UpdateQueue(ctx context.Context, reqs []models.Request) error {
	report, err := s.queue.Replace(ctx, reqs)
	if err != nil {
		return fmt.Errorf("failed to resolve queue: %w", err)
	}

	s.sink.Record(EventQueueUpdate, QueueUpdateData{
		Requested: report.Requested,
		Resolved:  report.Resolved,
		Skipped:   skippedNames(report),
	})
	s.logger.Info("queue updated", "resolved", report.Resolved, "requested", report.Requested)

	if report.Requested > 0 && report.Resolved == 0 {
		return fmt.Errorf("%w: 0 of %d requests resolved, queue is now empty", shared.ErrNothingResolved, report.Requested)
	}
	return nil
}

// Stop requests cooperative shutdown.
func (s *Session) Stop() { s.scheduler.Stop() }

func (s *Session) State() State { return s.scheduler.State() }

func (s *Session) RemainingCount() int { return s.queue.RemainingCount() }

func (s *Session) PeekNext() (models.QueueItem, bool) { return s.queue.Peek() }

func (s *Session) Pending() []models.QueueItem { return s.queue.Items() }

func (s *Session) LastInjected() string { return s.state.LastInjected() }

func skippedNames(report queue.ResolveReport) []string {
	if len(report.Skipped) == 0 {
		return nil
	}
	out := make([]string, len(report.Skipped))
	for i, sk := range report.Skipped {
		out[i] = sk.Request.String()
	}
	return out
}
