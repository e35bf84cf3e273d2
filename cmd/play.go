package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/desertthunder/jitdj/internal/formatter"
	"github.com/desertthunder/jitdj/internal/journal"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/repositories"
	"github.com/desertthunder/jitdj/internal/server"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/desertthunder/jitdj/internal/tasks"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"
)

const watchDebounce = 200 * time.Millisecond

// Play starts a session from a queue file and keeps injecting until the session ends or is interrupted.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	queuePath := cmd.String("queue")
	if queuePath == "" {
		return fmt.Errorf("%w: --queue is required", shared.ErrMissingArgument)
	}

	reqs, err := models.LoadRequests(queuePath)
	if err != nil {
		return err
	}

	cfg := r.config.Injection
	if cmd.IsSet("threshold") {
		cfg.ThresholdSeconds = cmd.Float("threshold")
	}
	if cmd.IsSet("max-duration") {
		cfg.MaxSessionDurationSeconds = cmd.Duration("max-duration").Seconds()
	}
	if cmd.IsSet("failure-policy") {
		cfg.FailurePolicy = cmd.String("failure-policy")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	sink := tasks.MultiSink{tasks.NewLogSink(shared.WithLogger(r.logger, "component", "events"))}
	var journalPath string
	if r.config.Journal.Enabled && !cmd.Bool("no-journal") {
		jw, err := journal.Create(r.config.Journal.Dir, r.logger)
		if err != nil {
			return err
		}
		defer jw.Close()
		journalPath = jw.Path()
		sink = append(sink, jw)
		r.logger.Info("writing session journal", "path", journalPath)
	}

	statusAddr := cmd.String("status-addr")
	var feed *tasks.EventLog
	if statusAddr != "" {
		events := make(chan tasks.Event, 64)
		feed = tasks.NewEventLog(20)
		feedCtx, cancelFeed := context.WithCancel(ctx)
		defer cancelFeed()
		go feed.Consume(feedCtx, events)
		sink = append(sink, tasks.ChannelSink(events))
	}

	session := tasks.NewSession(tasks.SessionOpts{
		Resolver: r.resolver(svc, !cmd.Bool("no-cache")),
		Oracle:   svc,
		Player:   svc,
		Sink:     sink,
		Logger:   r.logger,
		Config:   cfg,
	})

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.writePlain("→ Resolving %d tracks...\n", len(reqs))
	if err := session.Start(sigCtx, reqs); err != nil {
		return err
	}
	r.writePlain("✓ Playing, %d tracks queued for injection\n", session.RemainingCount())

	record := r.recordSession(session.ID(), len(reqs), session.RemainingCount()+1, journalPath)

	if statusAddr != "" {
		srv, err := r.serveStatus(statusAddr, session, feed)
		if err != nil {
			return err
		}
		defer srv.Shutdown(context.Background())
		r.writePlain("→ Status available at http://%s/status\n", srv.Addr())
	}

	if cmd.Bool("watch") {
		var wg sync.WaitGroup
		watchCtx, cancelWatch := context.WithCancel(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.watchQueue(watchCtx, queuePath, session); err != nil {
				r.logger.Warn("queue file watcher stopped", "err", err)
			}
		}()
		defer func() {
			cancelWatch()
			wg.Wait()
		}()
	}

	session.Go(ctx)

	select {
	case <-session.Done():
	case <-sigCtx.Done():
		r.writePlainln("→ Interrupted, stopping after the current cycle...")
		session.Stop()
	}
	res := session.Wait()

	r.finishSession(record, res)
	r.writePlain("%s\n", formatter.FormatResult(res))

	if res.Failed() {
		return fmt.Errorf("session failed: %w", res.Err)
	}
	return nil
}

// recordSession stores a running session row. Storage problems never stop playback.
func (r *Runner) recordSession(id string, requested, resolved int, journalPath string) *models.SessionRecord {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("session history unavailable", "err", err)
		return nil
	}

	record := models.NewSessionRecord(id, requested, resolved, journalPath)
	if err := repositories.NewSessionRepository(db).Create(record); err != nil {
		r.logger.Warn("failed to record session", "err", err)
		return nil
	}
	return record
}

func (r *Runner) finishSession(record *models.SessionRecord, res tasks.Result) {
	if record == nil || r.db == nil {
		return
	}

	record.Finish(string(res.Reason), res.Injected, res.Failures, res.Cycles, res.Failed(), res.EndedAt)
	if err := repositories.NewSessionRepository(r.db).Update(record); err != nil {
		r.logger.Warn("failed to update session record", "err", err)
	}
}

// serveStatus exposes the session on addr until the returned server is shut down.
func (r *Runner) serveStatus(addr string, session *tasks.Session, feed *tasks.EventLog) (*server.Server, error) {
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewStatusHandler(server.StatusFunc(func() server.Status {
		return sessionStatus(session, feed)
	})))
	return server.Listen(addr, router)
}

func sessionStatus(session *tasks.Session, feed *tasks.EventLog) server.Status {
	st := server.Status{
		SessionID:    session.ID(),
		State:        session.State().String(),
		Remaining:    session.RemainingCount(),
		LastInjected: session.LastInjected(),
		Pending:      session.Pending(),
	}
	if next, ok := session.PeekNext(); ok {
		st.Next = &next
	}
	if feed != nil {
		for _, ev := range feed.Recent() {
			st.Recent = append(st.Recent, server.StatusEvent{Type: ev.Kind.String(), Timestamp: ev.At})
		}
	}
	return st
}

// queueUpdater is the part of a session the watcher drives.
type queueUpdater interface {
	UpdateQueue(ctx context.Context, reqs []models.Request) error
}

// watchQueue reloads path into the session whenever it changes. The parent directory is watched so
// editors that replace the file on save are still seen.
func (r *Runner) watchQueue(ctx context.Context, path string, session queueUpdater) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	r.logger.Info("watching queue file", "path", abs)

	changes := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
		case <-changes:
			reqs, err := models.LoadRequests(abs)
			if err != nil {
				r.logger.Warn("ignoring unreadable queue file", "err", err)
				continue
			}
			if err := session.UpdateQueue(ctx, reqs); err != nil {
				r.logger.Warn("queue update failed", "err", err)
				continue
			}
			r.logger.Info("queue reloaded", "tracks", len(reqs))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", "err", err)
		}
	}
}
