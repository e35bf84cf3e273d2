package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/services"
	"github.com/desertthunder/jitdj/internal/shared"
)

// Executor performs the side-effecting calls against the remote player.
//
// Appending the same identifier twice is harmless, so failed appends are retried blindly.
type Executor struct {
	player services.Player
	retry  RetryPolicy
	logger *log.Logger
}

// NewExecutor creates an [Executor]. A nil logger discards output.
func NewExecutor(player services.Player, retry RetryPolicy, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Executor{player: player, retry: retry, logger: logger}
}

// Inject appends uri to the remote queue and reports whether any attempt succeeded.
func (e *Executor) Inject(ctx context.Context, uri string) bool {
	return e.Enqueue(ctx, uri).Succeeded()
}

// Enqueue is [Executor.Inject] with attempt details. A failed result wraps [shared.ErrInjectionFailed].
func (e *Executor) Enqueue(ctx context.Context, uri string) RetryResult {
	res := e.retry.Do(ctx, func(ctx context.Context) error {
		err := e.player.Enqueue(ctx, uri)
		if err != nil {
			e.logger.Debug("enqueue attempt failed", "uri", uri, "err", err)
		}
		return err
	})
	if res.Err != nil {
		res.Err = fmt.Errorf("%w: %s after %d attempts: %v", shared.ErrInjectionFailed, uri, res.Attempts, res.Err)
	}
	return res
}

// StartPlayback replaces current playback with uri under the same retry policy.
func (e *Executor) StartPlayback(ctx context.Context, uri string) RetryResult {
	res := e.retry.Do(ctx, func(ctx context.Context) error {
		return e.player.StartPlayback(ctx, uri)
	})
	if res.Err != nil {
		res.Err = fmt.Errorf("%w: %v", shared.ErrPlaybackFailed, res.Err)
	}
	return res
}
