package main

import (
	"context"

	"github.com/desertthunder/jitdj/internal/formatter"
	"github.com/desertthunder/jitdj/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheList prints cached title/artist resolutions, most used first.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	resolutions, err := repositories.NewResolutionRepository(db).List(map[string]any{
		"artist": cmd.String("artist"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			Title  string `json:"title"`
			Artist string `json:"artist"`
			URI    string `json:"uri"`
			Hits   int    `json:"hits"`
		}
		rows := make([]row, len(resolutions))
		for i, res := range resolutions {
			rows[i] = row{Title: res.Title(), Artist: res.Artist(), URI: res.URI(), Hits: res.Hits()}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("%s", formatter.FormatResolutions(resolutions))
	return nil
}

// CacheClear drops every cached resolution.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewResolutionRepository(db).Clear()
	if err != nil {
		return err
	}

	r.logger.Info("resolution cache cleared", "rows", n)
	r.writePlain("✓ Removed %d cached resolutions\n", n)
	return nil
}

// SessionsList prints stored session history, newest first.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	records, err := repositories.NewSessionRepository(db).List(map[string]any{
		"status": cmd.String("status"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID          string `json:"id"`
			Sequence    int    `json:"sequence"`
			Status      string `json:"status"`
			Reason      string `json:"reason,omitempty"`
			Requested   int    `json:"requested"`
			Resolved    int    `json:"resolved"`
			Injected    int    `json:"injected"`
			Failures    int    `json:"failures"`
			Cycles      int    `json:"cycles"`
			JournalPath string `json:"journal_path,omitempty"`
			CreatedAt   string `json:"created_at"`
		}
		rows := make([]row, len(records))
		for i, rec := range records {
			rows[i] = row{
				ID: rec.ID(), Sequence: rec.Sequence(), Status: string(rec.Status()), Reason: rec.Reason(),
				Requested: rec.Requested(), Resolved: rec.Resolved(), Injected: rec.Injected(),
				Failures: rec.Failures(), Cycles: rec.Cycles(), JournalPath: rec.JournalPath(),
				CreatedAt: rec.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlain("%s", formatter.FormatSessions(records))
	return nil
}
