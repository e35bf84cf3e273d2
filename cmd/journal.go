package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jitdj/internal/formatter"
	"github.com/desertthunder/jitdj/internal/journal"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
)

// JournalTail prints a session journal, optionally following it as it grows.
func (r *Runner) JournalTail(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	if path == "" {
		if !cmd.Bool("latest") {
			return fmt.Errorf("%w: either --file or --latest must be provided", shared.ErrMissingArgument)
		}
		latest, err := journal.Latest(r.config.Journal.Dir)
		if err != nil {
			return err
		}
		path = latest
	}

	asJSON := cmd.Bool("json")
	cyclesOnly := cmd.Bool("cycles")
	emit := func(l journal.Line) {
		if cyclesOnly && l.Cycle == nil {
			return
		}
		if asJSON {
			r.writeJSON(l, false)
			return
		}
		r.writePlain("%s\n", formatter.FormatLine(l))
	}

	r.logger.Debug("reading journal", "path", path)
	if cmd.Bool("follow") {
		return journal.Follow(ctx, path, emit)
	}

	malformed, err := journal.ReadFile(path, emit)
	if err != nil {
		return err
	}
	if malformed > 0 {
		r.logger.Warn("skipped malformed journal lines", "count", malformed)
	}
	return nil
}
