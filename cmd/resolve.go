package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/jitdj/internal/formatter"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/queue"
	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
)

type resolveOutput struct {
	Requested int                `json:"requested"`
	Resolved  int                `json:"resolved"`
	Items     []models.QueueItem `json:"items"`
	Skipped   []skippedOutput    `json:"skipped,omitempty"`
}

type skippedOutput struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Error  string `json:"error"`
}

// Resolve resolves a queue file without touching playback.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	queuePath := cmd.String("queue")
	if queuePath == "" {
		return fmt.Errorf("%w: --queue is required", shared.ErrMissingArgument)
	}

	reqs, err := models.LoadRequests(queuePath)
	if err != nil {
		return err
	}

	svc, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	q := queue.New(r.resolver(svc, !cmd.Bool("no-cache")), r.logger, queue.Options{
		Workers: r.config.Injection.ResolveWorkers,
		Rate:    r.config.Injection.ResolveRate,
	})
	items, report, err := q.Resolve(ctx, reqs)
	if err != nil {
		return err
	}

	switch format := cmd.String("format"); format {
	case "json":
		out := resolveOutput{Requested: report.Requested, Resolved: report.Resolved, Items: items}
		for _, s := range report.Skipped {
			out.Skipped = append(out.Skipped, skippedOutput{Title: s.Request.Title, Artist: s.Request.Artist, Error: s.Err.Error()})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	case "csv":
		data, err := formatter.QueueToCSV(items)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	case "", "text":
		r.writePlainHeader(fmt.Sprintf("Resolved %d of %d tracks", report.Resolved, report.Requested))
		r.writePlain("%s", formatter.QueueToText(items))
		for _, s := range report.Skipped {
			r.writePlain("✗ %s: %v\n", s.Request.String(), s.Err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// Status prints what the remote player is doing right now.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotify(ctx)
	if err != nil {
		return err
	}
	defer r.persistToken()

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap, cmd.Bool("pretty"))
	}
	r.writePlain("%s\n", formatter.FormatSnapshot(snap))
	return nil
}
