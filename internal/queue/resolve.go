package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/shared"
	"golang.org/x/time/rate"
)

// Resolver maps a (title, artist) pair to a playable identifier.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (string, error)
}

// ResolverFunc adapts a function to [Resolver].
type ResolverFunc func(ctx context.Context, title, artist string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, title, artist string) (string, error) {
	return f(ctx, title, artist)
}

// Skipped is a request that did not make it into the queue.
type Skipped struct {
	Request models.Request
	Err     error
}

// ResolveReport summarizes one resolution pass.
type ResolveReport struct {
	Requested int
	Resolved  int
	Skipped   []Skipped
}

type resolveJob struct {
	index int
	req   models.Request
}

type resolveResult struct {
	index int
	item  models.QueueItem
	err   error
}

// resolveAll resolves reqs concurrently and returns the successful items in input order.
//
// Requests without a title or artist are skipped without calling the resolver.
func resolveAll(ctx context.Context, r Resolver, reqs []models.Request, opts Options) ([]models.QueueItem, ResolveReport, error) {
	report := ResolveReport{Requested: len(reqs)}
	if len(reqs) == 0 {
		return nil, report, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.Rate), 1)
	jobs := make(chan resolveJob, len(reqs))
	results := make(chan resolveResult, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go resolveWorker(ctx, &wg, r, jobs, results)
	}

	var produceErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, req := range reqs {
			if !req.Valid() {
				results <- resolveResult{index: i, err: fmt.Errorf("%w: missing title or artist", shared.ErrInvalidInput)}
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				produceErr = err
				return
			}
			jobs <- resolveJob{index: i, req: req}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*resolveResult, len(reqs))
	for res := range results {
		ordered[res.index] = &res
	}

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	if produceErr != nil {
		return nil, report, produceErr
	}

	items := make([]models.QueueItem, 0, len(reqs))
	for i, res := range ordered {
		if res == nil {
			report.Skipped = append(report.Skipped, Skipped{Request: reqs[i], Err: context.Canceled})
			continue
		}
		if res.err != nil {
			report.Skipped = append(report.Skipped, Skipped{Request: reqs[i], Err: res.err})
			continue
		}
		items = append(items, res.item)
	}
	report.Resolved = len(items)
	return items, report, nil
}

func resolveWorker(ctx context.Context, wg *sync.WaitGroup, r Resolver, jobs <-chan resolveJob, results chan<- resolveResult) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		title, artist := strings.TrimSpace(job.req.Title), strings.TrimSpace(job.req.Artist)
		uri, err := r.Resolve(ctx, title, artist)
		if err != nil {
			results <- resolveResult{index: job.index, err: fmt.Errorf("%w: %v", shared.ErrResolution, err)}
			continue
		}

		item, err := models.NewQueueItem(title, artist, uri)
		if err != nil {
			results <- resolveResult{index: job.index, err: fmt.Errorf("%w: %v", shared.ErrResolution, err)}
			continue
		}
		results <- resolveResult{index: job.index, item: item}
	}
}
