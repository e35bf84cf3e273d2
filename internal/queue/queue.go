package queue

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
)

// Options tunes request resolution.
type Options struct {
	Workers int     // Concurrent resolver calls (default: 4)
	Rate    float64 // Resolver calls per second (default: 5)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Workers > 10 {
		o.Workers = 10
	}
	if o.Rate <= 0 {
		o.Rate = 5
	}
	return o
}

// ShadowQueue is the ordered list of tracks still to be injected.
//
// The cursor only moves forward until the contents are replaced, which resets it to zero and bumps
// the generation counter.
type ShadowQueue struct {
	mu         sync.RWMutex
	items      []models.QueueItem
	cursor     int
	generation uint64

	resolver Resolver
	logger   *log.Logger
	opts     Options
}

// New creates an empty [ShadowQueue]. A nil logger discards output.
func New(r Resolver, logger *log.Logger, opts Options) *ShadowQueue {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ShadowQueue{resolver: r, logger: logger, opts: opts.withDefaults()}
}

// Initialize resolves reqs and replaces the queue contents with the resolved items in order.
//
// Unresolvable requests are dropped and listed in the report. The queue is left untouched when ctx
// is cancelled before resolution finishes.
func (q *ShadowQueue) Initialize(ctx context.Context, reqs []models.Request) (ResolveReport, error) {
	items, report, err := q.Resolve(ctx, reqs)
	if err != nil {
		return report, err
	}

	q.Load(items)
	q.logger.Debug("shadow queue initialized", "requested", report.Requested, "resolved", report.Resolved)
	return report, nil
}

// Resolve resolves reqs without touching the queue. No lock is held while the resolver runs.
func (q *ShadowQueue) Resolve(ctx context.Context, reqs []models.Request) ([]models.QueueItem, ResolveReport, error) {
	items, report, err := resolveAll(ctx, q.resolver, reqs, q.opts)
	if err != nil {
		return nil, report, err
	}

	for _, s := range report.Skipped {
		q.logger.Warn("dropping unresolved track", "title", s.Request.Title, "artist", s.Request.Artist, "err", s.Err)
	}
	return items, report, nil
}

// Replace swaps the queue contents for a new request list. Resolution happens before the lock is taken.
//
// The swap happens even when nothing resolves, leaving the queue empty.
func (q *ShadowQueue) Replace(ctx context.Context, reqs []models.Request) (ResolveReport, error) {
	return q.Initialize(ctx, reqs)
}

// Load replaces the queue with already resolved items and returns the new generation.
func (q *ShadowQueue) Load(items []models.QueueItem) uint64 {
	cp := make([]models.QueueItem, len(items))
	copy(cp, items)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = cp
	q.cursor = 0
	q.generation++
	return q.generation
}

// Pop returns the item at the cursor and advances it.
func (q *ShadowQueue) Pop() (models.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor >= len(q.items) {
		return models.QueueItem{}, false
	}
	item := q.items[q.cursor]
	q.cursor++
	return item, true
}

// Peek returns the item at the cursor without advancing.
func (q *ShadowQueue) Peek() (models.QueueItem, bool) {
	item, _, ok := q.PeekWithGeneration()
	return item, ok
}

// PeekWithGeneration is [ShadowQueue.Peek] plus the generation the item belongs to.
func (q *ShadowQueue) PeekWithGeneration() (models.QueueItem, uint64, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.cursor >= len(q.items) {
		return models.QueueItem{}, q.generation, false
	}
	return q.items[q.cursor], q.generation, true
}

// PopIf advances the cursor only if the queue has not been replaced since generation was observed.
func (q *ShadowQueue) PopIf(generation uint64) (models.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.generation != generation || q.cursor >= len(q.items) {
		return models.QueueItem{}, false
	}
	item := q.items[q.cursor]
	q.cursor++
	return item, true
}

// RemainingCount is the number of items at or after the cursor.
func (q *ShadowQueue) RemainingCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items) - q.cursor
}

// Items returns a copy of the items not yet consumed.
func (q *ShadowQueue) Items() []models.QueueItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]models.QueueItem, len(q.items)-q.cursor)
	copy(out, q.items[q.cursor:])
	return out
}
