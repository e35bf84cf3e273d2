package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jitdj/internal/models"
	"github.com/desertthunder/jitdj/internal/queue"
	"github.com/desertthunder/jitdj/internal/shared"
)

// CachingResolver implements queue.Resolver by consulting the resolution cache before the upstream resolver.
//
// Cache failures are logged and never fail a lookup; duplicate inserts (UNIQUE constraint violations) are ignored.
type CachingResolver struct {
	repo     *ResolutionRepository
	upstream queue.Resolver
	logger   *log.Logger
}

// NewCachingResolver wraps upstream with the given repository. A nil logger discards output.
func NewCachingResolver(repo *ResolutionRepository, upstream queue.Resolver, logger *log.Logger) *CachingResolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachingResolver{repo: repo, upstream: upstream, logger: logger}
}

// Resolve returns the cached identifier for (title, artist) or resolves and caches it.
func (c *CachingResolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	key := shared.NormalizeTrackKey(title, artist)

	cached, err := c.repo.GetByKey(key)
	switch {
	case err == nil:
		if err := c.repo.Touch(key); err != nil {
			c.logger.Debug("failed to bump cache hits", "key", key, "err", err)
		}
		return cached.URI(), nil
	case !errors.Is(err, ErrNotFound):
		c.logger.Warn("resolution cache lookup failed", "key", key, "err", err)
	}

	uri, err := c.upstream.Resolve(ctx, title, artist)
	if err != nil {
		return "", err
	}

	if err := c.repo.Create(models.NewResolution(key, strings.TrimSpace(title), strings.TrimSpace(artist), uri)); err != nil && !isUniqueViolation(err) {
		c.logger.Warn("failed to cache resolution", "key", key, "err", fmt.Errorf("cache: %w", err))
	}
	return uri, nil
}
