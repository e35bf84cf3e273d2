// Package queue holds the shadow queue: the ordered list of resolved tracks that still have to be
// handed to the remote player.
//
// The remote player's own queue is never read. [ShadowQueue] is the only source of truth for what
// plays next, and every method is safe for concurrent use.
//
// Requests are resolved to catalog identifiers by a [Resolver] through a small worker pool that is
// throttled with a token bucket limiter. Requests that fail to resolve are dropped and reported in
// a [ResolveReport] so a single bad line never aborts a session.
package queue
