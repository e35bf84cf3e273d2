// Package models defines domain entities and persistence interfaces for the jitdj injection engine.
//
// The package contains two categories of types:
//
// 1. Value types passed between the engine components
//   - [Request] : A (title, artist) pair as written by the user
//   - [QueueItem] : A request resolved to a playable catalog identifier
//   - [PlaybackSnapshot] : One observation of the remote player
//
// 2. Persistent Entities: Database-backed models
//   - [Resolution] : Cached catalog lookups keyed by normalized title and artist
//   - [SessionRecord] : History of injection sessions and how they ended
//
// All persistent entities implement the Model interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
