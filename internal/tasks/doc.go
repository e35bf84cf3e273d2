// Package tasks runs just-in-time injection sessions against a streaming provider.
//
// # Core Operations
//
// A [Session] ties the pieces together:
//
//  1. [Session.Start] : resolve the requested tracks and start playback of the first one
//  2. [Session.Run] (or [Session.Go] / [Session.Wait]) : run the [Scheduler] loop
//  3. [Session.UpdateQueue] : replace the pending tracks while the loop is running
//  4. [Session.Stop] : cooperative shutdown, observed once per loop iteration
//
// # Scheduling
//
// The provider's live queue can only be appended to, so nothing is queued ahead of time.
// Each cycle the [Scheduler] reads a playback snapshot, re-arms its latch when the playing
// track changes, sleeps one poll interval, and injects the next shadow queue item once the
// current track has less than the threshold left. The latch guarantees at most one injection
// per playing track.
//
// Injections go through an [Executor] which retries the append under a [RetryPolicy].
// When every attempt fails the item stays at the head of the queue (or is skipped, depending
// on the failure policy) and the session keeps running.
//
// # Events
//
// Every cycle and every notable transition is reported to an [EventSink]. Sinks must not block;
// [ChannelSink] drops events when its channel is full so a slow reader, such as the status
// endpoint's [EventLog], never delays an injection.
package tasks
