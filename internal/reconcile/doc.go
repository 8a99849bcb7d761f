// Package reconcile keeps three replicas of a blog post's media
// selection converged: the in-memory draft form, the persistent gallery
// view store, and the main-image backup store.
//
// # Architecture
//
//	Form watchers ──┐
//	Draft watcher ──┼──> Enqueue ──> [ FIFO queue ] ──> worker ──> handlers
//	CLI / callers ──┘                                      │
//	                                                       ├──> form
//	                                                       ├──> store
//	                                                       └──> backup
//
// Every mutation of the replicas flows through one buffered queue
// drained by a single worker goroutine. That gives two properties the
// handlers rely on:
//
//   - strict FIFO: operations execute in enqueue order, so a
//     user-initiated sync is never overtaken by a background check.
//   - mutual exclusion: at most one handler runs at a time, so handlers
//     read and write the replicas without their own locking.
//
// # Operations
//
// Seven operation types cover the reconciliation surface: Initialize
// (seed empty form fields from store and backup), FormToStore and
// StoreToForm (directional overwrites), MainImageSync (validated
// store-only main-image write), ForceSync (longer media list wins),
// IntegrityCheck (drift detection with destructive auto-clean), and
// PlaceholderCleanup (strip upload markers).
//
// # Failure model
//
// Nothing in the engine is fatal. Handler errors, rejected
// placeholders, queue overflow, and integrity interventions are all
// recorded as Issues, retained in a bounded history, and optionally
// published through a callback; the worker keeps draining regardless.
// There is no rollback: a handler that fails midway leaves its partial
// writes in place, and a later operation converges the replicas again.
package reconcile
