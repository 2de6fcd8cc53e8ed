// Package sched is the delaytimer core: a programmable delayed-and-recurring
// task manager driven by a hierarchical timing wheel.
//
// # Overview
//
// Callers register tasks carrying a seven-field cron schedule and an
// execution body (closure, asynchronous unit, or shell command). The
// Scheduler fires each task at every scheduled instant and dispatches the
// body to a pluggable executor, while supporting live addition, replacement,
// cancellation and removal.
//
// # Architecture
//
// Exactly two long-lived workers run under a supervisor: the wheel driver,
// which sleeps to whole-second boundaries and emits fire events, and the
// event loop, the sole mutator of the task registry. Everything meets on one
// bounded event channel: façade calls enqueue control events without
// blocking, the driver enqueues fire events with backpressure (firing is
// delayed, never dropped), and completion reports from running instances
// flow back the same way. No locks are held while user code runs.
//
// # Policies
//
// Each task carries a parallelism cap (excess firings are dropped and
// counted as skips, never queued) and an optional maximum running time.
// Deadline cancellation is cooperative: the instance's context is cancelled
// and the body observes it at its next suspension point; bodies that ignore
// cancellation complete naturally.
//
// # Observation
//
// Lifecycle events (task.fired, task.skipped, instance.finished, ...) are
// published on a non-blocking fanout bus, finished instances are appended to
// a bounded in-memory history, and an optional journal persists them through
// the storage package.
package sched
