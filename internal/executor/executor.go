// Package executor provides the asynchronous execution capability consumed by
// the scheduler. Task bodies are opaque to it: it spawns named units of work,
// recovers their panics, and keeps subprocess-style blocking work off the
// asynchronous lane.
package executor

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs units of work handed over by the scheduler's event loop.
//
// Spawn schedules fn on the asynchronous lane; it never blocks the caller
// beyond enqueueing. SpawnBlocking is for work that may occupy an OS thread
// for its whole duration (subprocesses): it always gets a dedicated
// goroutine so it cannot stall queued asynchronous work.
//
// Implementations recover panics inside fn; a panicking unit must never take
// down the executor or the caller.
type Executor interface {
	Spawn(name string, fn func(ctx context.Context))
	SpawnBlocking(name string, fn func(ctx context.Context))

	// Stop prevents further spawns and waits for in-flight work to finish,
	// bounded by ctx.
	Stop(ctx context.Context) error
}

// Kind selects a concrete executor at build time.
type Kind string

const (
	// KindSerial runs asynchronous units one at a time on a single
	// dispatcher goroutine (cooperative event-loop style).
	KindSerial Kind = "serial"
	// KindPool runs asynchronous units on a fixed-size worker pool.
	KindPool Kind = "pool"
)

// Config selects and sizes the executor.
type Config struct {
	Kind      Kind
	Workers   int // pool only; <=0 means 4
	QueueSize int // async lane queue; <=0 means 256
}

// New builds the configured executor.
func New(cfg Config) (Executor, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(cfg.Kind)))) {
	case KindSerial, "":
		return newSerial(cfg), nil
	case KindPool:
		return newPool(cfg), nil
	default:
		return nil, fmt.Errorf("executor: unknown kind %q", cfg.Kind)
	}
}
