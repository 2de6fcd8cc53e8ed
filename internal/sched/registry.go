package sched

import (
	"context"
	"sync"
	"time"
)

// instanceRecord tracks one in-flight execution of a task body.
type instanceRecord struct {
	id        uint64
	startedAt time.Time
	deadline  time.Time // zero when unbounded

	// cancel tears the instance's context down. Owned by the event loop;
	// the running body holds no reference back into the registry.
	cancel context.CancelFunc
}

// taskState is the mutable runtime state behind a task definition.
type taskState struct {
	def Task

	// remaining counts firings left to dispatch; math.MaxUint64 for
	// Repeated. Skipped firings do not consume it.
	remaining uint64

	instances   map[uint64]*instanceRecord
	instanceSeq uint64

	skips uint64
	fired uint64

	lastFire time.Time
	nextFire time.Time

	// exhausted marks a task whose schedule is spent (Once fired, CountDown
	// at zero, or year bound passed). It is invisible to Snapshot and owns
	// no slot; the record lingers only until its live instances drain.
	exhausted bool
}

// registry maps task ids to runtime state. The event loop is the sole
// mutator; the mutex exists so Snapshot can read from other goroutines.
type registry struct {
	mu    sync.Mutex
	tasks map[uint64]*taskState
}

func newRegistry() *registry {
	return &registry{tasks: make(map[uint64]*taskState)}
}
