package sched

import (
	"sort"
	"time"
)

// HistoryItem is one finished instance, kept in a bounded ring for
// diagnostics.
type HistoryItem struct {
	TaskID   uint64
	Instance uint64
	Name     string
	Started  time.Time
	Duration time.Duration
	Outcome  Outcome
	Error    string
}

// TaskSnapshot is a point-in-time view of one registered task.
type TaskSnapshot struct {
	ID   uint64
	Name string
	Mode string
	Spec string

	// Remaining firings; -1 means unbounded.
	Remaining int64

	Live     int
	Skips    uint64
	Fired    uint64
	LastFire time.Time
	NextFire time.Time
}

// Snapshot is a lightweight diagnostics view of the scheduler.
type Snapshot struct {
	Stopped  bool
	QueueLen int
	QueueCap int

	Fired          uint64
	Skipped        uint64
	Finished       uint64
	Failed         uint64
	JournalDropped uint64

	// EventsDropped counts observation events lost to slow subscribers.
	EventsDropped uint64

	Tasks   []TaskSnapshot
	History []HistoryItem
}

// Snapshot returns a consistent copy of the scheduler's observable state.
// Exhausted tasks whose instances are still draining are omitted: they are
// no longer registered.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Stopped:        s.stopped.Load(),
		QueueLen:       len(s.events),
		QueueCap:       cap(s.events),
		Fired:          s.fired.Load(),
		Skipped:        s.skipped.Load(),
		Finished:       s.finished.Load(),
		Failed:         s.failed.Load(),
		JournalDropped: s.journalDropped.Load(),
		EventsDropped:  s.bus.Dropped(),
	}

	s.reg.mu.Lock()
	for id, st := range s.reg.tasks {
		if st.exhausted {
			continue
		}
		remaining := int64(-1)
		if st.remaining != frequencyInfinite {
			remaining = int64(st.remaining)
		}
		snap.Tasks = append(snap.Tasks, TaskSnapshot{
			ID:        id,
			Name:      st.def.Name,
			Mode:      st.def.Frequency.Mode().String(),
			Spec:      st.def.Frequency.Spec(),
			Remaining: remaining,
			Live:      len(st.instances),
			Skips:     st.skips,
			Fired:     st.fired,
			LastFire:  st.lastFire,
			NextFire:  st.nextFire,
		})
	}
	s.reg.mu.Unlock()

	sort.Slice(snap.Tasks, func(i, j int) bool { return snap.Tasks[i].ID < snap.Tasks[j].ID })

	s.hmu.Lock()
	snap.History = make([]HistoryItem, len(s.history))
	copy(snap.History, s.history)
	s.hmu.Unlock()

	return snap
}
