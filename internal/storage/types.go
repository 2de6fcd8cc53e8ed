package storage

import (
	"errors"
	"time"
)

// ErrDisabled is returned by operations on a nil/disabled store.
var ErrDisabled = errors.New("storage: disabled")

// RunRecord is one finished task instance as persisted by the journal.
// Scheduling state is never persisted; the journal is write-mostly
// observation data.
type RunRecord struct {
	TaskID   uint64        `json:"task_id"`
	Instance uint64        `json:"instance"`
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
}

// Config selects the journal backend.
type Config struct {
	// Driver is "none" (default), "file" or "sqlite".
	Driver string
	// Path is the journal location for file and sqlite drivers.
	Path string
	// Keep bounds retained records for the sqlite driver; <=0 keeps 10000.
	Keep int
	// BusyTimeout is applied as the sqlite busy_timeout pragma.
	BusyTimeout time.Duration
}
