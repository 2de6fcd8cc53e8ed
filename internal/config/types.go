package config

import (
	"fmt"
	"strings"
	"time"

	"delaytimer/internal/executor"
	"delaytimer/internal/sched"
)

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Executor  ExecutorConfig  `json:"executor"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Tasks     []TaskConfig    `json:"tasks"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"`
	Console *bool  `json:"console,omitempty"`
	File    struct {
		Enabled bool   `json:"enabled,omitempty"`
		Path    string `json:"path,omitempty"`
	} `json:"file,omitempty"`
}

// SchedulerConfig sizes the scheduler core.
type SchedulerConfig struct {
	BusCapacity int `json:"bus_capacity,omitempty"`
	HistorySize int `json:"history_size,omitempty"`
}

// ExecutorConfig selects the executor the task bodies run on.
//
// kind is "serial" (single-threaded event loop) or "pool" (worker pool).
type ExecutorConfig struct {
	Kind      string `json:"kind,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	QueueSize int    `json:"queue_size,omitempty"`
}

// JournalConfig controls the run-history journal.
// driver is "none" (default), "file" or "sqlite".
type JournalConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`
	Keep   int    `json:"keep,omitempty"`
}

// TaskConfig declares one scheduled shell command.
//
// mode is "once", "countdown" or "repeated" (default). count is required for
// countdown. max_run_time is a Go duration string ("0s" disables the bound).
type TaskConfig struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name,omitempty"`
	Cron        string `json:"cron"`
	Mode        string `json:"mode,omitempty"`
	Count       uint64 `json:"count,omitempty"`
	MaxParallel int    `json:"max_parallel,omitempty"`
	MaxRunTime  string `json:"max_run_time,omitempty"`
	Command     string `json:"command"`
}

// Validate rejects configurations a running daemon could not honor.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Executor.Kind)) {
	case "", "serial", "pool":
	default:
		return fmt.Errorf("executor.kind: unknown kind %q", c.Executor.Kind)
	}

	seen := make(map[uint64]bool, len(c.Tasks))
	for i := range c.Tasks {
		tc := &c.Tasks[i]
		path := fmt.Sprintf("tasks[%d]", i)
		if tc.ID == 0 {
			return fmt.Errorf("%s: id 0 is reserved", path)
		}
		if seen[tc.ID] {
			return fmt.Errorf("%s: duplicate id %d", path, tc.ID)
		}
		seen[tc.ID] = true
		if _, err := tc.ToTask(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// ToTask converts the declaration into a scheduler task.
func (tc TaskConfig) ToTask() (sched.Task, error) {
	if strings.TrimSpace(tc.Command) == "" {
		return sched.Task{}, fmt.Errorf("command is required")
	}

	var (
		freq sched.Frequency
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(tc.Mode)) {
	case "once":
		freq, err = sched.Once(tc.Cron)
	case "countdown":
		freq, err = sched.CountDown(tc.Count, tc.Cron)
	case "", "repeated":
		freq, err = sched.Repeated(tc.Cron)
	default:
		return sched.Task{}, fmt.Errorf("unknown mode %q", tc.Mode)
	}
	if err != nil {
		return sched.Task{}, err
	}

	var maxRun time.Duration
	if maxRun, err = ParseDurationField("max_run_time", tc.MaxRunTime); err != nil {
		return sched.Task{}, err
	}

	name := strings.TrimSpace(tc.Name)
	if name == "" {
		name = fmt.Sprintf("task-%d", tc.ID)
	}

	return sched.Task{
		ID:          tc.ID,
		Name:        name,
		Frequency:   freq,
		Body:        executor.Command(tc.Command),
		MaxParallel: tc.MaxParallel,
		MaxRunTime:  maxRun,
	}, nil
}

// LogxLevel returns the configured level with a sane default.
func (l LoggingConfig) LogxLevel() string {
	if strings.TrimSpace(l.Level) == "" {
		return "info"
	}
	return l.Level
}

// ConsoleEnabled defaults to true when omitted.
func (l LoggingConfig) ConsoleEnabled() bool {
	if l.Console == nil {
		return true
	}
	return *l.Console
}
