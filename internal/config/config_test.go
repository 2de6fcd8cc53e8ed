package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const sampleYAML = `
logging:
  level: debug
scheduler:
  bus_capacity: 512
executor:
  kind: pool
  workers: 8
journal:
  driver: file
  path: ./journal.jsonl
tasks:
  - id: 1
    name: heartbeat
    cron: "0/30 * * * * * *"
    command: "echo beat"
  - id: 2
    cron: "0 0 3 * * * *"
    mode: countdown
    count: 5
    max_parallel: 2
    max_run_time: "10m"
    command: "tar czf /tmp/backup.tgz /etc"
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeTemp(t, "delaytimer.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.LogxLevel() != "debug" {
		t.Fatalf("level = %s, want debug", cfg.Logging.LogxLevel())
	}
	if cfg.Scheduler.BusCapacity != 512 {
		t.Fatalf("bus_capacity = %d, want 512", cfg.Scheduler.BusCapacity)
	}
	if cfg.Executor.Kind != "pool" || cfg.Executor.Workers != 8 {
		t.Fatalf("executor = %+v", cfg.Executor)
	}
	if len(cfg.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(cfg.Tasks))
	}

	task, err := cfg.Tasks[1].ToTask()
	if err != nil {
		t.Fatalf("ToTask: %v", err)
	}
	if task.ID != 2 || task.Name != "task-2" {
		t.Fatalf("task = %+v", task)
	}
	if task.MaxParallel != 2 || task.MaxRunTime != 10*time.Minute {
		t.Fatalf("task policy = %+v", task)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeTemp(t, "bad.yaml", "logging:\n  levle: info\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "zero id",
			yaml: "tasks:\n  - id: 0\n    cron: \"* * * * * * *\"\n    command: \"true\"\n",
		},
		{
			name: "duplicate id",
			yaml: "tasks:\n  - id: 1\n    cron: \"* * * * * * *\"\n    command: \"true\"\n  - id: 1\n    cron: \"* * * * * * *\"\n    command: \"true\"\n",
		},
		{
			name: "bad cron",
			yaml: "tasks:\n  - id: 1\n    cron: \"* * *\"\n    command: \"true\"\n",
		},
		{
			name: "missing command",
			yaml: "tasks:\n  - id: 1\n    cron: \"* * * * * * *\"\n",
		},
		{
			name: "countdown without count",
			yaml: "tasks:\n  - id: 1\n    cron: \"* * * * * * *\"\n    mode: countdown\n    command: \"true\"\n",
		},
		{
			name: "unknown executor",
			yaml: "executor:\n  kind: fiber\n",
		},
		{
			name: "negative max_run_time",
			yaml: "tasks:\n  - id: 1\n    cron: \"* * * * * * *\"\n    max_run_time: \"-3s\"\n    command: \"true\"\n",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(writeTemp(t, "cfg.yaml", tt.yaml))
			if _, err := m.Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDiffTasks(t *testing.T) {
	t.Parallel()
	old := []TaskConfig{
		{ID: 1, Cron: "* * * * * * *", Command: "a"},
		{ID: 2, Cron: "* * * * * * *", Command: "b"},
		{ID: 3, Cron: "* * * * * * *", Command: "c"},
	}
	next := []TaskConfig{
		{ID: 1, Cron: "* * * * * * *", Command: "a"},
		{ID: 2, Cron: "0/5 * * * * * *", Command: "b"},
		{ID: 4, Cron: "* * * * * * *", Command: "d"},
	}

	d := DiffTasks(old, next)
	if len(d.Added) != 1 || d.Added[0].ID != 4 {
		t.Fatalf("Added = %+v", d.Added)
	}
	if len(d.Updated) != 1 || d.Updated[0].ID != 2 {
		t.Fatalf("Updated = %+v", d.Updated)
	}
	if len(d.Removed) != 1 || d.Removed[0] != 3 {
		t.Fatalf("Removed = %+v", d.Removed)
	}

	if !DiffTasks(old, old).Empty() {
		t.Fatal("identical lists must diff empty")
	}
}
