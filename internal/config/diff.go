package config

import "encoding/json"

// TaskDiff is the outcome of comparing two task lists: what a live scheduler
// must add, update in place, or remove to match the new configuration.
type TaskDiff struct {
	Added   []TaskConfig
	Updated []TaskConfig
	Removed []uint64
}

func (d TaskDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// DiffTasks compares by task id; content equality uses the canonical JSON
// encoding so field order and omitted defaults do not cause false updates.
func DiffTasks(old, next []TaskConfig) TaskDiff {
	var d TaskDiff

	prev := make(map[uint64]TaskConfig, len(old))
	for _, tc := range old {
		prev[tc.ID] = tc
	}
	cur := make(map[uint64]bool, len(next))

	for _, tc := range next {
		cur[tc.ID] = true
		before, ok := prev[tc.ID]
		switch {
		case !ok:
			d.Added = append(d.Added, tc)
		case !sameTask(before, tc):
			d.Updated = append(d.Updated, tc)
		}
	}
	for _, tc := range old {
		if !cur[tc.ID] {
			d.Removed = append(d.Removed, tc.ID)
		}
	}
	return d
}

func sameTask(a, b TaskConfig) bool {
	ab, aerr := json.Marshal(a)
	bb, berr := json.Marshal(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(ab) == string(bb)
}
