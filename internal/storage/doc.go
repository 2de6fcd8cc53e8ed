// Package storage persists the scheduler's run-history journal.
//
// The journal records finished task instances for operators; it is strictly
// write-mostly observation data. The scheduler itself is purely in-memory:
// no task definitions or slot state are ever persisted.
//
// Two backends are provided: a JSON-lines file and a sqlite database with
// bounded retention. Both are selected by Config.Driver; "none" disables
// the journal entirely (Open returns a nil Store).
package storage
