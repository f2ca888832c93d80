// Package storage provides the string-keyed persistence layer behind settings,
// history and the scheduler flags.
//
// Drivers:
//   - "file":   JSON snapshot plus an append-only journal, compacted periodically
//   - "sqlite": a single kv table in a SQLite database file
//   - "memory": process-local map (tests, throwaway runs)
package storage
