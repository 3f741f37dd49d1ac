// Package history persists completed migration batches to a local SQLite
// database so past runs can be inspected long after the process exits.
package history
