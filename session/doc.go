// Package session provides core.Session backends: a mutex-guarded in-memory
// store for tests and ephemeral runs, and a SQLite-backed store for durable
// multi-run memory. Both preserve insertion order and the read-limit
// semantics of the Session contract.
package session
