// Package store provides the SQLite-backed compile journal.
//
// Every statement compiled with journaling enabled is appended together with
// the inputs that produced it: the request document, operation name,
// variables, claims and a fingerprint of the model. Replay recompiles each
// entry and compares the result against the recorded fingerprint, which
// catches any nondeterminism in the translator.
//
// # Invariants
//
//   - Append-only: rows are never updated or deleted
//   - Idempotent: UNIQUE(request_hash, model_hash); recording the same input
//     twice keeps the first entry
//   - Ordering uses seq INTEGER (logical clock), never timestamps; every
//     query orders by seq ASC, id ASC COLLATE BINARY
//   - variables, claims and params are canonical JSON (internal/canonical);
//     claims is the JSON null for unauthenticated requests
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
