// Package store is the SQLite build cache of stefc.
//
// A build records one compilation of a schema. Artifacts are the outputs of
// a build (generated Go source, canonical IR) keyed by ir.ArtifactKey, which
// covers the schema hash, the target, the target options and the compiler
// version. An artifact is written once: a second put with the same key is a
// no-op, so a cache hit never rewrites content.
//
// # Ordering
//
// Builds are ordered by seq, a counter assigned by BeginBuild, with id as a
// tie breaker under BINARY collation. Wall time is never used.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
