// Package core defines the expression model shared by the compiler and
// the flush scheduler.
//
// This package contains:
//   - Schema objects (MetaData, Table, Column, ForeignKey)
//   - The immutable statement tree (SelectStmt, InsertStmt, UpdateStmt,
//     DeleteStmt and the expressions they hold)
//   - Structural cache keys (CacheKey, KeyBuilder)
//
// Every node is a closed variant identified by its Kind. Builders never
// mutate their receiver; they return a modified copy, so a tree may be
// shared freely between goroutines and reused as a cache key source.
//
// The Golden Rule: pkg/core imports ONLY pkg/types, pkg/operator,
// pkg/sqlerr, the xxh3 hash and stdlib. Dialects, the compiler and the
// scheduler depend on core, not the reverse.
package core
