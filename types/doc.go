// Package types defines the core data structures of the lockstep protocol.
//
// # Core Types
//
// Action: One atomic, uniquely identified unit of player input. The ID is
// globally unique and is the de-duplication key across retransmission and
// rebroadcast.
//
// StateSnapshot: The replicated game state, an action counter plus the
// operator roster. Snapshots serialize to a canonical byte form (operators
// sorted by ID, stable field order, integer-only numerics) so that hashes
// computed on independent nodes are comparable bit for bit.
//
// LogEntry: One applied action together with the sequence number it was
// applied at, the node that originated it, and the state hash after apply.
//
// ActionLog: The append-only, gap-free ledger of log entries. It is the
// single source of truth for what happened and in what order.
//
// # Hashing
//
// State hashes are SHA-256 over the canonical snapshot bytes. Two nodes that
// applied the same actions in the same order hold identical hashes; a
// mismatch at the same sequence position is a desync.
//
// # Mutability
//
// Actions and log entries are immutable once created. ActionLog entries are
// never mutated or deleted except by Reset, which exists only for
// full-replay recovery. The log is not internally synchronized; it is owned
// by a single authority and guarded by the authority's lock.
package types
