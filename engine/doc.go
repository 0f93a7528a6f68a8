// Package engine implements the deterministic lockstep replication
// authority.
//
// Multiple independent nodes apply the same sequence of player actions to a
// shared game state and cryptographically verify that every node reached an
// identical result, without a central server.
//
// # Core Components
//
// Authority: The shared contract of both variants. Lockstep coordinates
// peers over a Transport; Local is the degenerate single-participant
// configuration with the same interface, so single-player and multiplayer
// code paths do not diverge.
//
// Lockstep: The core orchestrator. Owns the action log, the current state
// and hash, the pending-action tracker and the inbound reorder buffer, and
// reacts to transport events.
//
// PendingTracker: For each locally originated action, tracks which
// connected peers have acknowledged it. Resolves when all have, or when a
// peer disconnects (implicit acknowledgment).
//
// ReorderBuffer: Holds remote proposals that arrived ahead of the next
// expected sequence number and drains them in order as gaps close.
//
// Sync: Recovery protocol. New connections trigger a position exchange;
// a peer replies with a delta of missing entries, or the entire log when
// the requester's claimed hash disagrees with local history. Replay
// verifies every recomputed hash against the sender's recorded hash.
//
// # Control Flow
//
// A local submission broadcasts a proposal, waits for every connected peer
// to acknowledge receipt, applies the action, and broadcasts the resulting
// state hash. A remote proposal is buffered by proposed sequence, drained
// in order, applied, and acknowledged back to its sender. Hash broadcasts
// are cross-checked against the local log: a mismatch at the same position
// marks the authority desynced, and only a clean full replay from a peer
// clears that state.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. The log, state, hash,
// seen-set and reorder buffer form one cohesive unit guarded by a single
// lock; the lock is never held across transport sends or the
// acknowledgment wait.
package engine
