// Package wire defines the lockstep wire protocol.
//
// The protocol is identified by the versioned tag ProtocolID
// ("/lockstep/1.0.0"), carried out of band by the transport to select this
// decoder. Messages are framed as a single type-prefix byte followed by a
// JSON payload.
//
// # Message Types
//
// ActionProposal: A node announces a local action at its proposed sequence
// number. Broadcast to all peers.
//
// ActionAck: Receipt acknowledgment for a proposal, addressed to the
// proposal's sender. Acknowledgment is about receipt, not application
// order.
//
// HashBroadcast: The state hash a node computed after applying the entry at
// a sequence number. Peers cross-check it against their own log to detect
// divergence.
//
// SyncRequest: Sent to a newly connected peer with the local log length and
// latest hash, so the peer can decide between a delta and a full replay.
//
// SyncResponse: The replayable log entries, flagged FullReplay when the
// requester must discard its local history first.
package wire
