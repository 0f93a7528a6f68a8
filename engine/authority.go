package engine

import (
	"context"

	"github.com/blockberries/lockberry/types"
	"github.com/blockberries/lockberry/wire"
)

// StepFunc is the deterministic state transition of the replicated game.
// It must be a pure function of its inputs: identical snapshot and action
// on every node must yield an identical snapshot. Invalid or unknown
// payloads must produce a deterministic result rather than an error, so
// that every node stays in agreement about what the action did.
type StepFunc func(types.StateSnapshot, types.Action) types.StateSnapshot

// Authority is the game-facing replication contract, shared by the
// networked Lockstep and the single-participant Local variants so game
// code does not branch on session topology.
type Authority interface {
	// SubmitAction validates and replicates a locally originated action,
	// blocking until the action is applied or ctx is done.
	SubmitAction(ctx context.Context, action types.Action) error

	// State returns a copy of the current replicated state.
	State() types.StateSnapshot

	// StateHash returns the hash of the current replicated state.
	StateHash() types.Hash

	// Log returns copies of all applied log entries in order.
	Log() []types.LogEntry

	// Desynced reports whether this node has diverged from a peer and
	// is refusing new submissions until recovery completes.
	Desynced() bool
}

// Transport is the outbound half of the network layer. Sends are
// fire-and-forget: delivery failures surface as missing acks and are
// healed by rebroadcast and sync, not by error returns.
type Transport interface {
	// BroadcastProposal sends an action proposal to all connected peers.
	BroadcastProposal(msg *wire.ActionProposal)

	// SendAck sends a receipt acknowledgment to one peer.
	SendAck(peerID string, msg *wire.ActionAck)

	// BroadcastHash sends a post-apply state hash to all connected peers.
	BroadcastHash(msg *wire.HashBroadcast)

	// SendSyncRequest sends this node's log position to one peer.
	SendSyncRequest(peerID string, msg *wire.SyncRequest)

	// SendSyncResponse sends replayable log entries to one peer.
	SendSyncResponse(peerID string, msg *wire.SyncResponse)

	// Peers returns the IDs of all currently connected peers.
	Peers() []string
}

// Events is the inbound half of the network layer, implemented by the
// authority and invoked by the transport as messages and connection
// changes arrive. Implementations must not assume any delivery order
// across peers.
type Events interface {
	OnActionProposal(peerID string, msg *wire.ActionProposal)
	OnActionAck(peerID string, msg *wire.ActionAck)
	OnHashBroadcast(peerID string, msg *wire.HashBroadcast)
	OnSyncRequest(peerID string, msg *wire.SyncRequest)
	OnSyncResponse(peerID string, msg *wire.SyncResponse)
	OnPeerConnected(peerID string)
	OnPeerDisconnected(peerID string)
}
