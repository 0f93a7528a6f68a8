package engine

import (
	"log"

	"github.com/blockberries/lockberry/types"
	"github.com/blockberries/lockberry/wire"
)

// OnPeerConnected announces the local log position to the new peer so it
// can send whatever history this node is missing.
func (ls *Lockstep) OnPeerConnected(peerID string) {
	log.Printf("[INFO] lockstep: peer connected %s", peerID)
	ls.requestSyncFrom(peerID)
}

// Resync asks every connected peer for recovery history. This is the
// application-facing recovery hook for a desynced node; divergence is
// never repaired locally, only by replaying a peer's log.
func (ls *Lockstep) Resync() {
	for _, peerID := range ls.transport.Peers() {
		ls.requestSyncFrom(peerID)
	}
}

func (ls *Lockstep) requestSyncFrom(peerID string) {
	ls.mu.RLock()
	fromSeq := ls.ledger.Len()
	latest := ls.hash
	ls.mu.RUnlock()

	log.Printf("[INFO] lockstep: requesting sync from %s at seq=%d", peerID, fromSeq)
	ls.transport.SendSyncRequest(peerID, &wire.SyncRequest{
		SenderID:   ls.cfg.NodeID,
		FromSeq:    fromSeq,
		LatestHash: latest,
	})
}

// OnPeerDisconnected counts the departed peer as having acknowledged all
// in-flight actions and forgets its announced position.
func (ls *Lockstep) OnPeerDisconnected(peerID string) {
	log.Printf("[INFO] lockstep: peer disconnected %s", peerID)
	ls.pending.PeerGone(peerID)
	ls.peers.Remove(peerID)
}

// OnSyncRequest answers a peer's position announcement. A requester whose
// claimed hash matches local history gets the delta of entries it is
// missing; a requester at zero or with divergent history gets the full
// log flagged for replacement. A requester at or ahead of the local
// position gets nothing.
func (ls *Lockstep) OnSyncRequest(peerID string, msg *wire.SyncRequest) {
	ls.mu.RLock()
	localLen := ls.ledger.Len()

	var (
		entries    []types.LogEntry
		fullReplay bool
	)
	switch {
	case msg.FromSeq > localLen:
		// The requester is ahead. It will serve this node instead.
	case msg.FromSeq == 0:
		entries = ls.ledger.Entries()
		fullReplay = true
	default:
		prior, ok := ls.ledger.Entry(msg.FromSeq - 1)
		if ok && types.HashEqual(prior.StateHash, msg.LatestHash) {
			entries = ls.ledger.EntriesFrom(msg.FromSeq)
		} else {
			entries = ls.ledger.Entries()
			fullReplay = true
		}
	}
	ls.mu.RUnlock()

	if len(entries) == 0 {
		return
	}
	log.Printf("[INFO] lockstep: sync response to %s: %d entries full_replay=%v",
		msg.SenderID, len(entries), fullReplay)
	ls.transport.SendSyncResponse(msg.SenderID, &wire.SyncResponse{
		SenderID:   ls.cfg.NodeID,
		Entries:    entries,
		FullReplay: fullReplay,
	})
}

// OnSyncResponse replays a peer's log entries through the normal apply
// path, verifying every recomputed hash against the sender's recorded
// hash. A full replay first resets local history to genesis. A replay
// that completes cleanly clears the desynced flag; any gap or hash
// mismatch aborts the replay and marks the node desynced.
func (ls *Lockstep) OnSyncResponse(peerID string, msg *wire.SyncResponse) {
	if len(msg.Entries) == 0 && !msg.FullReplay {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if msg.FullReplay {
		log.Printf("[INFO] lockstep: full replay from %s: discarding %d local entries",
			msg.SenderID, ls.ledger.Len())
		genesis := types.CopySnapshot(ls.cfg.Genesis)
		ls.ledger.Reset()
		ls.state = genesis
		ls.hash = types.SnapshotHash(genesis)
		ls.seen = make(map[string]struct{})
	}

	for _, e := range msg.Entries {
		next := ls.ledger.Len()
		if e.Seq < next {
			continue
		}
		if e.Seq > next {
			ls.desynced = true
			log.Printf("[WARN] lockstep: sync replay gap from %s: got seq=%d, want %d",
				msg.SenderID, e.Seq, next)
			return
		}
		_, hash := ls.applyActionLocked(e.OriginNode, e.Action)
		if !types.HashEqual(hash, e.StateHash) {
			ls.desynced = true
			log.Printf("[WARN] lockstep: sync replay diverged from %s at seq=%d: local=%s recorded=%s",
				msg.SenderID, e.Seq, hash.ShortString(), e.StateHash.ShortString())
			return
		}
	}

	if ls.desynced {
		log.Printf("[INFO] lockstep: resynced from %s at seq=%d hash=%s",
			msg.SenderID, ls.ledger.Len(), ls.hash.ShortString())
	}
	ls.desynced = false

	// Proposals buffered during the replay may now have open slots.
	ls.drainLocked()
}
