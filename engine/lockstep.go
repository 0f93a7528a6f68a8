package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/blockberries/lockberry/types"
	"github.com/blockberries/lockberry/wire"
)

// Lockstep is the networked replication authority. It coordinates action
// ordering with its peers so that every node applies the same actions in
// the same order and verifies agreement through state hashes.
//
// The log, state, hash, seen-set and reorder buffer form one unit guarded
// by mu. The pending tracker and peer set carry their own locks. mu is
// never held across transport sends or the acknowledgment wait.
type Lockstep struct {
	mu sync.RWMutex

	cfg       *Config
	step      StepFunc
	transport Transport

	ledger   *types.ActionLog
	state    types.StateSnapshot
	hash     types.Hash
	seen     map[string]struct{}
	reorder  *ReorderBuffer
	desynced bool

	pending *PendingTracker
	peers   *PeerSet

	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ Authority = (*Lockstep)(nil)
var _ Events = (*Lockstep)(nil)

// NewLockstep creates a lockstep authority at the genesis state. The
// caller must register the returned authority as the transport's event
// sink before Start.
func NewLockstep(cfg *Config, step StepFunc, transport Transport) (*Lockstep, error) {
	if cfg == nil {
		cfg = DefaultConfig("", types.StateSnapshot{})
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if step == nil {
		return nil, ErrNilStep
	}
	if transport == nil {
		return nil, ErrNilTransport
	}

	genesis := types.CopySnapshot(cfg.Genesis)
	return &Lockstep{
		cfg:       cfg,
		step:      step,
		transport: transport,
		ledger:    types.NewActionLog(),
		state:     genesis,
		hash:      types.SnapshotHash(genesis),
		seen:      make(map[string]struct{}),
		reorder:   NewReorderBuffer(),
		pending:   NewPendingTracker(),
		peers:     NewPeerSet(),
	}, nil
}

// NodeID returns this node's identifier.
func (ls *Lockstep) NodeID() string {
	return ls.cfg.NodeID
}

// Start launches the background rebroadcast loop.
func (ls *Lockstep) Start() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.started {
		return ErrAlreadyStarted
	}
	ls.started = true
	ls.ctx, ls.cancel = context.WithCancel(context.Background())

	if ls.cfg.RebroadcastInterval > 0 {
		ls.wg.Add(1)
		go ls.rebroadcastLoop()
	}

	log.Printf("[INFO] lockstep: started node=%s genesis_hash=%s",
		ls.cfg.NodeID, ls.hash.ShortString())
	return nil
}

// Stop halts background work. In-flight SubmitAction calls are released
// through their contexts, not by Stop.
func (ls *Lockstep) Stop() error {
	ls.mu.Lock()
	if !ls.started {
		ls.mu.Unlock()
		return ErrNotStarted
	}
	ls.started = false
	cancel := ls.cancel
	ls.mu.Unlock()

	cancel()
	ls.wg.Wait()
	log.Printf("[INFO] lockstep: stopped node=%s", ls.cfg.NodeID)
	return nil
}

// SubmitAction proposes a locally originated action, waits until every
// connected peer has acknowledged receipt, applies it, and announces the
// resulting state hash. With no connected peers the action applies
// immediately. Blocks until applied or ctx is done.
func (ls *Lockstep) SubmitAction(ctx context.Context, action types.Action) error {
	if err := action.Validate(); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}

	peers := ls.transport.Peers()

	ls.mu.Lock()
	if ls.desynced {
		ls.mu.Unlock()
		return ErrDesynced
	}
	if _, dup := ls.seen[action.ID]; dup {
		ls.mu.Unlock()
		return nil
	}

	if len(peers) == 0 {
		// Solo mode: no acknowledgment wait, no hash broadcast.
		ls.applyActionLocked(ls.cfg.NodeID, action)
		ls.drainLocked()
		ls.mu.Unlock()
		return nil
	}

	// The slot claim is registered under the same lock section that
	// computes the proposed sequence, so the drain tie-break always sees
	// it before any competing remote proposal.
	proposedSeq := ls.ledger.Len()
	done := ls.pending.Register(action, proposedSeq, peers)
	ls.mu.Unlock()

	ls.transport.BroadcastProposal(&wire.ActionProposal{
		SenderID: ls.cfg.NodeID,
		Seq:      proposedSeq,
		Action:   action,
	})

	select {
	case <-done:
	case <-ctx.Done():
		ls.pending.Remove(action.ID)
		return fmt.Errorf("submission abandoned: %w", ctx.Err())
	}

	ls.mu.Lock()
	ls.pending.Remove(action.ID)
	if ls.desynced {
		ls.mu.Unlock()
		return ErrDesynced
	}
	if _, dup := ls.seen[action.ID]; dup {
		// A peer's proposal for this action drained first. Already applied.
		ls.mu.Unlock()
		return nil
	}
	seq, hash := ls.applyActionLocked(ls.cfg.NodeID, action)
	ls.drainLocked()
	ls.mu.Unlock()

	ls.transport.BroadcastHash(&wire.HashBroadcast{
		SenderID:  ls.cfg.NodeID,
		Seq:       seq,
		StateHash: hash,
	})
	return nil
}

// applyActionLocked runs the step function, appends the log entry at the
// next sequence number and marks the action seen. Callers hold mu.
func (ls *Lockstep) applyActionLocked(origin string, action types.Action) (uint64, types.Hash) {
	seq := ls.ledger.Len()
	ls.state = ls.step(ls.state, types.CopyAction(action))
	ls.hash = types.SnapshotHash(ls.state)

	entry := types.LogEntry{
		Seq:        seq,
		OriginNode: origin,
		Action:     action,
		StateHash:  ls.hash,
	}
	if err := ls.ledger.Append(entry); err != nil {
		// seq was read under the same lock, so a gap is impossible.
		panic(fmt.Sprintf("LOCKSTEP CRITICAL: append at computed seq failed: %v", err))
	}
	ls.seen[action.ID] = struct{}{}

	log.Printf("[DEBUG] lockstep: applied seq=%d origin=%s action=%s hash=%s",
		seq, origin, action.ID, ls.hash.ShortString())
	return seq, ls.hash
}

// OnActionProposal buffers a remote proposal, drains all in-order
// proposals, and always acknowledges receipt back to the sender. An ack
// for a duplicate proposal heals a lost earlier ack.
func (ls *Lockstep) OnActionProposal(peerID string, msg *wire.ActionProposal) {
	if msg.SenderID == ls.cfg.NodeID {
		return
	}
	if err := msg.Action.Validate(); err != nil {
		log.Printf("[WARN] lockstep: dropping invalid proposal from %s: %v", peerID, err)
		return
	}

	ls.mu.Lock()
	if !ls.desynced {
		if _, dup := ls.seen[msg.Action.ID]; !dup {
			ls.reorder.Insert(msg.Seq, msg.SenderID, msg.Action)
			ls.drainLocked()
		}
	}
	ls.mu.Unlock()

	ls.transport.SendAck(msg.SenderID, &wire.ActionAck{
		SenderID: ls.cfg.NodeID,
		ActionID: msg.Action.ID,
		Seq:      msg.Seq,
	})
}

// drainLocked applies buffered proposals while slots are available. A
// remote proposal waits when this node's own in-flight proposal claims
// the next slot with a lower node ID: the local action applies first and
// the remote one settles into the following slot, so every node derives
// the same total order under concurrent proposals. Callers hold mu.
func (ls *Lockstep) drainLocked() {
	for {
		next := ls.ledger.Len()
		lowest, candidateOrigin, ok := ls.reorder.PeekLowest()
		if !ok || lowest > next {
			return
		}
		if claimed, held := ls.pending.LowestPendingSeq(); held &&
			claimed <= next && ls.cfg.NodeID < candidateOrigin {
			return
		}
		origin, action, _ := ls.reorder.TakeLowest(next)
		if _, dup := ls.seen[action.ID]; dup {
			// The action landed at an earlier sequence in the meantime.
			continue
		}
		ls.applyActionLocked(origin, action)
	}
}

// OnActionAck records a peer's acknowledgment of a local proposal.
func (ls *Lockstep) OnActionAck(peerID string, msg *wire.ActionAck) {
	ls.pending.Ack(msg.ActionID, msg.SenderID)
}

// OnHashBroadcast cross-checks a peer's announced hash against the local
// log. A mismatch at the same sequence means the nodes computed different
// states from what should be identical input, and marks this node
// desynced until a sync replay completes cleanly. A broadcast past the
// end of the local log means this node missed entries, so it requests a
// sync from the announcing peer.
func (ls *Lockstep) OnHashBroadcast(peerID string, msg *wire.HashBroadcast) {
	if msg.SenderID == ls.cfg.NodeID {
		return
	}
	ls.peers.SetPosition(msg.SenderID, msg.Seq+1, msg.StateHash)

	ls.mu.Lock()
	var (
		behind  bool
		fromSeq uint64
		latest  types.Hash
	)
	entry, ok := ls.ledger.Entry(msg.Seq)
	switch {
	case !ok:
		behind = true
		fromSeq = ls.ledger.Len()
		latest = ls.hash
	case types.HashEqual(entry.StateHash, msg.StateHash):
	default:
		if !ls.desynced {
			ls.desynced = true
			log.Printf("[WARN] lockstep: desync detected at seq=%d: local=%s peer(%s)=%s",
				msg.Seq, entry.StateHash.ShortString(), msg.SenderID, msg.StateHash.ShortString())
		}
	}
	ls.mu.Unlock()

	if behind {
		ls.transport.SendSyncRequest(msg.SenderID, &wire.SyncRequest{
			SenderID:   ls.cfg.NodeID,
			FromSeq:    fromSeq,
			LatestHash: latest,
		})
	}
}

// Status is a point-in-time snapshot of the authority for operators.
type Status struct {
	NodeID    string
	LogLen    uint64
	StateHash types.Hash
	Desynced  bool
	Pending   int
	Peers     []PeerPosition
}

// Status reports the authority's current position and peer view.
func (ls *Lockstep) Status() Status {
	ls.mu.RLock()
	st := Status{
		NodeID:    ls.cfg.NodeID,
		LogLen:    ls.ledger.Len(),
		StateHash: ls.hash,
		Desynced:  ls.desynced,
	}
	ls.mu.RUnlock()

	st.Pending = ls.pending.Len()
	st.Peers = ls.peers.All()
	return st
}

// State returns a copy of the current replicated state.
func (ls *Lockstep) State() types.StateSnapshot {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return types.CopySnapshot(ls.state)
}

// StateHash returns the hash of the current replicated state.
func (ls *Lockstep) StateHash() types.Hash {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.hash
}

// Log returns copies of all applied log entries in order.
func (ls *Lockstep) Log() []types.LogEntry {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.ledger.Entries()
}

// Desynced reports whether this node has diverged from a peer.
func (ls *Lockstep) Desynced() bool {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return ls.desynced
}

// rebroadcastLoop periodically re-sends proposals that are still awaiting
// acknowledgments, healing lost broadcasts.
func (ls *Lockstep) rebroadcastLoop() {
	defer ls.wg.Done()

	ticker := time.NewTicker(ls.cfg.RebroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ls.ctx.Done():
			return
		case <-ticker.C:
			for _, info := range ls.pending.StaleSince(ls.cfg.RebroadcastInterval) {
				log.Printf("[DEBUG] lockstep: rebroadcasting action=%s seq=%d awaiting=%d",
					info.Action.ID, info.Seq, info.AwaitingCount)
				ls.transport.BroadcastProposal(&wire.ActionProposal{
					SenderID: ls.cfg.NodeID,
					Seq:      info.Seq,
					Action:   info.Action,
				})
			}
		}
	}
}
