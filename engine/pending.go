package engine

import (
	"sync"
	"time"

	"github.com/blockberries/lockberry/types"
)

// pendingAction tracks one locally originated action awaiting peer
// acknowledgments.
type pendingAction struct {
	action   types.Action
	seq      uint64
	required map[string]struct{}
	acked    map[string]struct{}
	sentAt   time.Time
	done     chan struct{}
	resolved bool
}

// PendingInfo describes one in-flight action for rebroadcast and status
// reporting.
type PendingInfo struct {
	Action        types.Action
	Seq           uint64
	AwaitingCount int
}

// PendingTracker tracks locally originated actions until every peer that
// was connected at submission time has acknowledged receipt. A peer
// disconnecting counts as an implicit acknowledgment, so departures never
// wedge the submitter.
type PendingTracker struct {
	mu      sync.Mutex
	actions map[string]*pendingAction
}

// NewPendingTracker creates an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{actions: make(map[string]*pendingAction)}
}

// Register begins tracking an action against the given peer set and
// returns a channel closed once all of them have acknowledged. With no
// peers the channel is closed immediately.
func (t *PendingTracker) Register(action types.Action, seq uint64, peers []string) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &pendingAction{
		action:   types.CopyAction(action),
		seq:      seq,
		required: make(map[string]struct{}, len(peers)),
		acked:    make(map[string]struct{}, len(peers)),
		sentAt:   time.Now(),
		done:     make(chan struct{}),
	}
	for _, peer := range peers {
		p.required[peer] = struct{}{}
	}
	t.actions[action.ID] = p
	t.maybeResolveLocked(p)
	return p.done
}

// Ack records a peer's acknowledgment of an action. Acks for unknown
// actions or unexpected peers are ignored.
func (t *PendingTracker) Ack(actionID, peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.actions[actionID]
	if !ok {
		return
	}
	if _, required := p.required[peerID]; !required {
		return
	}
	p.acked[peerID] = struct{}{}
	t.maybeResolveLocked(p)
}

// PeerGone removes a disconnected peer from every in-flight action,
// resolving any action it was the last holdout for.
func (t *PendingTracker) PeerGone(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.actions {
		if _, required := p.required[peerID]; !required {
			continue
		}
		delete(p.required, peerID)
		delete(p.acked, peerID)
		t.maybeResolveLocked(p)
	}
}

// Remove stops tracking an action, typically after a cancelled submission
// or once the submitter has consumed the resolution.
func (t *PendingTracker) Remove(actionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.actions, actionID)
}

// StaleSince returns actions that have been awaiting acknowledgments for
// at least d, resetting their send timestamps so each is reported once
// per interval.
func (t *PendingTracker) StaleSince(d time.Duration) []PendingInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-d)
	var stale []PendingInfo
	for _, p := range t.actions {
		if p.resolved || p.sentAt.After(cutoff) {
			continue
		}
		p.sentAt = time.Now()
		stale = append(stale, PendingInfo{
			Action:        types.CopyAction(p.action),
			Seq:           p.seq,
			AwaitingCount: len(p.required) - len(p.acked),
		})
	}
	return stale
}

// LowestPendingSeq returns the lowest slot claimed by a still-tracked
// local action. The claim holds from registration until the submitter
// removes the action, which keeps remote proposals from taking a slot a
// lower-ID local action is about to fill.
func (t *PendingTracker) LowestPendingSeq() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	var lowest uint64
	for _, p := range t.actions {
		if !found || p.seq < lowest {
			lowest = p.seq
			found = true
		}
	}
	return lowest, found
}

// Len returns the number of tracked actions.
func (t *PendingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.actions)
}

func (t *PendingTracker) maybeResolveLocked(p *pendingAction) {
	if p.resolved || len(p.acked) < len(p.required) {
		return
	}
	p.resolved = true
	close(p.done)
}
