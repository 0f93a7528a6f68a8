package engine

import (
	"sort"

	"github.com/blockberries/lockberry/types"
)

// bufferedProposal is one remote proposal held until its slot comes up.
type bufferedProposal struct {
	origin string
	action types.Action
}

// ReorderBuffer holds remote proposals keyed by sequence number so they
// can be applied in order as gaps close. When two nodes propose different
// actions at the same sequence, the proposal from the lexicographically
// lowest origin node ID wins the slot and the loser is displaced to the
// following slot. Displacement is order-independent: the same set of
// proposals settles into the same slots regardless of arrival order, so
// every node derives the same total order.
//
// ReorderBuffer is not internally synchronized: it is owned by one
// authority and all access goes through the authority's lock.
type ReorderBuffer struct {
	proposals map[uint64]bufferedProposal
}

// NewReorderBuffer creates an empty buffer.
func NewReorderBuffer() *ReorderBuffer {
	return &ReorderBuffer{proposals: make(map[uint64]bufferedProposal)}
}

// Insert buffers a proposal at its proposed sequence. On a collision the
// lowest origin node ID keeps the slot and the displaced proposal moves
// up one slot, cascading as needed. A proposal from an origin that
// already holds the slot is a retransmission and is dropped.
func (b *ReorderBuffer) Insert(seq uint64, origin string, action types.Action) {
	entry := bufferedProposal{origin: origin, action: types.CopyAction(action)}
	for {
		existing, occupied := b.proposals[seq]
		if !occupied {
			b.proposals[seq] = entry
			return
		}
		if existing.origin == entry.origin {
			return
		}
		if entry.origin < existing.origin {
			b.proposals[seq] = entry
			entry = existing
		}
		seq++
	}
}

// PeekLowest returns the lowest buffered sequence and its origin without
// removing it.
func (b *ReorderBuffer) PeekLowest() (uint64, string, bool) {
	found := false
	var lowest uint64
	for seq := range b.proposals {
		if !found || seq < lowest {
			lowest = seq
			found = true
		}
	}
	if !found {
		return 0, "", false
	}
	return lowest, b.proposals[lowest].origin, true
}

// TakeLowest removes and returns the lowest buffered proposal if its
// sequence does not exceed maxSeq. A buffered sequence below maxSeq lost
// its original slot to another entry and is applied at the next free one.
func (b *ReorderBuffer) TakeLowest(maxSeq uint64) (string, types.Action, bool) {
	lowest, _, ok := b.PeekLowest()
	if !ok || lowest > maxSeq {
		return "", types.Action{}, false
	}
	p := b.proposals[lowest]
	delete(b.proposals, lowest)
	return p.origin, p.action, true
}

// Len returns the number of buffered proposals.
func (b *ReorderBuffer) Len() int {
	return len(b.proposals)
}

// Seqs returns the buffered sequence numbers in ascending order.
func (b *ReorderBuffer) Seqs() []uint64 {
	seqs := make([]uint64, 0, len(b.proposals))
	for seq := range b.proposals {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}

// Reset discards all buffered proposals.
func (b *ReorderBuffer) Reset() {
	b.proposals = make(map[uint64]bufferedProposal)
}
