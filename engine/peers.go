package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/blockberries/lockberry/types"
)

// PeerPosition is the last log position a peer announced through its hash
// broadcasts.
type PeerPosition struct {
	PeerID    string
	LogLen    uint64
	StateHash types.Hash
	UpdatedAt time.Time
}

// PeerSet tracks the announced positions of connected peers for status
// reporting and sync decisions.
type PeerSet struct {
	mu        sync.RWMutex
	positions map[string]PeerPosition
}

// NewPeerSet creates an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{positions: make(map[string]PeerPosition)}
}

// SetPosition records a peer's announced log length and newest hash.
func (s *PeerSet) SetPosition(peerID string, logLen uint64, hash types.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[peerID] = PeerPosition{
		PeerID:    peerID,
		LogLen:    logLen,
		StateHash: hash,
		UpdatedAt: time.Now(),
	}
}

// Remove forgets a disconnected peer.
func (s *PeerSet) Remove(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, peerID)
}

// Get returns a peer's last announced position, if known.
func (s *PeerSet) Get(peerID string) (PeerPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[peerID]
	return p, ok
}

// All returns all known positions sorted by peer ID.
func (s *PeerSet) All() []PeerPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PeerPosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeerID < out[j].PeerID })
	return out
}

// Len returns the number of peers with a known position.
func (s *PeerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
