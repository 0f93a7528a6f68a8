package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/blockberries/lockberry/types"
)

// Local is the single-participant authority. It applies actions
// immediately with no network coordination, behind the same Authority
// interface as Lockstep, so single-player sessions run the exact same
// game code.
type Local struct {
	mu sync.RWMutex

	nodeID string
	step   StepFunc

	ledger *types.ActionLog
	state  types.StateSnapshot
	hash   types.Hash
	seen   map[string]struct{}
}

var _ Authority = (*Local)(nil)

// NewLocal creates a local authority at the genesis state.
func NewLocal(nodeID string, genesis types.StateSnapshot, step StepFunc) (*Local, error) {
	if nodeID == "" {
		return nil, ErrNoNodeID
	}
	if step == nil {
		return nil, ErrNilStep
	}

	g := types.CopySnapshot(genesis)
	return &Local{
		nodeID: nodeID,
		step:   step,
		ledger: types.NewActionLog(),
		state:  g,
		hash:   types.SnapshotHash(g),
		seen:   make(map[string]struct{}),
	}, nil
}

// SubmitAction validates and applies an action immediately. Resubmitting
// an already applied action ID is a no-op.
func (l *Local) SubmitAction(ctx context.Context, action types.Action) error {
	if err := action.Validate(); err != nil {
		return fmt.Errorf("invalid action: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[action.ID]; dup {
		return nil
	}

	seq := l.ledger.Len()
	l.state = l.step(l.state, types.CopyAction(action))
	l.hash = types.SnapshotHash(l.state)
	if err := l.ledger.Append(types.LogEntry{
		Seq:        seq,
		OriginNode: l.nodeID,
		Action:     action,
		StateHash:  l.hash,
	}); err != nil {
		panic(fmt.Sprintf("LOCKSTEP CRITICAL: append at computed seq failed: %v", err))
	}
	l.seen[action.ID] = struct{}{}
	return nil
}

// State returns a copy of the current state.
func (l *Local) State() types.StateSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return types.CopySnapshot(l.state)
}

// StateHash returns the hash of the current state.
func (l *Local) StateHash() types.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hash
}

// Log returns copies of all applied log entries in order.
func (l *Local) Log() []types.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledger.Entries()
}

// Desynced always reports false: with no peers there is nothing to
// diverge from.
func (l *Local) Desynced() bool {
	return false
}
