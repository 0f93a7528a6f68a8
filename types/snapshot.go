package types

import (
	"encoding/json"
	"fmt"
	"sort"
)

// OperatorSnapshot is the replicated per-operator view. All numeric fields
// are integers; floating point would make canonical serialization
// platform-sensitive.
type OperatorSnapshot struct {
	ID      string `json:"id"`
	Health  int64  `json:"health"`
	Energy  int64  `json:"energy"`
	Guarded bool   `json:"guarded"`
}

// StateSnapshot is the full replicated game state at a point in the log.
type StateSnapshot struct {
	ActionCount uint64             `json:"action_count"`
	Operators   []OperatorSnapshot `json:"operators"`
}

// Operator returns the snapshot for an operator ID, if present.
func (s StateSnapshot) Operator(id string) (OperatorSnapshot, bool) {
	for _, op := range s.Operators {
		if op.ID == id {
			return op, true
		}
	}
	return OperatorSnapshot{}, false
}

// CopySnapshot returns a deep copy of a snapshot.
func CopySnapshot(s StateSnapshot) StateSnapshot {
	cp := s
	if s.Operators != nil {
		cp.Operators = make([]OperatorSnapshot, len(s.Operators))
		copy(cp.Operators, s.Operators)
	}
	return cp
}

// Canonical returns the canonical byte form of the snapshot: operators
// sorted by ID, stable field order. Every node must produce identical
// bytes for identical logical state.
func (s StateSnapshot) Canonical() []byte {
	canonical := CopySnapshot(s)
	sort.Slice(canonical.Operators, func(i, j int) bool {
		return canonical.Operators[i].ID < canonical.Operators[j].ID
	})
	data, err := json.Marshal(canonical)
	if err != nil {
		// Snapshots contain only strings, integers and booleans;
		// marshalling cannot fail for a well-formed snapshot.
		panic(fmt.Sprintf("LOCKSTEP CRITICAL: failed to marshal snapshot: %v", err))
	}
	return data
}

// SnapshotHash computes the cross-node agreement fingerprint of a snapshot.
func SnapshotHash(s StateSnapshot) Hash {
	return HashBytes(s.Canonical())
}
