package types

import (
	"errors"
	"fmt"
)

// Log errors
var (
	ErrSequenceGap = errors.New("log entry sequence gap")
)

// LogEntry records one applied action: the sequence it was applied at, the
// node that originated it, the action itself, and the state hash after
// apply. Invariant: entries[i].Seq == i.
type LogEntry struct {
	Seq        uint64 `json:"seq"`
	OriginNode string `json:"origin_node"`
	Action     Action `json:"action"`
	StateHash  Hash   `json:"state_hash"`
}

// CopyEntry returns a deep copy of a log entry.
func CopyEntry(e LogEntry) LogEntry {
	cp := e
	cp.Action = CopyAction(e.Action)
	return cp
}

// ActionLog is the append-only, sequence-numbered ledger of applied
// actions. It lives in memory for the process lifetime and is rebuilt from
// a peer only during full-replay recovery.
//
// ActionLog is not internally synchronized: it is owned by one authority
// and all access goes through the authority's lock.
type ActionLog struct {
	entries []LogEntry
}

// NewActionLog creates an empty log.
func NewActionLog() *ActionLog {
	return &ActionLog{}
}

// Len returns the number of entries, which is also the next sequence
// number to be appended.
func (l *ActionLog) Len() uint64 {
	return uint64(len(l.entries))
}

// Append adds an entry at the next sequence number. Appending out of order
// is a protocol violation and returns ErrSequenceGap.
func (l *ActionLog) Append(e LogEntry) error {
	if e.Seq != l.Len() {
		return fmt.Errorf("%w: got %d, want %d", ErrSequenceGap, e.Seq, l.Len())
	}
	l.entries = append(l.entries, CopyEntry(e))
	return nil
}

// Entry returns a copy of the entry at seq, if it exists.
func (l *ActionLog) Entry(seq uint64) (LogEntry, bool) {
	if seq >= l.Len() {
		return LogEntry{}, false
	}
	return CopyEntry(l.entries[seq]), true
}

// LastHash returns the state hash of the newest entry, if any.
func (l *ActionLog) LastHash() (Hash, bool) {
	if len(l.entries) == 0 {
		return Hash{}, false
	}
	return l.entries[len(l.entries)-1].StateHash, true
}

// Entries returns defensive copies of all entries in order. Callers never
// observe future mutation of the log.
func (l *ActionLog) Entries() []LogEntry {
	return l.EntriesFrom(0)
}

// EntriesFrom returns defensive copies of all entries from seq onward.
func (l *ActionLog) EntriesFrom(seq uint64) []LogEntry {
	if seq >= l.Len() {
		return nil
	}
	out := make([]LogEntry, 0, l.Len()-seq)
	for _, e := range l.entries[seq:] {
		out = append(out, CopyEntry(e))
	}
	return out
}

// Reset discards all entries. Used only when a full replay rebuilds the
// log from a peer.
func (l *ActionLog) Reset() {
	l.entries = nil
}
