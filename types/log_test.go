package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTestEntry(seq uint64, origin string) LogEntry {
	action := NewAction("vanguard", []byte(`{"type":"guard"}`))
	return LogEntry{
		Seq:        seq,
		OriginNode: origin,
		Action:     action,
		StateHash:  HashBytes([]byte{byte(seq)}),
	}
}

func TestActionLogAppendInOrder(t *testing.T) {
	l := NewActionLog()
	require.Equal(t, uint64(0), l.Len())

	require.NoError(t, l.Append(makeTestEntry(0, "node-a")))
	require.NoError(t, l.Append(makeTestEntry(1, "node-b")))
	require.Equal(t, uint64(2), l.Len())

	e, ok := l.Entry(1)
	require.True(t, ok)
	require.Equal(t, "node-b", e.OriginNode)

	_, ok = l.Entry(2)
	require.False(t, ok)
}

func TestActionLogRejectsGaps(t *testing.T) {
	l := NewActionLog()
	err := l.Append(makeTestEntry(1, "node-a"))
	require.ErrorIs(t, err, ErrSequenceGap)

	require.NoError(t, l.Append(makeTestEntry(0, "node-a")))
	err = l.Append(makeTestEntry(0, "node-a"))
	require.ErrorIs(t, err, ErrSequenceGap)
}

func TestActionLogEntriesAreCopies(t *testing.T) {
	l := NewActionLog()
	require.NoError(t, l.Append(makeTestEntry(0, "node-a")))

	got := l.Entries()
	got[0].OriginNode = "tampered"
	got[0].Action.Payload[0] = 'X'

	e, ok := l.Entry(0)
	require.True(t, ok)
	require.Equal(t, "node-a", e.OriginNode)
	require.Equal(t, byte('{'), e.Action.Payload[0])
}

func TestActionLogEntriesFrom(t *testing.T) {
	l := NewActionLog()
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, l.Append(makeTestEntry(i, "node-a")))
	}

	tail := l.EntriesFrom(3)
	require.Len(t, tail, 2)
	require.Equal(t, uint64(3), tail[0].Seq)

	require.Nil(t, l.EntriesFrom(5))
	require.Len(t, l.EntriesFrom(0), 5)
}

func TestActionLogLastHash(t *testing.T) {
	l := NewActionLog()
	_, ok := l.LastHash()
	require.False(t, ok)

	e := makeTestEntry(0, "node-a")
	require.NoError(t, l.Append(e))

	h, ok := l.LastHash()
	require.True(t, ok)
	require.Equal(t, e.StateHash, h)
}

func TestActionLogReset(t *testing.T) {
	l := NewActionLog()
	require.NoError(t, l.Append(makeTestEntry(0, "node-a")))
	l.Reset()

	require.Equal(t, uint64(0), l.Len())
	require.NoError(t, l.Append(makeTestEntry(0, "node-b")))
}
