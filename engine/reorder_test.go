package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/lockberry/types"
)

func TestReorderInsertTakeLowest(t *testing.T) {
	buf := NewReorderBuffer()
	action := types.NewAction("vanguard", nil)

	buf.Insert(4, "node-b", action)
	require.Equal(t, 1, buf.Len())

	// A proposal ahead of the allowed slot stays buffered.
	_, _, ok := buf.TakeLowest(3)
	require.False(t, ok)

	origin, got, ok := buf.TakeLowest(4)
	require.True(t, ok)
	require.Equal(t, "node-b", origin)
	require.Equal(t, action.ID, got.ID)
	require.Zero(t, buf.Len())
}

func TestReorderTakeLowestAcceptsDisplacedSlots(t *testing.T) {
	buf := NewReorderBuffer()
	action := types.NewAction("vanguard", nil)
	buf.Insert(2, "node-b", action)

	// The slot was filled by other entries in the meantime; the proposal
	// applies at the next free sequence instead.
	origin, got, ok := buf.TakeLowest(7)
	require.True(t, ok)
	require.Equal(t, "node-b", origin)
	require.Equal(t, action.ID, got.ID)
}

func TestReorderCollisionDisplacesHigherOrigin(t *testing.T) {
	fromB := types.NewAction("vanguard", nil)
	fromC := types.NewAction("breacher", nil)

	for _, order := range [][]struct {
		origin string
		action types.Action
	}{
		{{"node-b", fromB}, {"node-c", fromC}},
		{{"node-c", fromC}, {"node-b", fromB}},
	} {
		buf := NewReorderBuffer()
		for _, p := range order {
			buf.Insert(0, p.origin, p.action)
		}

		// Same settlement regardless of arrival order: the lowest origin
		// holds slot 0, the loser moves to slot 1.
		require.Equal(t, []uint64{0, 1}, buf.Seqs())

		origin, got, ok := buf.TakeLowest(0)
		require.True(t, ok)
		require.Equal(t, "node-b", origin)
		require.Equal(t, fromB.ID, got.ID)

		origin, got, ok = buf.TakeLowest(1)
		require.True(t, ok)
		require.Equal(t, "node-c", origin)
		require.Equal(t, fromC.ID, got.ID)
	}
}

func TestReorderCollisionCascades(t *testing.T) {
	buf := NewReorderBuffer()
	buf.Insert(0, "node-c", types.NewAction("one", nil))
	buf.Insert(1, "node-d", types.NewAction("two", nil))
	buf.Insert(0, "node-b", types.NewAction("three", nil))

	require.Equal(t, []uint64{0, 1, 2}, buf.Seqs())
	origin, _, _ := buf.TakeLowest(0)
	require.Equal(t, "node-b", origin)
	origin, _, _ = buf.TakeLowest(1)
	require.Equal(t, "node-c", origin)
	origin, _, _ = buf.TakeLowest(2)
	require.Equal(t, "node-d", origin)
}

func TestReorderRetransmissionIsDropped(t *testing.T) {
	buf := NewReorderBuffer()
	action := types.NewAction("vanguard", nil)
	buf.Insert(0, "node-b", action)
	buf.Insert(0, "node-b", action)
	require.Equal(t, 1, buf.Len())
}

func TestReorderPeekLowest(t *testing.T) {
	buf := NewReorderBuffer()
	_, _, ok := buf.PeekLowest()
	require.False(t, ok)

	buf.Insert(9, "node-d", types.NewAction("vanguard", nil))
	buf.Insert(2, "node-b", types.NewAction("vanguard", nil))

	seq, origin, ok := buf.PeekLowest()
	require.True(t, ok)
	require.Equal(t, uint64(2), seq)
	require.Equal(t, "node-b", origin)
	require.Equal(t, 2, buf.Len())
}

func TestReorderReset(t *testing.T) {
	buf := NewReorderBuffer()
	buf.Insert(1, "node-b", types.NewAction("vanguard", nil))
	buf.Reset()
	require.Zero(t, buf.Len())
}

func TestReorderCopiesPayload(t *testing.T) {
	buf := NewReorderBuffer()
	action := types.NewAction("vanguard", []byte(`{"k":1}`))
	buf.Insert(0, "node-b", action)

	action.Payload[0] = 'X'
	_, got, ok := buf.TakeLowest(0)
	require.True(t, ok)
	require.Equal(t, byte('{'), got.Payload[0])
}
