package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/lockberry/types"
)

func TestLocalValidation(t *testing.T) {
	_, err := NewLocal("", testGenesis(), countStep)
	require.ErrorIs(t, err, ErrNoNodeID)

	_, err = NewLocal("solo", testGenesis(), nil)
	require.ErrorIs(t, err, ErrNilStep)
}

func TestLocalAppliesImmediately(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)

	require.NoError(t, local.SubmitAction(context.Background(), types.NewAction("vanguard", nil)))
	require.NoError(t, local.SubmitAction(context.Background(), types.NewAction("breacher", nil)))

	require.Equal(t, uint64(2), local.State().ActionCount)
	entries := local.Log()
	require.Len(t, entries, 2)
	require.Equal(t, "solo", entries[0].OriginNode)
	require.True(t, types.HashEqual(types.SnapshotHash(local.State()), local.StateHash()))
	require.True(t, types.HashEqual(entries[1].StateHash, local.StateHash()))
}

func TestLocalDuplicateIsNoOp(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)

	action := types.NewAction("vanguard", nil)
	require.NoError(t, local.SubmitAction(context.Background(), action))
	require.NoError(t, local.SubmitAction(context.Background(), action))

	require.Len(t, local.Log(), 1)
	require.Equal(t, uint64(1), local.State().ActionCount)
}

func TestLocalRejectsInvalidAction(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)

	err = local.SubmitAction(context.Background(), types.Action{OperatorID: "vanguard"})
	require.ErrorIs(t, err, types.ErrEmptyActionID)
}

func TestLocalHonorsContext(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = local.SubmitAction(ctx, types.NewAction("vanguard", nil))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, local.Log())
}

func TestLocalNeverDesynced(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)
	require.False(t, local.Desynced())
}

func TestLocalAndLockstepAgreeOnSameInput(t *testing.T) {
	local, err := NewLocal("solo", testGenesis(), countStep)
	require.NoError(t, err)
	ls, _ := newTestLockstep(t, "node-a")

	for i := 0; i < 4; i++ {
		action := types.NewAction("vanguard", nil)
		require.NoError(t, local.SubmitAction(context.Background(), action))
		require.NoError(t, ls.SubmitAction(context.Background(), action))
	}
	require.True(t, types.HashEqual(local.StateHash(), ls.StateHash()))
}
