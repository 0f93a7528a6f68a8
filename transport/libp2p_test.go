package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/lockberry/types"
	"github.com/blockberries/lockberry/wire"
)

func newTestP2P(t *testing.T, bootstrap ...string) *P2P {
	t.Helper()
	p, err := NewP2P(context.Background(), &P2PConfig{
		ListenAddr:     "/ip4/127.0.0.1/tcp/0",
		BootstrapAddrs: bootstrap,
	})
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestP2PRejectsBadListenAddr(t *testing.T) {
	_, err := NewP2P(context.Background(), &P2PConfig{ListenAddr: "not-a-multiaddr"})
	require.Error(t, err)
}

func TestP2PAddrsIncludePeerID(t *testing.T) {
	p := newTestP2P(t)
	addrs := p.Addrs()
	require.NotEmpty(t, addrs)
	require.Contains(t, addrs[0], "/p2p/"+p.NodeID())
}

func TestP2PBootstrapConnectAndExchange(t *testing.T) {
	pa := newTestP2P(t)
	ea := &recordingEvents{}
	pa.SetEvents(ea)

	pb := newTestP2P(t, pa.Addrs()...)
	eb := &recordingEvents{}
	pb.SetEvents(eb)

	require.Eventually(t, func() bool {
		return len(pa.Peers()) == 1 && len(pb.Peers()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(ea.connectedPeers()) == 1 && len(eb.connectedPeers()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	action := types.NewAction("vanguard", []byte(`{"type":"guard"}`))
	pb.BroadcastProposal(&wire.ActionProposal{SenderID: pb.NodeID(), Seq: 0, Action: action})

	require.Eventually(t, func() bool { return ea.proposalCount() == 1 },
		5*time.Second, 20*time.Millisecond)

	ea.mu.Lock()
	got := ea.proposals[0]
	from := ea.proposalPeers[0]
	ea.mu.Unlock()
	require.Equal(t, action.ID, got.Action.ID)
	require.Equal(t, pb.NodeID(), from)

	pa.SendAck(from, &wire.ActionAck{SenderID: pa.NodeID(), ActionID: action.ID, Seq: 0})
	require.Eventually(t, func() bool {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		return len(eb.acks) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
