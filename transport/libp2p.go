package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/blockberries/lockberry/engine"
	"github.com/blockberries/lockberry/wire"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamReadTimeout  = 10 * time.Second
	dialTimeout        = 10 * time.Second
)

// P2PConfig configures a libp2p transport.
type P2PConfig struct {
	// ListenAddr is the multiaddr to listen on, for example
	// /ip4/0.0.0.0/tcp/9000.
	ListenAddr string

	// BootstrapAddrs are full peer multiaddrs (including /p2p/<id>) to
	// connect to at startup.
	BootstrapAddrs []string
}

// P2P carries lockstep messages over libp2p streams. Every message is a
// single short-lived stream: the sender writes one frame and closes its
// write side, the receiver reads to EOF.
type P2P struct {
	host   host.Host
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	events engine.Events
}

var _ engine.Transport = (*P2P)(nil)

// NewP2P creates a libp2p host, registers the lockstep protocol handler
// and starts connecting to the bootstrap peers in the background.
func NewP2P(ctx context.Context, cfg *P2PConfig) (*P2P, error) {
	listenAddr, err := ma.NewMultiaddr(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address: %w", err)
	}

	h, err := libp2p.New(libp2p.ListenAddrs(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &P2P{host: h, ctx: ctx, cancel: cancel}

	h.SetStreamHandler(protocol.ID(wire.ProtocolID), p.handleStream)
	h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(n network.Network, conn network.Conn) {
			// Only the first connection to a peer counts.
			if len(n.ConnsToPeer(conn.RemotePeer())) != 1 {
				return
			}
			go p.fire(func(ev engine.Events) {
				ev.OnPeerConnected(conn.RemotePeer().String())
			})
		},
		DisconnectedF: func(n network.Network, conn network.Conn) {
			if len(n.ConnsToPeer(conn.RemotePeer())) != 0 {
				return
			}
			go p.fire(func(ev engine.Events) {
				ev.OnPeerDisconnected(conn.RemotePeer().String())
			})
		},
	})

	for _, addrStr := range cfg.BootstrapAddrs {
		if addrStr == "" {
			continue
		}
		addr, err := ma.NewMultiaddr(addrStr)
		if err != nil {
			log.Printf("[WARN] p2p: invalid bootstrap addr %s: %v", addrStr, err)
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Printf("[WARN] p2p: invalid bootstrap peer info %s: %v", addrStr, err)
			continue
		}
		if info.ID == h.ID() {
			continue
		}
		go func(pi peer.AddrInfo) {
			dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
			defer dialCancel()
			if err := h.Connect(dialCtx, pi); err != nil {
				log.Printf("[WARN] p2p: failed to connect to bootstrap peer %s: %v", pi.ID, err)
				return
			}
			log.Printf("[INFO] p2p: connected to bootstrap peer %s", pi.ID)
		}(*info)
	}

	log.Printf("[INFO] p2p: host %s listening on %v", h.ID(), h.Addrs())
	return p, nil
}

// SetEvents registers the inbound event sink. Must be called before
// peers connect.
func (p *P2P) SetEvents(ev engine.Events) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = ev
}

// NodeID returns the host's peer ID string. Use it as the lockstep
// node ID so wire sender IDs and transport peer IDs agree.
func (p *P2P) NodeID() string {
	return p.host.ID().String()
}

// Addrs returns the host's full listen multiaddrs, suitable for other
// nodes' bootstrap lists.
func (p *P2P) Addrs() []string {
	hostAddr, err := ma.NewMultiaddr("/p2p/" + p.host.ID().String())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(p.host.Addrs()))
	for _, addr := range p.host.Addrs() {
		out = append(out, addr.Encapsulate(hostAddr).String())
	}
	return out
}

// Peers returns the IDs of all connected peers, sorted.
func (p *P2P) Peers() []string {
	ids := p.host.Network().Peers()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

// Close shuts down the host and stops event delivery.
func (p *P2P) Close() error {
	p.cancel()
	return p.host.Close()
}

// BroadcastProposal sends a proposal to every connected peer.
func (p *P2P) BroadcastProposal(msg *wire.ActionProposal) {
	p.broadcast(msg)
}

// SendAck sends an ack to one peer.
func (p *P2P) SendAck(peerID string, msg *wire.ActionAck) {
	p.sendTo(peerID, msg)
}

// BroadcastHash sends a hash broadcast to every connected peer.
func (p *P2P) BroadcastHash(msg *wire.HashBroadcast) {
	p.broadcast(msg)
}

// SendSyncRequest sends a sync request to one peer.
func (p *P2P) SendSyncRequest(peerID string, msg *wire.SyncRequest) {
	p.sendTo(peerID, msg)
}

// SendSyncResponse sends a sync response to one peer.
func (p *P2P) SendSyncResponse(peerID string, msg *wire.SyncResponse) {
	p.sendTo(peerID, msg)
}

func (p *P2P) broadcast(msg any) {
	for _, id := range p.host.Network().Peers() {
		go p.send(id, msg)
	}
}

func (p *P2P) sendTo(peerID string, msg any) {
	id, err := peer.Decode(peerID)
	if err != nil {
		log.Printf("[WARN] p2p: invalid peer id %s: %v", peerID, err)
		return
	}
	go p.send(id, msg)
}

func (p *P2P) send(id peer.ID, msg any) {
	framed, err := wire.Encode(msg)
	if err != nil {
		log.Printf("[ERROR] p2p: failed to encode %T: %v", msg, err)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, dialTimeout)
	defer cancel()

	stream, err := p.host.NewStream(ctx, id, protocol.ID(wire.ProtocolID))
	if err != nil {
		log.Printf("[WARN] p2p: failed to open stream to %s: %v", id, err)
		return
	}
	defer stream.Close()

	stream.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if _, err := stream.Write(framed); err != nil {
		log.Printf("[WARN] p2p: failed to write to %s: %v", id, err)
		return
	}
	stream.CloseWrite()
}

func (p *P2P) handleStream(stream network.Stream) {
	defer stream.Close()
	remote := stream.Conn().RemotePeer().String()

	stream.SetReadDeadline(time.Now().Add(streamReadTimeout))
	framed, err := io.ReadAll(io.LimitReader(stream, wire.MaxMessageBytes+1))
	if err != nil {
		log.Printf("[WARN] p2p: failed to read from %s: %v", remote, err)
		return
	}

	msg, err := wire.Decode(framed)
	if err != nil {
		log.Printf("[WARN] p2p: invalid message from %s: %v", remote, err)
		return
	}

	p.fire(func(ev engine.Events) {
		switch m := msg.(type) {
		case *wire.ActionProposal:
			ev.OnActionProposal(remote, m)
		case *wire.ActionAck:
			ev.OnActionAck(remote, m)
		case *wire.HashBroadcast:
			ev.OnHashBroadcast(remote, m)
		case *wire.SyncRequest:
			ev.OnSyncRequest(remote, m)
		case *wire.SyncResponse:
			ev.OnSyncResponse(remote, m)
		}
	})
}

func (p *P2P) fire(fn func(engine.Events)) {
	p.mu.RLock()
	ev := p.events
	p.mu.RUnlock()
	if ev == nil {
		return
	}
	fn(ev)
}
