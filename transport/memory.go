package transport

import (
	"sort"
	"sync"

	"github.com/blockberries/lockberry/engine"
	"github.com/blockberries/lockberry/wire"
)

// Mesh is an in-process network of memory transports. Tests and local
// simulations join nodes, wire connections explicitly, and sever them to
// exercise disconnect and recovery paths.
type Mesh struct {
	mu    sync.RWMutex
	nodes map[string]*MemoryTransport
	links map[string]map[string]bool
}

// NewMesh creates an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{
		nodes: make(map[string]*MemoryTransport),
		links: make(map[string]map[string]bool),
	}
}

// Join adds a node to the mesh and returns its transport. Joining does
// not connect the node to anyone; use Connect.
func (m *Mesh) Join(nodeID string) *MemoryTransport {
	m.mu.Lock()
	defer m.mu.Unlock()

	tr := &MemoryTransport{mesh: m, nodeID: nodeID}
	m.nodes[nodeID] = tr
	m.links[nodeID] = make(map[string]bool)
	return tr
}

// Connect links two nodes bidirectionally and fires both connected
// events, which triggers the sync handshake.
func (m *Mesh) Connect(a, b string) {
	m.mu.Lock()
	if a == b || m.links[a] == nil || m.links[b] == nil || m.links[a][b] {
		m.mu.Unlock()
		return
	}
	m.links[a][b] = true
	m.links[b][a] = true
	ta, tb := m.nodes[a], m.nodes[b]
	m.mu.Unlock()

	ta.deliver(func(ev engine.Events) { ev.OnPeerConnected(b) })
	tb.deliver(func(ev engine.Events) { ev.OnPeerConnected(a) })
}

// Disconnect severs the link between two nodes and fires both
// disconnected events.
func (m *Mesh) Disconnect(a, b string) {
	m.mu.Lock()
	if m.links[a] == nil || !m.links[a][b] {
		m.mu.Unlock()
		return
	}
	delete(m.links[a], b)
	delete(m.links[b], a)
	ta, tb := m.nodes[a], m.nodes[b]
	m.mu.Unlock()

	ta.deliver(func(ev engine.Events) { ev.OnPeerDisconnected(b) })
	tb.deliver(func(ev engine.Events) { ev.OnPeerDisconnected(a) })
}

// Leave severs all of a node's links and removes it from the mesh.
func (m *Mesh) Leave(nodeID string) {
	m.mu.Lock()
	peers := make([]string, 0, len(m.links[nodeID]))
	for peer := range m.links[nodeID] {
		peers = append(peers, peer)
	}
	m.mu.Unlock()

	for _, peer := range peers {
		m.Disconnect(nodeID, peer)
	}

	m.mu.Lock()
	delete(m.nodes, nodeID)
	delete(m.links, nodeID)
	m.mu.Unlock()
}

func (m *Mesh) peersOf(nodeID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := make([]string, 0, len(m.links[nodeID]))
	for peer := range m.links[nodeID] {
		peers = append(peers, peer)
	}
	sort.Strings(peers)
	return peers
}

func (m *Mesh) transportOf(nodeID string) *MemoryTransport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[nodeID]
}

func (m *Mesh) linked(a, b string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.links[a] != nil && m.links[a][b]
}

// MemoryTransport is one node's endpoint in a Mesh.
type MemoryTransport struct {
	mesh   *Mesh
	nodeID string

	mu     sync.RWMutex
	events engine.Events
	wg     sync.WaitGroup
}

var _ engine.Transport = (*MemoryTransport)(nil)

// SetEvents registers the inbound event sink. Must be called before the
// node is connected to anyone.
func (t *MemoryTransport) SetEvents(ev engine.Events) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = ev
}

// NodeID returns this endpoint's node ID.
func (t *MemoryTransport) NodeID() string {
	return t.nodeID
}

// Peers returns the IDs of all currently linked nodes, sorted.
func (t *MemoryTransport) Peers() []string {
	return t.mesh.peersOf(t.nodeID)
}

// BroadcastProposal delivers a proposal to every linked node.
func (t *MemoryTransport) BroadcastProposal(msg *wire.ActionProposal) {
	for _, peer := range t.Peers() {
		t.sendTo(peer, func(ev engine.Events) { ev.OnActionProposal(t.nodeID, msg) })
	}
}

// SendAck delivers an ack to one linked node.
func (t *MemoryTransport) SendAck(peerID string, msg *wire.ActionAck) {
	t.sendTo(peerID, func(ev engine.Events) { ev.OnActionAck(t.nodeID, msg) })
}

// BroadcastHash delivers a hash broadcast to every linked node.
func (t *MemoryTransport) BroadcastHash(msg *wire.HashBroadcast) {
	for _, peer := range t.Peers() {
		t.sendTo(peer, func(ev engine.Events) { ev.OnHashBroadcast(t.nodeID, msg) })
	}
}

// SendSyncRequest delivers a sync request to one linked node.
func (t *MemoryTransport) SendSyncRequest(peerID string, msg *wire.SyncRequest) {
	t.sendTo(peerID, func(ev engine.Events) { ev.OnSyncRequest(t.nodeID, msg) })
}

// SendSyncResponse delivers a sync response to one linked node.
func (t *MemoryTransport) SendSyncResponse(peerID string, msg *wire.SyncResponse) {
	t.sendTo(peerID, func(ev engine.Events) { ev.OnSyncResponse(t.nodeID, msg) })
}

// Wait blocks until all in-flight deliveries have landed. Test helper.
func (t *MemoryTransport) Wait() {
	t.wg.Wait()
}

// sendTo delivers to a linked peer's event sink on a fresh goroutine,
// mirroring real network decoupling so senders never run receiver code
// under their own locks.
func (t *MemoryTransport) sendTo(peerID string, fn func(engine.Events)) {
	if !t.mesh.linked(t.nodeID, peerID) {
		return
	}
	peer := t.mesh.transportOf(peerID)
	if peer == nil {
		return
	}
	peer.deliver(fn)
}

func (t *MemoryTransport) deliver(fn func(engine.Events)) {
	t.mu.RLock()
	ev := t.events
	t.mu.RUnlock()
	if ev == nil {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(ev)
	}()
}
