// Package transport carries lockstep wire messages between nodes.
//
// Two implementations are provided. Mesh is an in-process network of
// connected transports for tests and local simulation, with explicit
// connect and disconnect control. P2P runs the protocol over libp2p
// streams between real hosts.
//
// Both deliver inbound messages and connection changes to an
// engine.Events sink registered with SetEvents. Outbound sends are
// fire-and-forget, matching the engine's loss-tolerant protocol.
package transport
