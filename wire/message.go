package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockberries/lockberry/types"
)

// ProtocolID is the versioned wire protocol identifier, used by transports
// to select this protocol's decoder.
const ProtocolID = "/lockstep/1.0.0"

// MaxMessageBytes bounds a single decoded wire message.
const MaxMessageBytes = 1 << 20

// Wire errors
var (
	ErrInvalidMessage     = errors.New("invalid lockstep message")
	ErrUnknownMessageType = errors.New("unknown lockstep message type")
)

// MessageType identifies the type of a framed lockstep message.
type MessageType uint8

const (
	// MessageTypeUnknown is the zero value and never appears on the wire.
	MessageTypeUnknown MessageType = iota
	// MessageTypeActionProposal identifies an ActionProposal.
	MessageTypeActionProposal
	// MessageTypeActionAck identifies an ActionAck.
	MessageTypeActionAck
	// MessageTypeHashBroadcast identifies a HashBroadcast.
	MessageTypeHashBroadcast
	// MessageTypeSyncRequest identifies a SyncRequest.
	MessageTypeSyncRequest
	// MessageTypeSyncResponse identifies a SyncResponse.
	MessageTypeSyncResponse
)

// ActionProposal announces a local action at the sender's proposed
// sequence number.
type ActionProposal struct {
	SenderID string       `json:"sender_id"`
	Seq      uint64       `json:"seq"`
	Action   types.Action `json:"action"`
}

// ActionAck acknowledges receipt of an action proposal.
type ActionAck struct {
	SenderID string `json:"sender_id"`
	ActionID string `json:"action_id"`
	Seq      uint64 `json:"seq"`
}

// HashBroadcast announces the state hash after applying the entry at Seq.
type HashBroadcast struct {
	SenderID  string     `json:"sender_id"`
	Seq       uint64     `json:"seq"`
	StateHash types.Hash `json:"state_hash"`
}

// SyncRequest states the requester's log position: FromSeq is its log
// length, LatestHash the hash of its newest entry (the genesis hash when
// the log is empty).
type SyncRequest struct {
	SenderID   string     `json:"sender_id"`
	FromSeq    uint64     `json:"from_seq"`
	LatestHash types.Hash `json:"latest_hash"`
}

// SyncResponse carries replayable log entries. When FullReplay is set the
// receiver discards its local log and state before replaying.
type SyncResponse struct {
	SenderID   string           `json:"sender_id"`
	Entries    []types.LogEntry `json:"entries"`
	FullReplay bool             `json:"full_replay"`
}

// Encode frames a message with its type prefix for network transmission.
func Encode(msg any) ([]byte, error) {
	var mt MessageType
	switch msg.(type) {
	case *ActionProposal:
		mt = MessageTypeActionProposal
	case *ActionAck:
		mt = MessageTypeActionAck
	case *HashBroadcast:
		mt = MessageTypeHashBroadcast
	case *SyncRequest:
		mt = MessageTypeSyncRequest
	case *SyncResponse:
		mt = MessageTypeSyncResponse
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, msg)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}

	framed := make([]byte, 1+len(payload))
	framed[0] = byte(mt)
	copy(framed[1:], payload)
	return framed, nil
}

// Decode parses a framed message and returns the typed pointer for the
// caller to switch on.
func Decode(data []byte) (any, error) {
	if len(data) < 1 {
		return nil, ErrInvalidMessage
	}
	if len(data) > MaxMessageBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMessage, len(data))
	}

	payload := data[1:]
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidMessage)
	}

	var msg any
	switch MessageType(data[0]) {
	case MessageTypeActionProposal:
		msg = &ActionProposal{}
	case MessageTypeActionAck:
		msg = &ActionAck{}
	case MessageTypeHashBroadcast:
		msg = &HashBroadcast{}
	case MessageTypeSyncRequest:
		msg = &SyncRequest{}
	case MessageTypeSyncResponse:
		msg = &SyncResponse{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, data[0])
	}

	if err := json.Unmarshal(payload, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}
