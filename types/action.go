package types

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Action errors
var (
	ErrEmptyActionID  = errors.New("action has no id")
	ErrEmptyOperator  = errors.New("action has no operator id")
	ErrActionTooLarge = errors.New("action payload too large")
)

// MaxPayloadBytes bounds the opaque action payload accepted from peers.
const MaxPayloadBytes = 4096

// Action is one atomic unit of player input. Immutable once created.
// The payload is opaque to the lockstep layer; only the deterministic
// game engine interprets it.
type Action struct {
	ID         string          `json:"id"`
	OperatorID string          `json:"operator_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewAction creates an action with a fresh globally unique ID.
func NewAction(operatorID string, payload []byte) Action {
	return Action{
		ID:         uuid.NewString(),
		OperatorID: operatorID,
		Payload:    append(json.RawMessage(nil), payload...),
	}
}

// Validate performs basic validation of an action received from the
// local caller or the network.
func (a Action) Validate() error {
	if a.ID == "" {
		return ErrEmptyActionID
	}
	if a.OperatorID == "" {
		return ErrEmptyOperator
	}
	if len(a.Payload) > MaxPayloadBytes {
		return ErrActionTooLarge
	}
	return nil
}

// CopyAction returns a deep copy so callers cannot mutate shared payload
// bytes after the action entered the log.
func CopyAction(a Action) Action {
	cp := a
	if a.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), a.Payload...)
	}
	return cp
}
