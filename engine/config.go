package engine

import (
	"fmt"
	"time"

	"github.com/blockberries/lockberry/types"
)

// Config holds the lockstep authority configuration.
type Config struct {
	// NodeID identifies this node to its peers. Must be unique within
	// the session; transports typically derive it from the host identity.
	NodeID string

	// Genesis is the shared initial state every participant starts from.
	Genesis types.StateSnapshot

	// RebroadcastInterval controls how often proposals still awaiting
	// acknowledgments are re-sent. Zero disables rebroadcasting.
	RebroadcastInterval time.Duration
}

// DefaultConfig returns a config with sensible defaults for the given
// node ID and genesis state.
func DefaultConfig(nodeID string, genesis types.StateSnapshot) *Config {
	return &Config{
		NodeID:              nodeID,
		Genesis:             genesis,
		RebroadcastInterval: 2 * time.Second,
	}
}

// ValidateBasic performs basic validation of the config.
func (c *Config) ValidateBasic() error {
	if c.NodeID == "" {
		return ErrNoNodeID
	}
	if c.RebroadcastInterval < 0 {
		return fmt.Errorf("negative rebroadcast interval: %v", c.RebroadcastInterval)
	}
	return nil
}
