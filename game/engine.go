package game

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/lockberry/types"
)

// Combat tuning constants. Integers only.
const (
	DeployHealth  = 100
	DeployEnergy  = 50
	MaxEnergy     = 100
	StrikeDamage  = 15
	StrikeCost    = 10
	GuardCost     = 5
	RecoverAmount = 20
)

// Command payload types.
const (
	CommandDeploy  = "deploy"
	CommandStrike  = "strike"
	CommandGuard   = "guard"
	CommandRecover = "recover"
)

// command is the decoded action payload.
type command struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
}

// Step is the deterministic state transition. It satisfies
// engine.StepFunc. The action count advances for every action, including
// no-ops, so the state hash always reflects how much input was consumed.
func Step(s types.StateSnapshot, a types.Action) types.StateSnapshot {
	next := types.CopySnapshot(s)
	next.ActionCount++

	var cmd command
	if err := json.Unmarshal(a.Payload, &cmd); err != nil {
		return next
	}

	switch cmd.Type {
	case CommandDeploy:
		applyDeploy(&next, a.OperatorID)
	case CommandStrike:
		applyStrike(&next, a.OperatorID, cmd.Target)
	case CommandGuard:
		applyGuard(&next, a.OperatorID)
	case CommandRecover:
		applyRecover(&next, a.OperatorID)
	}
	return next
}

func applyDeploy(s *types.StateSnapshot, operatorID string) {
	if _, ok := s.Operator(operatorID); ok {
		return
	}
	s.Operators = append(s.Operators, types.OperatorSnapshot{
		ID:     operatorID,
		Health: DeployHealth,
		Energy: DeployEnergy,
	})
}

func applyStrike(s *types.StateSnapshot, operatorID, targetID string) {
	actor := findOperator(s, operatorID)
	target := findOperator(s, targetID)
	if actor == nil || target == nil || operatorID == targetID {
		return
	}
	if actor.Health <= 0 || actor.Energy < StrikeCost {
		return
	}
	actor.Energy -= StrikeCost

	damage := int64(StrikeDamage)
	if target.Guarded {
		damage /= 2
		target.Guarded = false
	}
	target.Health -= damage
	if target.Health < 0 {
		target.Health = 0
	}
}

func applyGuard(s *types.StateSnapshot, operatorID string) {
	actor := findOperator(s, operatorID)
	if actor == nil || actor.Health <= 0 || actor.Guarded || actor.Energy < GuardCost {
		return
	}
	actor.Energy -= GuardCost
	actor.Guarded = true
}

func applyRecover(s *types.StateSnapshot, operatorID string) {
	actor := findOperator(s, operatorID)
	if actor == nil || actor.Health <= 0 {
		return
	}
	actor.Energy += RecoverAmount
	if actor.Energy > MaxEnergy {
		actor.Energy = MaxEnergy
	}
}

func findOperator(s *types.StateSnapshot, id string) *types.OperatorSnapshot {
	for i := range s.Operators {
		if s.Operators[i].ID == id {
			return &s.Operators[i]
		}
	}
	return nil
}

// DeployPayload builds the payload deploying the acting operator.
func DeployPayload() []byte {
	return marshalCommand(command{Type: CommandDeploy})
}

// StrikePayload builds the payload striking targetID.
func StrikePayload(targetID string) []byte {
	return marshalCommand(command{Type: CommandStrike, Target: targetID})
}

// GuardPayload builds the payload raising the actor's guard.
func GuardPayload() []byte {
	return marshalCommand(command{Type: CommandGuard})
}

// RecoverPayload builds the payload restoring the actor's energy.
func RecoverPayload() []byte {
	return marshalCommand(command{Type: CommandRecover})
}

func marshalCommand(cmd command) []byte {
	data, err := json.Marshal(cmd)
	if err != nil {
		// Commands contain only strings; marshalling cannot fail.
		panic(fmt.Sprintf("LOCKSTEP CRITICAL: failed to marshal command: %v", err))
	}
	return data
}
