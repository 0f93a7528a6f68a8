// Package game provides the reference deterministic game engine for
// lockstep replication: a small squad skirmish where operators deploy,
// strike, guard and recover.
//
// All rules use integer arithmetic only, so every node computes
// bit-identical state from the same action sequence. Invalid or unknown
// payloads are deterministic no-ops rather than errors, keeping nodes in
// agreement about every action's effect.
package game
