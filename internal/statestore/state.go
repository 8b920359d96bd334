// Package statestore defines the on-disk swarm state document, its
// canonical JSON serialization for HMAC purposes, and the append-only,
// single-writer, file-locked read/write path that every mutating
// swarmctl command funnels through.
package statestore

import (
	"encoding/json"

	"github.com/cmas-os/swarmctl/internal/registry"
)

// Evidence records the hash of a captured command's raw output.
type Evidence struct {
	SHA256 string `json:"sha256,omitempty"`
	Path   string `json:"path,omitempty"`
}

// HistoryEntry is one append-only record of a phase transition.
type HistoryEntry struct {
	Phase       registry.Phase `json:"phase"`
	At          *string        `json:"at"`
	ByRole      *string        `json:"by_role"`
	Note        string         `json:"note,omitempty"`
	LegacyPhase string         `json:"legacy_phase,omitempty"`
	Evidence    *Evidence      `json:"evidence"`
	TaskID      string         `json:"task_id,omitempty"`
}

// Integrity holds the tamper-evidence HMAC for the state document.
type Integrity struct {
	HMAC string `json:"hmac,omitempty"`
}

// State is the full contents of swarm_state.json.
type State struct {
	CurrentPhase          registry.Phase   `json:"current_phase"`
	NextPhase             registry.Phase   `json:"next_phase"`
	ExecutionLane         registry.Lane    `json:"execution_lane"`
	RequiredPhaseSequence []registry.Phase `json:"required_phase_sequence"`
	IsLocked              bool             `json:"is_locked"`
	TaskID                string           `json:"task_id,omitempty"`
	History               []HistoryEntry   `json:"history"`
	Integrity             *Integrity       `json:"integrity,omitempty"`
	StateHMAC             string           `json:"state_hmac,omitempty"`
}

// Clone returns a deep-enough copy of s for safe independent mutation
// (used by the transition engine and the lane switcher to build the next
// state without mutating the loaded one).
func (s *State) Clone() *State {
	out := *s
	out.RequiredPhaseSequence = append([]registry.Phase(nil), s.RequiredPhaseSequence...)
	out.History = append([]HistoryEntry(nil), s.History...)
	if s.Integrity != nil {
		cp := *s.Integrity
		out.Integrity = &cp
	}
	return &out
}

// Decode parses raw JSON bytes into a State.
func Decode(raw []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode renders s as JSON with two-space indentation and object keys in
// sorted order, the layout of the Python original's
// `json.dumps(state, indent=2, sort_keys=True)`; non-ASCII characters
// are written as UTF-8 rather than escaped.
func Encode(s *State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	// encoding/json writes map keys sorted but struct fields in
	// declaration order, so re-encode through generic maps.
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.MarshalIndent(generic, "", "  ")
}
