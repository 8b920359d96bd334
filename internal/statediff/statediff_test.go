package statediff

import (
	"testing"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func role(r string) *string { return &r }
func ts(s string) *string   { return &s }

func baseAndHead() (*statestore.State, *statestore.State) {
	base := &statestore.State{
		CurrentPhase:          registry.PhaseInit,
		NextPhase:             registry.PhaseArchitect,
		ExecutionLane:         registry.LaneFull,
		RequiredPhaseSequence: registry.RequiredSequenceForLane(registry.LaneFull),
		History:               []statestore.HistoryEntry{},
	}
	head := base.Clone()
	head.CurrentPhase = registry.PhaseArchitect
	head.NextPhase = registry.PhaseQAContract
	head.History = append(head.History, statestore.HistoryEntry{
		Phase: registry.PhaseArchitect, ByRole: role("architect"), At: ts("2026-01-01T00:00:00Z"),
	})
	return base, head
}

func TestValidate_LegalTransition(t *testing.T) {
	base, head := baseAndHead()
	assert.NoError(t, Validate(base, head))
}

func TestValidate_CurrentMismatch(t *testing.T) {
	base, head := baseAndHead()
	head.CurrentPhase = registry.PhaseBackend
	require.Error(t, Validate(base, head))
}

func TestValidate_DisallowedTransition(t *testing.T) {
	base, head := baseAndHead()
	head.NextPhase = registry.PhaseComplete
	require.Error(t, Validate(base, head))
}

func TestValidate_RequiredSequenceChanged(t *testing.T) {
	base, head := baseAndHead()
	head.RequiredPhaseSequence = registry.RequiredSequenceForLane(registry.LaneFastUI)
	require.Error(t, Validate(base, head))
}

func TestValidate_HistoryNotAppendOnly(t *testing.T) {
	base, head := baseAndHead()
	base.History = append(base.History, statestore.HistoryEntry{Phase: registry.PhaseInit})
	// Head has one entry more than base, but rewrites the entry base had.
	head.History = []statestore.HistoryEntry{{Phase: registry.PhaseBackend}, head.History[0]}
	require.Error(t, Validate(base, head))
}

func TestValidate_MissingByRole(t *testing.T) {
	base, head := baseAndHead()
	head.History[0].ByRole = nil
	require.Error(t, Validate(base, head))
}

func TestValidate_ByRoleMismatchesPhase(t *testing.T) {
	base, head := baseAndHead()
	head.History[0].ByRole = role("backend")
	require.Error(t, Validate(base, head))
}

func TestValidate_BadTimestamp(t *testing.T) {
	base, head := baseAndHead()
	head.History[0].At = ts("not-a-timestamp")
	require.Error(t, Validate(base, head))
}
