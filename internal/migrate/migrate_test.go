package migrate

import (
	"encoding/json"
	"testing"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHistoryObjects_LegacyStrings(t *testing.T) {
	raw := json.RawMessage(`["ARCHITECT", "BACKEND_IMPLEMENTATION"]`)
	entries, err := ToHistoryObjects(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, registry.PhaseArchitect, entries[0].Phase)
	assert.Equal(t, "ARCHITECT", entries[0].LegacyPhase)
	assert.Equal(t, registry.PhaseBackend, entries[1].Phase)
}

func TestToHistoryObjects_MixedStructured(t *testing.T) {
	raw := json.RawMessage(`["ARCHITECT", {"phase": "BACKEND", "by_role": "backend"}]`)
	entries, err := ToHistoryObjects(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].ByRole)
	assert.Equal(t, "backend", *entries[1].ByRole)
}

func TestInsertMissingRequiredPhases_InsertsBeforeLaterAnchor(t *testing.T) {
	history := []statestore.HistoryEntry{
		{Phase: registry.PhaseArchitect},
		{Phase: registry.PhaseBackend},
	}
	required := registry.DefaultRequiredPhaseSequence

	result := InsertMissingRequiredPhases(history, required)

	var phases []registry.Phase
	for _, e := range result {
		phases = append(phases, e.Phase)
	}
	assert.Equal(t, []registry.Phase{registry.PhaseArchitect, registry.PhaseQAContract, registry.PhaseBackend}, phases)
}

func TestInsertMissingRequiredPhases_NoLaterAnchorLeavesAsIs(t *testing.T) {
	history := []statestore.HistoryEntry{
		{Phase: registry.PhaseArchitect},
	}
	required := registry.DefaultRequiredPhaseSequence

	result := InsertMissingRequiredPhases(history, required)
	assert.Len(t, result, 1, "nothing should be speculatively appended at the end")
}

func TestSwitchLane_RefusesUnsafeBoundaryWithoutForce(t *testing.T) {
	s := &statestore.State{
		CurrentPhase: registry.PhaseBackend,
		NextPhase:    registry.PhaseAnalystCIGate,
	}
	_, err := SwitchLane(s, registry.LaneFastUI, false)
	require.Error(t, err)
}

func TestSwitchLane_AllowsSafeBoundary(t *testing.T) {
	s := &statestore.State{
		CurrentPhase: registry.PhaseInit,
		NextPhase:    registry.PhaseArchitect,
	}
	next, err := SwitchLane(s, registry.LaneFastUI, false)
	require.NoError(t, err)
	assert.Equal(t, registry.LaneFastUI, next.ExecutionLane)
	assert.Equal(t, registry.FastUIRequiredPhaseSequence, next.RequiredPhaseSequence)
}

func TestSwitchLane_ForceOverridesBoundaryCheck(t *testing.T) {
	s := &statestore.State{
		CurrentPhase: registry.PhaseBackend,
		NextPhase:    registry.PhaseAnalystCIGate,
	}
	_, err := SwitchLane(s, registry.LaneFastUI, true)
	require.NoError(t, err)
}
