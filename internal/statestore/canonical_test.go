package statestore

import (
	"testing"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	return &State{
		CurrentPhase:          registry.PhaseInit,
		NextPhase:             registry.PhaseArchitect,
		ExecutionLane:         registry.LaneFull,
		RequiredPhaseSequence: registry.RequiredSequenceForLane(registry.LaneFull),
		History:               []HistoryEntry{},
		StateHMAC:             "stale-value-must-be-stripped",
	}
}

func TestCanonicalBytes_StripsHMACFields(t *testing.T) {
	s := sampleState()
	s.Integrity = &Integrity{HMAC: "also-stale"}

	canon, err := CanonicalBytes(s)
	require.NoError(t, err)
	assert.NotContains(t, string(canon), "stale-value-must-be-stripped")
	assert.NotContains(t, string(canon), "also-stale")
}

func TestCanonicalBytes_Deterministic(t *testing.T) {
	s1 := sampleState()
	s2 := sampleState()
	s2.StateHMAC = "a-different-stale-value"

	c1, err := CanonicalBytes(s1)
	require.NoError(t, err)
	c2, err := CanonicalBytes(s2)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestComputeHMAC_VerifyRoundTrip(t *testing.T) {
	s := sampleState()
	key := []byte("test-key")

	mac, err := ComputeHMAC(s, key)
	require.NoError(t, err)
	s.StateHMAC = mac

	ok, err := VerifyHMAC(s, key)
	require.NoError(t, err)
	assert.True(t, ok)

	s.CurrentPhase = registry.PhaseArchitect
	ok, err = VerifyHMAC(s, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
