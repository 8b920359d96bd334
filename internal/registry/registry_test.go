package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizePhase_Canonical(t *testing.T) {
	p, err := CanonicalizePhase("backend")
	require.NoError(t, err)
	assert.Equal(t, PhaseBackend, p)
}

func TestCanonicalizePhase_Alias(t *testing.T) {
	p, err := CanonicalizePhase("ARCHITECT_DESIGN")
	require.NoError(t, err)
	assert.Equal(t, PhaseArchitect, p)

	p, err = CanonicalizePhase("qa_validation")
	require.NoError(t, err)
	assert.Equal(t, PhaseQAE2E, p)
}

func TestCanonicalizePhase_FallbackCollapse(t *testing.T) {
	p, err := CanonicalizePhase("BACKEND_WEIRD_SUFFIX")
	require.NoError(t, err)
	assert.Equal(t, PhaseBackend, p)

	p, err = CanonicalizePhase("QA_CONTRACT_EXTRA")
	require.NoError(t, err)
	assert.Equal(t, PhaseQAContract, p)

	p, err = CanonicalizePhase("QA_E2E_EXTRA")
	require.NoError(t, err)
	assert.Equal(t, PhaseQAE2E, p)
}

func TestCanonicalizePhase_AmbiguousQA(t *testing.T) {
	_, err := CanonicalizePhase("QA_SOMETHING_ELSE")
	require.Error(t, err)
}

func TestCanonicalizePhase_Unrecognized(t *testing.T) {
	_, err := CanonicalizePhase("NOT_A_PHASE")
	require.Error(t, err)

	_, err = CanonicalizePhase("")
	require.Error(t, err)
}

func TestCanonicalizeRole(t *testing.T) {
	r, err := CanonicalizeRole("dev")
	require.NoError(t, err)
	assert.Equal(t, RoleBackend, r)

	_, err = CanonicalizeRole("unknown-role")
	require.Error(t, err)
}

func TestCanonicalizeLane(t *testing.T) {
	l, err := CanonicalizeLane("")
	require.NoError(t, err)
	assert.Equal(t, LaneFull, l)

	l, err = CanonicalizeLane("fast_ui")
	require.NoError(t, err)
	assert.Equal(t, LaneFastUI, l)

	_, err = CanonicalizeLane("SLOW")
	require.Error(t, err)
}

func TestIsAllowedTransition(t *testing.T) {
	assert.True(t, IsAllowedTransition(LaneFull, PhaseInit, PhaseArchitect))
	assert.False(t, IsAllowedTransition(LaneFastUI, PhaseArchitect, PhaseQAContract))
	assert.True(t, IsAllowedTransition(LaneFastUI, PhaseArchitect, PhaseFrontend))
}

func TestRequiredSequenceForLane_ReturnsCopy(t *testing.T) {
	seq := RequiredSequenceForLane(LaneFull)
	seq[0] = PhaseComplete
	assert.Equal(t, PhaseArchitect, DefaultRequiredPhaseSequence[0])
}
