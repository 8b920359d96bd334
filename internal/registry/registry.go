// Package registry holds the canonical phase/role/lane vocabulary of the
// swarm workflow state machine and the total, deterministic functions
// that canonicalize user- and agent-supplied aliases into it. Every
// other package imports registry rather than re-declaring these tables.
package registry

import (
	"strings"

	"github.com/cmas-os/swarmctl/internal/swarmerr"
)

// Phase is one of the nine canonical workflow phases.
type Phase string

const (
	PhaseInit          Phase = "INIT"
	PhaseArchitect     Phase = "ARCHITECT"
	PhaseQAContract    Phase = "QA_CONTRACT"
	PhaseBackend       Phase = "BACKEND"
	PhaseAnalystCIGate Phase = "ANALYST_CI_GATE"
	PhaseFrontend      Phase = "FRONTEND"
	PhaseQAE2E         Phase = "QA_E2E"
	PhaseAnalystFinal  Phase = "ANALYST_FINAL"
	PhaseComplete      Phase = "COMPLETE"
)

// Role is one of the six canonical swarm participants.
type Role string

const (
	RoleArchitect    Role = "architect"
	RoleQA           Role = "qa"
	RoleBackend      Role = "backend"
	RoleFrontend     Role = "frontend"
	RoleAnalyst      Role = "analyst"
	RoleOrchestrator Role = "orchestrator"
)

// Lane selects which required-phase sequence a run must satisfy.
type Lane string

const (
	LaneFull   Lane = "FULL"
	LaneFastUI Lane = "FAST_UI"
)

// CanonicalPhases is the closed set of valid canonical phase names.
var CanonicalPhases = map[Phase]struct{}{
	PhaseInit: {}, PhaseArchitect: {}, PhaseQAContract: {}, PhaseBackend: {},
	PhaseAnalystCIGate: {}, PhaseFrontend: {}, PhaseQAE2E: {}, PhaseAnalystFinal: {},
	PhaseComplete: {},
}

// phaseAliases maps known historical/informal spellings onto their
// canonical phase. This mirrors the Python original's PHASE_ALIASES
// table exactly; it is intentionally a closed, explicit list rather than
// a derived one so that adding an alias is a deliberate, reviewed change.
var phaseAliases = map[string]Phase{
	"ARCHITECT_DESIGN":           PhaseArchitect,
	"ARCHITECT_PORT_FIX":         PhaseArchitect,
	"QA_CONTRACT_TESTS":          PhaseQAContract,
	"BACKEND_IMPLEMENTATION":     PhaseBackend,
	"BACKEND_HARDENING_COMPLETE": PhaseBackend,
	"ANALYST_AUDIT":              PhaseAnalystCIGate,
	"FRONTEND_IMPLEMENTATION":    PhaseFrontend,
	"QA_E2E_VALIDATION":          PhaseQAE2E,
	"QA_VALIDATION_COMPLETE":     PhaseQAE2E,
	"ANALYST_FINAL_SIGNOFF":      PhaseAnalystFinal,
	"QA_VALIDATION":              PhaseQAE2E,
}

// PhaseToRole maps each canonical phase to the role expected to execute it.
var PhaseToRole = map[Phase]Role{
	PhaseInit: RoleOrchestrator, PhaseArchitect: RoleArchitect, PhaseQAContract: RoleQA,
	PhaseBackend: RoleBackend, PhaseAnalystCIGate: RoleAnalyst, PhaseFrontend: RoleFrontend,
	PhaseQAE2E: RoleQA, PhaseAnalystFinal: RoleAnalyst, PhaseComplete: RoleOrchestrator,
}

// DefaultRequiredPhaseSequence is the FULL lane's ordered list of phases
// that must each appear at least once before the swarm is considered done.
var DefaultRequiredPhaseSequence = []Phase{
	PhaseArchitect, PhaseQAContract, PhaseBackend, PhaseAnalystCIGate,
	PhaseFrontend, PhaseQAE2E, PhaseAnalystFinal,
}

// FastUIRequiredPhaseSequence is the FAST_UI lane's shortened sequence.
var FastUIRequiredPhaseSequence = []Phase{
	PhaseArchitect, PhaseFrontend, PhaseQAE2E, PhaseAnalystFinal,
}

// LaneRequiredPhaseSequence maps each lane to its required-phase sequence.
var LaneRequiredPhaseSequence = map[Lane][]Phase{
	LaneFull:   DefaultRequiredPhaseSequence,
	LaneFastUI: FastUIRequiredPhaseSequence,
}

var roleAliases = map[string]Role{
	"arch":         RoleArchitect,
	"architect":    RoleArchitect,
	"qa":           RoleQA,
	"backend":      RoleBackend,
	"dev":          RoleBackend,
	"developer":    RoleBackend,
	"frontend":     RoleFrontend,
	"analyst":      RoleAnalyst,
	"orchestrator": RoleOrchestrator,
	"ci":           RoleOrchestrator,
}

// CanonicalizePhase normalizes an arbitrary phase spelling into one of
// the nine canonical phases. It is total over the closed alias map plus
// a deterministic fallback-collapse pass, and rejects anything it cannot
// resolve unambiguously — in particular, a bare "QA"-prefixed name that
// is neither contract- nor e2e-flavored is rejected rather than guessed.
func CanonicalizePhase(raw string) (Phase, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", swarmerr.New(swarmerr.KindSchema, "phase must not be empty")
	}
	if _, ok := CanonicalPhases[Phase(trimmed)]; ok {
		return Phase(trimmed), nil
	}
	if canon, ok := phaseAliases[trimmed]; ok {
		return canon, nil
	}
	return collapsePhase(trimmed)
}

// collapsePhase applies the fallback prefix/contains rules used when a
// phase spelling is neither canonical nor in the explicit alias table.
func collapsePhase(trimmed string) (Phase, error) {
	switch {
	case strings.HasPrefix(trimmed, "ARCHITECT"):
		return PhaseArchitect, nil
	case strings.HasPrefix(trimmed, "BACKEND"):
		return PhaseBackend, nil
	case strings.HasPrefix(trimmed, "FRONTEND"):
		return PhaseFrontend, nil
	case strings.HasPrefix(trimmed, "ANALYST_FINAL"):
		return PhaseAnalystFinal, nil
	case strings.HasPrefix(trimmed, "ANALYST") && strings.Contains(trimmed, "FINAL"):
		return PhaseAnalystFinal, nil
	case strings.HasPrefix(trimmed, "ANALYST"):
		return PhaseAnalystCIGate, nil
	case strings.HasPrefix(trimmed, "QA"):
		switch {
		case strings.Contains(trimmed, "CONTRACT"):
			return PhaseQAContract, nil
		case strings.Contains(trimmed, "E2E"), strings.Contains(trimmed, "VALIDATION"):
			return PhaseQAE2E, nil
		default:
			return "", swarmerr.New(swarmerr.KindSchema,
				"ambiguous QA phase %q: cannot determine whether it is QA_CONTRACT or QA_E2E", trimmed)
		}
	default:
		return "", swarmerr.New(swarmerr.KindSchema, "unrecognized phase %q", trimmed)
	}
}

// CanonicalizeRole normalizes an arbitrary role spelling into one of the
// six canonical roles.
func CanonicalizeRole(raw string) (Role, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", swarmerr.New(swarmerr.KindSchema, "role must not be empty")
	}
	if canon, ok := roleAliases[trimmed]; ok {
		return canon, nil
	}
	return "", swarmerr.New(swarmerr.KindSchema, "unrecognized role %q", trimmed)
}

// CanonicalizeLane normalizes an arbitrary lane spelling into FULL or FAST_UI.
func CanonicalizeLane(raw string) (Lane, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	switch trimmed {
	case "", string(LaneFull):
		return LaneFull, nil
	case string(LaneFastUI):
		return LaneFastUI, nil
	default:
		return "", swarmerr.New(swarmerr.KindSchema, "unrecognized execution lane %q", trimmed)
	}
}

// RequiredSequenceForLane returns a copy of the required-phase sequence
// for lane, so callers may freely mutate the result.
func RequiredSequenceForLane(lane Lane) []Phase {
	src := LaneRequiredPhaseSequence[lane]
	out := make([]Phase, len(src))
	copy(out, src)
	return out
}
