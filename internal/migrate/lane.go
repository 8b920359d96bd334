package migrate

import (
	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/swarmerr"
)

// laneSwitchSafeCurrent is the set of current_phase values a lane switch
// may occur at without --force.
var laneSwitchSafeCurrent = map[registry.Phase]bool{
	registry.PhaseInit: true, registry.PhaseArchitect: true, registry.PhaseComplete: true,
}

// laneSwitchSafeNext is the set of next_phase values a lane switch may
// occur at without --force.
var laneSwitchSafeNext = map[registry.Phase]bool{
	registry.PhaseArchitect: true, registry.PhaseFrontend: true, registry.PhaseQAContract: true,
}

// SwitchLane atomically changes s's execution_lane and
// required_phase_sequence to newLane. Unless force is true, it refuses
// to switch except at a safe boundary (current_phase in {INIT,
// ARCHITECT, COMPLETE} and next_phase in {ARCHITECT, FRONTEND,
// QA_CONTRACT}), since switching mid-lane could silently drop or gain
// required phases out from under an in-flight run.
func SwitchLane(s *statestore.State, newLane registry.Lane, force bool) (*statestore.State, error) {
	if !force {
		if !laneSwitchSafeCurrent[s.CurrentPhase] || !laneSwitchSafeNext[s.NextPhase] {
			return nil, swarmerr.New(swarmerr.KindSemantic,
				"lane switch is only permitted at a phase boundary (current_phase=%s, next_phase=%s); use --force to override",
				s.CurrentPhase, s.NextPhase)
		}
	}

	next := s.Clone()
	next.ExecutionLane = newLane
	next.RequiredPhaseSequence = registry.RequiredSequenceForLane(newLane)
	return next, nil
}
