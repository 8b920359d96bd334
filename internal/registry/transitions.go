package registry

// Transition is an ordered (from, to) phase pair.
type Transition struct {
	From Phase
	To   Phase
}

// FullAllowedTransitions is the FULL lane's edge set.
var FullAllowedTransitions = map[Transition]struct{}{
	{PhaseInit, PhaseArchitect}:          {},
	{PhaseArchitect, PhaseQAContract}:    {},
	{PhaseQAContract, PhaseBackend}:      {},
	{PhaseBackend, PhaseAnalystCIGate}:   {},
	{PhaseAnalystCIGate, PhaseBackend}:   {},
	{PhaseAnalystCIGate, PhaseFrontend}:  {},
	{PhaseAnalystCIGate, PhaseArchitect}: {},
	{PhaseFrontend, PhaseQAE2E}:          {},
	{PhaseFrontend, PhaseAnalystCIGate}:  {},
	{PhaseQAE2E, PhaseAnalystFinal}:      {},
	{PhaseQAE2E, PhaseAnalystCIGate}:     {},
	{PhaseAnalystFinal, PhaseComplete}:   {},
	{PhaseAnalystFinal, PhaseFrontend}:   {},
	{PhaseAnalystFinal, PhaseBackend}:    {},
	{PhaseAnalystFinal, PhaseArchitect}:  {},
}

// FastUIAllowedTransitions is the FAST_UI lane's edge set.
var FastUIAllowedTransitions = map[Transition]struct{}{
	{PhaseInit, PhaseArchitect}:         {},
	{PhaseArchitect, PhaseFrontend}:     {},
	{PhaseFrontend, PhaseQAE2E}:         {},
	{PhaseFrontend, PhaseArchitect}:     {},
	{PhaseQAE2E, PhaseAnalystFinal}:     {},
	{PhaseQAE2E, PhaseFrontend}:         {},
	{PhaseAnalystFinal, PhaseComplete}:  {},
	{PhaseAnalystFinal, PhaseFrontend}:  {},
	{PhaseAnalystFinal, PhaseArchitect}: {},
}

// LaneAllowedTransitions maps each lane to its allowed-transition edge set.
var LaneAllowedTransitions = map[Lane]map[Transition]struct{}{
	LaneFull:   FullAllowedTransitions,
	LaneFastUI: FastUIAllowedTransitions,
}

// AllAllowedTransitions is the union of every lane's edge set, used by the
// State-Diff Guard which validates a transition without first knowing
// which lane produced it.
var AllAllowedTransitions = unionTransitions(FullAllowedTransitions, FastUIAllowedTransitions)

func unionTransitions(sets ...map[Transition]struct{}) map[Transition]struct{} {
	out := make(map[Transition]struct{})
	for _, set := range sets {
		for t := range set {
			out[t] = struct{}{}
		}
	}
	return out
}

// IsAllowedTransition reports whether (from, to) is a legal edge for lane.
func IsAllowedTransition(lane Lane, from, to Phase) bool {
	set, ok := LaneAllowedTransitions[lane]
	if !ok {
		return false
	}
	_, ok = set[Transition{from, to}]
	return ok
}

// IsAllowedTransitionAnyLane reports whether (from, to) is legal under
// any lane's edge set — used where the lane is not independently known.
func IsAllowedTransitionAnyLane(from, to Phase) bool {
	_, ok := AllAllowedTransitions[Transition{from, to}]
	return ok
}
