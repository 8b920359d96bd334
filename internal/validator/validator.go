// Package validator implements the read-only consistency check run by
// `swarmctl validate`: schema shape, phase/role/lane canonicalization,
// required-phase-sequence invariance for the active lane, HMAC
// verification, and the no-skip invariant over the history timeline.
package validator

import (
	"fmt"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
)

// Result collects the errors and warnings produced by a validation pass.
// Errors mean the state document is unsafe to act on further; warnings
// flag likely-but-not-certain problems (e.g. a phase alias was resolved
// rather than an exact canonical spelling).
type Result struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were recorded.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Options configures a validation pass.
type Options struct {
	// HMACKey, when non-empty, causes state_hmac to be checked against
	// the document's own canonical bytes.
	HMACKey []byte
	// Role, when non-empty, must equal role_for_phase(next_phase); a
	// mismatch is an error, not a warning.
	Role string
}

// Validate runs every check over s and returns the accumulated result.
// It never returns a Go error for a malformed document — malformed
// input surfaces as Result.Errors, matching the original's "always
// produce a report" behavior.
func Validate(s *statestore.State, opts Options) *Result {
	res := &Result{}

	lane, err := registry.CanonicalizeLane(string(s.ExecutionLane))
	if err != nil {
		res.addError("invalid execution_lane: %v", err)
		lane = registry.LaneFull
	}

	current, err := registry.CanonicalizePhase(string(s.CurrentPhase))
	if err != nil {
		res.addError("invalid current_phase: %v", err)
	} else if string(current) != string(s.CurrentPhase) {
		res.addWarning("current_phase %q resolved via alias to %q", s.CurrentPhase, current)
	}

	next, err := registry.CanonicalizePhase(string(s.NextPhase))
	if err != nil {
		res.addError("invalid next_phase: %v", err)
	} else if string(next) != string(s.NextPhase) {
		res.addWarning("next_phase %q resolved via alias to %q", s.NextPhase, next)
	}

	validateRequiredSequence(s, lane, res)
	validateHistory(s, res)
	validateNoSkip(s, lane, res)

	if opts.Role != "" && err == nil {
		actorRole, roleErr := registry.CanonicalizeRole(opts.Role)
		if roleErr != nil {
			res.addError("invalid role %q: %v", opts.Role, roleErr)
		} else if expected := registry.PhaseToRole[next]; actorRole != expected {
			res.addError("role %q may not act on next_phase %q (expected %q)", actorRole, next, expected)
		}
	}

	if len(opts.HMACKey) > 0 {
		if s.StateHMAC == "" {
			res.addError("state_hmac is missing")
		} else {
			ok, err := statestore.VerifyHMAC(s, opts.HMACKey)
			if err != nil {
				res.addError("failed to compute state_hmac: %v", err)
			} else if !ok {
				res.addError("state_hmac does not match computed value; state may be tampered")
			}
		}
	}

	return res
}

func validateRequiredSequence(s *statestore.State, lane registry.Lane, res *Result) {
	want := registry.RequiredSequenceForLane(lane)
	if len(s.RequiredPhaseSequence) != len(want) {
		res.addError("required_phase_sequence length %d does not match lane %s's expected length %d",
			len(s.RequiredPhaseSequence), lane, len(want))
		return
	}
	for i, phase := range want {
		if s.RequiredPhaseSequence[i] != phase {
			res.addError("required_phase_sequence[%d] = %q, expected %q for lane %s",
				i, s.RequiredPhaseSequence[i], phase, lane)
		}
	}
}

func validateHistory(s *statestore.State, res *Result) {
	for i, entry := range s.History {
		if _, err := registry.CanonicalizePhase(string(entry.Phase)); err != nil {
			res.addError("history[%d].phase %q is invalid: %v", i, entry.Phase, err)
		}
		if entry.ByRole != nil {
			if _, err := registry.CanonicalizeRole(*entry.ByRole); err != nil {
				res.addError("history[%d].by_role %q is invalid: %v", i, *entry.ByRole, err)
			}
		}
		if entry.Evidence != nil && entry.Evidence.SHA256 == "" && entry.Evidence.Path != "" {
			res.addWarning("history[%d].evidence has a path but no sha256", i)
		}
	}
}

// validateNoSkip enforces that, in the timeline formed by the history
// plus the current phase, every required phase ordered before a required
// phase that appears must also appear. This mirrors the original's
// `_validate_required_sequence`.
func validateNoSkip(s *statestore.State, lane registry.Lane, res *Result) {
	required := registry.RequiredSequenceForLane(lane)

	seen := make(map[registry.Phase]bool)
	for _, entry := range s.History {
		seen[entry.Phase] = true
	}
	seen[s.CurrentPhase] = true

	highestSeenIdx := -1
	for i, phase := range required {
		if seen[phase] {
			highestSeenIdx = i
		}
	}
	if highestSeenIdx < 0 {
		return
	}
	var missing []registry.Phase
	for i := 0; i < highestSeenIdx; i++ {
		if !seen[required[i]] {
			missing = append(missing, required[i])
		}
	}
	if len(missing) > 0 {
		res.addError("required phases skipped before reaching %q: %v", required[highestSeenIdx], missing)
	}
}
