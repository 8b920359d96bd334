// Package statediff implements `swarmctl state-diff-guard`: loads the
// state document as it existed at a base revision and as it exists at a
// head revision, and verifies that the only change is exactly one
// legal, well-formed transition.
package statediff

import (
	"fmt"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/swarmerr"
	"github.com/cmas-os/swarmctl/internal/vcs"
)

// LoadStateAtRevision reads and decodes the state file as it existed at
// ref within repoPath.
func LoadStateAtRevision(repoPath, ref, statePath string) (*statestore.State, error) {
	repo, err := vcs.Open(repoPath)
	if err != nil {
		return nil, err
	}
	raw, err := repo.ShowFileAtRevision(ref, statePath)
	if err != nil {
		return nil, fmt.Errorf("load state at %s:%s: %w", ref, statePath, err)
	}
	return statestore.Decode(raw)
}

// StateChanged reports whether statePath differs between base and head.
func StateChanged(repoPath, base, head, statePath string) (bool, error) {
	repo, err := vcs.Open(repoPath)
	if err != nil {
		return false, err
	}
	changed, err := repo.DiffNameOnly(base, head)
	if err != nil {
		return false, err
	}
	for _, p := range changed {
		if p == statePath {
			return true, nil
		}
	}
	return false, nil
}

// Validate checks that head is a legal, well-formed single-step
// evolution of base.
func Validate(base, head *statestore.State) error {
	baseNext, err := registry.CanonicalizePhase(string(base.NextPhase))
	if err != nil {
		return swarmerr.New(swarmerr.KindSchema, "base.next_phase invalid: %v", err)
	}
	headCurrent, err := registry.CanonicalizePhase(string(head.CurrentPhase))
	if err != nil {
		return swarmerr.New(swarmerr.KindSchema, "head.current_phase invalid: %v", err)
	}
	headNext, err := registry.CanonicalizePhase(string(head.NextPhase))
	if err != nil {
		return swarmerr.New(swarmerr.KindSchema, "head.next_phase invalid: %v", err)
	}

	if headCurrent != baseNext {
		return swarmerr.New(swarmerr.KindSemantic,
			"head.current_phase %q must equal base.next_phase %q", headCurrent, baseNext)
	}

	if !registry.IsAllowedTransitionAnyLane(baseNext, headNext) {
		return swarmerr.New(swarmerr.KindSemantic,
			"transition %s -> %s is not permitted under any lane", baseNext, headNext)
	}

	if len(base.RequiredPhaseSequence) != len(head.RequiredPhaseSequence) {
		return swarmerr.New(swarmerr.KindSemantic, "required_phase_sequence must not change across a transition")
	}
	for i := range base.RequiredPhaseSequence {
		if base.RequiredPhaseSequence[i] != head.RequiredPhaseSequence[i] {
			return swarmerr.New(swarmerr.KindSemantic, "required_phase_sequence must not change across a transition")
		}
	}
	if base.IsLocked != head.IsLocked {
		return swarmerr.New(swarmerr.KindSemantic, "is_locked must not change across a transition")
	}

	if len(head.History) != len(base.History)+1 {
		return swarmerr.New(swarmerr.KindSemantic,
			"history must grow by exactly one entry per transition (base=%d, head=%d)",
			len(base.History), len(head.History))
	}
	for i := range base.History {
		if base.History[i] != head.History[i] {
			return swarmerr.New(swarmerr.KindSemantic, "history must be append-only; entry %d was modified", i)
		}
	}

	newEntry := head.History[len(head.History)-1]
	if newEntry.Phase != baseNext {
		return swarmerr.New(swarmerr.KindSemantic,
			"new history entry's phase %q must equal the executed phase %q", newEntry.Phase, baseNext)
	}
	if newEntry.ByRole == nil {
		return swarmerr.New(swarmerr.KindSemantic, "new history entry must record by_role")
	}
	entryRole, err := registry.CanonicalizeRole(*newEntry.ByRole)
	if err != nil {
		return swarmerr.New(swarmerr.KindSemantic, "new history entry has invalid by_role: %v", err)
	}
	if expected := registry.PhaseToRole[baseNext]; entryRole != expected {
		return swarmerr.New(swarmerr.KindSemantic,
			"new history entry's by_role %q must equal role_for_phase(base.next_phase) %q", entryRole, expected)
	}
	if newEntry.At == nil || !looksLikeISOZ(*newEntry.At) {
		return swarmerr.New(swarmerr.KindSemantic, "new history entry must record a UTC ISO-8601 timestamp ending in Z")
	}
	if newEntry.Evidence != nil && newEntry.Evidence.SHA256 != "" && !isSHA256Hex(newEntry.Evidence.SHA256) {
		return swarmerr.New(swarmerr.KindSemantic, "new history entry's evidence.sha256 is not a valid hex digest")
	}

	return nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

func looksLikeISOZ(s string) bool {
	if len(s) < len("2006-01-02T") || s[len(s)-1] != 'Z' {
		return false
	}
	if s[4] != '-' || s[7] != '-' || s[10] != 'T' {
		return false
	}
	for _, r := range s {
		if r == ' ' {
			return false
		}
	}
	return true
}
