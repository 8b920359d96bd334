// Package transition implements the single-writer state-transition RMW
// used by `swarmctl transition`: validate the requested (from, to) edge
// against the active lane, confirm the acting role owns the phase being
// executed, append a history entry (optionally hashing an evidence
// file), and persist atomically.
package transition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/swarmerr"
)

// Request describes one transition attempt.
type Request struct {
	ActorRole    string
	ToPhase      string
	Note         string
	EvidencePath string
	TaskID       string
	DryRun       bool
	// Now overrides time.Now for deterministic tests; nil means time.Now.
	Now func() time.Time
}

// Engine executes transitions against a single state file.
type Engine struct {
	Store *statestore.Store
}

// New returns an Engine bound to store.
func New(store *statestore.Store) *Engine {
	return &Engine{Store: store}
}

// Execute runs one transition request to completion. On DryRun it
// returns the state that *would* be written without persisting it.
func (e *Engine) Execute(req Request) (*statestore.State, error) {
	nowFn := req.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	var result *statestore.State
	var dryRunPreview *statestore.State

	_, err := e.Store.WithLock(func(current *statestore.State) (*statestore.State, error) {
		next, err := applyTransition(current, req, nowFn)
		if err != nil {
			return nil, err
		}
		if req.DryRun {
			dryRunPreview = next
			return nil, nil
		}
		result = next
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	if req.DryRun {
		return dryRunPreview, nil
	}
	return result, nil
}

func applyTransition(current *statestore.State, req Request, now func() time.Time) (*statestore.State, error) {
	if current.IsLocked {
		return nil, swarmerr.New(swarmerr.KindSemantic, "state is locked; no further transitions are permitted")
	}

	lane, err := registry.CanonicalizeLane(string(current.ExecutionLane))
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindSchema, "invalid execution_lane: %v", err)
	}

	actorRole, err := registry.CanonicalizeRole(req.ActorRole)
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindSchema, "invalid actor role %q: %v", req.ActorRole, err)
	}

	toPhase, err := registry.CanonicalizePhase(req.ToPhase)
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindSchema, "invalid target phase %q: %v", req.ToPhase, err)
	}

	// The phase actually being executed is the state's recorded
	// next_phase, not its current_phase: a transition request always
	// advances the swarm from where it was told to go next.
	executingPhase, err := registry.CanonicalizePhase(string(current.NextPhase))
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindSchema, "invalid next_phase on state: %v", err)
	}

	expectedRole := registry.PhaseToRole[executingPhase]
	if actorRole != expectedRole {
		return nil, swarmerr.New(swarmerr.KindSemantic,
			"role %q may not execute phase %q (expected %q)", actorRole, executingPhase, expectedRole).
			WithValue("phase", string(executingPhase)).WithValue("expected_role", string(expectedRole))
	}

	if !registry.IsAllowedTransition(lane, executingPhase, toPhase) {
		return nil, swarmerr.New(swarmerr.KindSemantic,
			"transition %s -> %s is not permitted under lane %s", executingPhase, toPhase, lane)
	}

	next := current.Clone()
	next.CurrentPhase = executingPhase
	next.NextPhase = toPhase

	if err := checkNoSkip(next, lane, executingPhase); err != nil {
		return nil, err
	}

	entry := statestore.HistoryEntry{
		Phase:  executingPhase,
		Note:   req.Note,
		TaskID: req.TaskID,
	}
	roleStr := string(actorRole)
	entry.ByRole = &roleStr
	ts := now().UTC().Format("2006-01-02T15:04:05Z")
	entry.At = &ts

	if req.EvidencePath != "" {
		sum, err := hashFile(req.EvidencePath)
		if err != nil {
			return nil, swarmerr.New(swarmerr.KindIO, "hashing evidence file %s: %v", req.EvidencePath, err)
		}
		entry.Evidence = &statestore.Evidence{SHA256: sum, Path: req.EvidencePath}
	}

	next.History = append(next.History, entry)
	return next, nil
}

// checkNoSkip prevents a transition from completing a required phase out
// of order: before executingPhase's history entry is appended, every
// required phase ordered ahead of it in the lane's sequence must already
// have appeared.
func checkNoSkip(next *statestore.State, lane registry.Lane, executingPhase registry.Phase) error {
	required := registry.RequiredSequenceForLane(lane)
	idx := -1
	for i, p := range required {
		if p == executingPhase {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil
	}

	completed := make(map[registry.Phase]bool)
	// next.History already contains prior entries (the new one is added
	// by the caller after this check), so this reflects everything
	// completed strictly before the current attempt.
	for _, entry := range next.History {
		completed[entry.Phase] = true
	}

	var missing []registry.Phase
	for i := 0; i < idx; i++ {
		if !completed[required[i]] {
			missing = append(missing, required[i])
		}
	}
	if len(missing) > 0 {
		return swarmerr.New(swarmerr.KindSemantic, "cannot execute %q: required phases not yet completed: %v",
			executingPhase, missing)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RenderDryRun renders a preview state as indented JSON for `--dry-run`.
func RenderDryRun(s *statestore.State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil preview state")
	}
	return statestore.Encode(s)
}
