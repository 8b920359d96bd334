// Package migrate implements `swarmctl migrate-state`: it wraps a
// legacy string-only history into schema history objects and
// conservatively backfills required phases that the legacy document
// never recorded, without ever guessing a phase into existence at the
// end of the timeline.
package migrate

import (
	"encoding/json"

	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
)

// ToHistoryObjects converts a raw JSON array of legacy entries — each
// either a bare phase-name string or an already-structured object — into
// schema HistoryEntry values. A bare string becomes an entry with at,
// by_role, and evidence all nil, its original spelling preserved in
// LegacyPhase, and a note flagging it as migrated.
func ToHistoryObjects(raw json.RawMessage) ([]statestore.HistoryEntry, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := make([]statestore.HistoryEntry, 0, len(items))
	for _, item := range items {
		var asString string
		if err := json.Unmarshal(item, &asString); err == nil {
			phase, canonErr := registry.CanonicalizePhase(asString)
			entry := statestore.HistoryEntry{
				LegacyPhase: asString,
				Note:        "migrated from legacy string-only history",
			}
			if canonErr == nil {
				entry.Phase = phase
			} else {
				entry.Phase = registry.Phase(asString)
			}
			out = append(out, entry)
			continue
		}

		var entry statestore.HistoryEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// InsertMissingRequiredPhases backfills any required phase missing from
// history, but ONLY by inserting it immediately before a later required
// phase that already exists in the timeline. If no later required phase
// exists yet for a given missing phase, it is left out entirely rather
// than appended speculatively — an intentionally conservative choice:
// a migration tool that guesses where an undocumented phase "must have"
// happened can manufacture false history, which is worse than an
// incomplete one that a human can still audit.
func InsertMissingRequiredPhases(history []statestore.HistoryEntry, required []registry.Phase) []statestore.HistoryEntry {
	present := make(map[registry.Phase]bool, len(history))
	for _, e := range history {
		present[e.Phase] = true
	}

	result := append([]statestore.HistoryEntry(nil), history...)
	for i, phase := range required {
		if present[phase] {
			continue
		}
		anchor := -1
		for j := i + 1; j < len(required); j++ {
			if present[required[j]] {
				if idx := firstIndexOfPhase(result, required[j]); idx >= 0 {
					anchor = idx
					break
				}
			}
		}
		if anchor < 0 {
			continue
		}
		inserted := statestore.HistoryEntry{
			Phase: phase,
			Note:  "backfilled by migration: inferred from position before a later required phase",
		}
		result = append(result[:anchor], append([]statestore.HistoryEntry{inserted}, result[anchor:]...)...)
		present[phase] = true
	}
	return result
}

func firstIndexOfPhase(history []statestore.HistoryEntry, phase registry.Phase) int {
	for i, e := range history {
		if e.Phase == phase {
			return i
		}
	}
	return -1
}
