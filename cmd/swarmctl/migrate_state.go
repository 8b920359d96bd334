package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/migrate"
	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/statestore"
)

var (
	migrateOut              string
	migrateEnforcementLevel string
	migrateTaskID           string
)

var migrateStateCmd = &cobra.Command{
	Use:   "migrate-state",
	Short: "Upgrade a legacy string-only history into schema history objects",
	RunE:  runMigrateState,
}

func init() {
	migrateStateCmd.Flags().StringVar(&migrateOut, "out", "", "output path; defaults to overwriting --state in place")
	migrateStateCmd.Flags().StringVar(&migrateEnforcementLevel, "enforcement-level", "strict", "strict: reject unresolvable aliases; lenient: best-effort migration")
	migrateStateCmd.Flags().StringVar(&migrateTaskID, "task-id", "", "task identifier written to the migrated state's task_id")
}

func runMigrateState(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(currentStatePath())
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("read state file: %w", err))
		return nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		exitWith(exitDomainFail, fmt.Errorf("decode state file: %w", err))
		return nil
	}

	historyRaw, ok := doc["history"]
	if !ok {
		exitWith(exitDomainFail, fmt.Errorf("state file has no history field"))
		return nil
	}

	history, err := migrate.ToHistoryObjects(historyRaw)
	if err != nil {
		if migrateEnforcementLevel == "strict" {
			exitWith(exitDomainFail, fmt.Errorf("migrate history: %w", err))
			return nil
		}
	}

	var lane registry.Lane = registry.LaneFull
	if laneRaw, ok := doc["execution_lane"]; ok {
		var laneStr string
		if err := json.Unmarshal(laneRaw, &laneStr); err == nil {
			if canon, err := registry.CanonicalizeLane(laneStr); err == nil {
				lane = canon
			}
		}
	}
	history = migrate.InsertMissingRequiredPhases(history, registry.RequiredSequenceForLane(lane))

	// Decode everything except history, which may still hold legacy
	// bare-string entries that do not fit the schema type.
	delete(doc, "history")
	rest, err := json.Marshal(doc)
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("re-encode state: %w", err))
		return nil
	}
	state, err := statestore.Decode(rest)
	if err != nil {
		exitWith(exitDomainFail, fmt.Errorf("decode state as schema document: %w", err))
		return nil
	}
	state.History = history
	state.RequiredPhaseSequence = registry.RequiredSequenceForLane(lane)
	if migrateTaskID != "" {
		state.TaskID = migrateTaskID
	}

	out := migrateOut
	if out == "" {
		out = currentStatePath()
	}

	encoded, err := statestore.Encode(state)
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}
	if err := os.WriteFile(out, append(encoded, '\n'), 0644); err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("write migrated state: %w", err))
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	fmt.Printf("migrated state written to %s\n", out)
	return nil
}
