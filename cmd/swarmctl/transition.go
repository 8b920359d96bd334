package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/transition"
)

var (
	transitionRole     string
	transitionTo       string
	transitionEvidence string
	transitionNote     string
	transitionTaskID   string
	transitionDryRun   bool
)

var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Apply one state-machine transition",
	RunE:  runTransition,
}

func init() {
	transitionCmd.Flags().StringVar(&transitionRole, "role", "", "acting role (required)")
	transitionCmd.Flags().StringVar(&transitionTo, "to", "", "target phase (required)")
	transitionCmd.Flags().StringVar(&transitionEvidence, "evidence", "", "path to evidence file to hash and attach")
	transitionCmd.Flags().StringVar(&transitionNote, "note", "", "free-text note for the history entry")
	transitionCmd.Flags().StringVar(&transitionTaskID, "task-id", "", "task identifier")
	transitionCmd.Flags().BoolVar(&transitionDryRun, "dry-run", false, "report the resulting state without persisting it")
	transitionCmd.MarkFlagRequired("role")
	transitionCmd.MarkFlagRequired("to")
}

func runTransition(cmd *cobra.Command, args []string) error {
	store := statestore.New(currentStatePath(), []byte(cfg.State.HMACKey.Value()))
	engine := transition.New(store)

	next, err := engine.Execute(transition.Request{
		ActorRole:    transitionRole,
		ToPhase:      transitionTo,
		Note:         transitionNote,
		EvidencePath: transitionEvidence,
		TaskID:       transitionTaskID,
		DryRun:       transitionDryRun,
	})
	if err != nil {
		exitWith(exitDomainFail, err)
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(next)
	}

	if transitionDryRun {
		rendered, err := transition.RenderDryRun(next)
		if err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
		fmt.Println(string(rendered))
	} else {
		fmt.Printf("transitioned to %s\n", next.CurrentPhase)
	}
	return nil
}
