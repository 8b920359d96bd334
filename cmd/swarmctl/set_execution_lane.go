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
	laneValue  string
	laneReason string
	laneForce  bool
	laneDryRun bool
)

var setExecutionLaneCmd = &cobra.Command{
	Use:   "set-execution-lane",
	Short: "Switch the active execution lane and its required phase sequence",
	RunE:  runSetExecutionLane,
}

func init() {
	setExecutionLaneCmd.Flags().StringVar(&laneValue, "lane", "", "target lane: FULL or FAST_UI (required)")
	setExecutionLaneCmd.Flags().StringVar(&laneReason, "reason", "", "accepted but not recorded: the lane switch writes no history entry or reason")
	setExecutionLaneCmd.Flags().BoolVar(&laneForce, "force", false, "switch even outside a safe current/next-phase boundary")
	setExecutionLaneCmd.Flags().BoolVar(&laneDryRun, "dry-run", false, "report the resulting state without persisting it")
	setExecutionLaneCmd.MarkFlagRequired("lane")
}

func runSetExecutionLane(cmd *cobra.Command, args []string) error {
	var dryRunPreview *statestore.State
	lane, err := registry.CanonicalizeLane(laneValue)
	if err != nil {
		exitWith(exitDomainFail, err)
		return nil
	}

	store := statestore.New(currentStatePath(), []byte(cfg.State.HMACKey.Value()))
	next, err := store.WithLock(func(current *statestore.State) (*statestore.State, error) {
		switched, err := migrate.SwitchLane(current, lane, laneForce)
		if err != nil {
			return nil, err
		}
		if laneDryRun {
			// Returning nil tells Store.WithLock to skip persisting;
			// report the would-be result below instead.
			dryRunPreview = switched
			return nil, nil
		}
		return switched, nil
	})
	if err != nil {
		exitWith(exitDomainFail, err)
		return nil
	}
	if laneDryRun && dryRunPreview != nil {
		next = dryRunPreview
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(next)
	}
	fmt.Printf("execution lane set to %s\n", next.ExecutionLane)
	return nil
}
