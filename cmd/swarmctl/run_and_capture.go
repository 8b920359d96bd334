package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/runner"
)

var (
	racCommand string
	racActor   string
	racPhase   string
	racTaskID  string
)

var runAndCaptureCmd = &cobra.Command{
	Use:   "run-and-capture",
	Short: "Execute a command and record its output into the evidence ledger",
	RunE:  runRunAndCapture,
}

func init() {
	runAndCaptureCmd.Flags().StringVar(&racCommand, "command", "", "command to execute (required)")
	runAndCaptureCmd.Flags().StringVar(&racActor, "actor", "", "acting role")
	runAndCaptureCmd.Flags().StringVar(&racPhase, "phase", "", "phase the run belongs to")
	runAndCaptureCmd.Flags().StringVar(&racTaskID, "task-id", "", "task identifier")
	runAndCaptureCmd.MarkFlagRequired("command")
}

func runRunAndCapture(cmd *cobra.Command, args []string) error {
	result, err := runner.RunAndCapture(cmd.Context(), runner.Request{
		Command:     racCommand,
		Actor:       racActor,
		Phase:       racPhase,
		TaskID:      racTaskID,
		EvidenceDir: cfg.Ledger.EvidenceDir,
		LogPath:     cfg.Ledger.LogPath,
		HMACKey:     []byte(cfg.Ledger.HMACKey.Value()),
	})
	if err != nil {
		exitWith(runner.CaptureFailureExitCode, err)
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
	} else {
		fmt.Printf("run %s exited %d, evidence at %s\n", result.RunID, result.ExitCode, result.EvidencePath)
	}

	if result.ExitCode != 0 {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
