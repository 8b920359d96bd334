package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/statediff"
)

var (
	stateDiffBase string
	stateDiffHead string
)

var stateDiffGuardCmd = &cobra.Command{
	Use:   "state-diff-guard",
	Short: "Verify that the state document changed by exactly one legal transition between two revisions",
	RunE:  runStateDiffGuard,
}

func init() {
	stateDiffGuardCmd.Flags().StringVar(&stateDiffBase, "base", "", "base revision (required)")
	stateDiffGuardCmd.Flags().StringVar(&stateDiffHead, "head", "", "head revision (required)")
	stateDiffGuardCmd.MarkFlagRequired("base")
	stateDiffGuardCmd.MarkFlagRequired("head")
}

type stateDiffOutput struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func runStateDiffGuard(cmd *cobra.Command, args []string) error {
	base, err := statediff.LoadStateAtRevision(".", stateDiffBase, currentStatePath())
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}
	head, err := statediff.LoadStateAtRevision(".", stateDiffHead, currentStatePath())
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}

	verr := statediff.Validate(base, head)
	out := stateDiffOutput{OK: verr == nil}
	if verr != nil {
		out.Error = verr.Error()
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
	} else if out.OK {
		fmt.Println("state-diff-guard: ok")
	} else {
		fmt.Println("state-diff-guard:", out.Error)
	}

	if !out.OK {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
