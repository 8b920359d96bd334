package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/policy"
	"github.com/cmas-os/swarmctl/internal/registry"
)

var (
	policyRole                string
	policyActor               string
	policyBase                string
	policyHead                string
	policyAllowCodeownersEdit bool
)

var policyGuardCmd = &cobra.Command{
	Use:   "policy-guard",
	Short: "Check that an actor's changed files respect the path-glob policy",
	RunE:  runPolicyGuard,
}

func init() {
	policyGuardCmd.Flags().StringVar(&policyRole, "role", "", "acting role (alias of --actor)")
	policyGuardCmd.Flags().StringVar(&policyActor, "actor", "", "acting role")
	policyGuardCmd.Flags().StringVar(&policyBase, "base", "", "base revision; defaults to working-tree status when unset")
	policyGuardCmd.Flags().StringVar(&policyHead, "head", "", "head revision")
	policyGuardCmd.Flags().BoolVar(&policyAllowCodeownersEdit, "allow-codeowners-edit", false, "permit edits to CODEOWNERS that would otherwise be denied")
}

type policyOutput struct {
	OK         bool               `json:"ok"`
	Violations []policy.Violation `json:"violations"`
}

func runPolicyGuard(cmd *cobra.Command, args []string) error {
	actor := policyActor
	if actor == "" {
		actor = policyRole
	}
	role, err := registry.CanonicalizeRole(actor)
	if err != nil {
		exitWith(exitDomainFail, err)
		return nil
	}

	var changed []string
	mode := policy.ModeWorkingTree
	if policyBase != "" && policyHead != "" {
		changed, err = policy.ChangedFilesDiff(".", policyBase, policyHead)
		mode = policy.ModeDiff
	} else {
		changed, err = policy.ChangedFilesWorkingTree(".")
	}
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}

	table := policy.DefaultGlobTable
	if cfg.Policy.OverridePath != "" {
		table, err = policy.LoadOverrides(cfg.Policy.OverridePath, table)
		if err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
	}

	opts := policy.CheckOptions{
		Mode:                mode,
		AllowCodeownersEdit: policyAllowCodeownersEdit || cfg.Security.AllowCodeownersOverride,
	}

	violations := policy.Check(table, role, changed, opts)
	out := policyOutput{OK: len(violations) == 0, Violations: violations}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
	} else if out.OK {
		fmt.Println("policy-guard: ok")
	} else {
		for _, v := range out.Violations {
			fmt.Printf("DENY: %s (%s)\n", v.Path, v.Reason)
		}
	}

	if !out.OK {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
