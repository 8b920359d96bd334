package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/cigate"
)

var (
	ciGatePR             int
	ciGateTimeoutSeconds int
	ciGatePollSeconds    int
	ciGateApprove        bool
	ciGateMerge          bool
	ciGateMergeMethod    string
)

var ciGateCmd = &cobra.Command{
	Use:   "ci-gate",
	Short: "Poll a pull request's required checks until green, failed, or timed out",
	RunE:  runCIGate,
}

func init() {
	ciGateCmd.Flags().IntVar(&ciGatePR, "pr", 0, "pull request number (required)")
	ciGateCmd.Flags().IntVar(&ciGateTimeoutSeconds, "timeout-seconds", 0, "overall timeout in seconds (default from SWARMCTL_CI_TIMEOUT)")
	ciGateCmd.Flags().IntVar(&ciGatePollSeconds, "poll-seconds", 0, "poll interval in seconds (default from SWARMCTL_CI_POLL_INTERVAL)")
	ciGateCmd.Flags().BoolVar(&ciGateApprove, "approve", false, "approve the PR once required checks are green")
	ciGateCmd.Flags().BoolVar(&ciGateMerge, "merge", false, "merge the PR once required checks are green (and approved, if requested)")
	ciGateCmd.Flags().StringVar(&ciGateMergeMethod, "merge-method", "", "merge method: squash, merge, or rebase")
	ciGateCmd.MarkFlagRequired("pr")
}

type ciGateOutput struct {
	OK       bool                `json:"ok"`
	Summary  cigate.CheckSummary `json:"summary"`
	HeadSHA  string              `json:"head_sha"`
	Approved bool                `json:"approved"`
	Merged   bool                `json:"merged"`
	Error    string              `json:"error,omitempty"`
}

func runCIGate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := cigate.NewClient(ctx, cfg.CI.Token, cfg.CI.API)
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}

	repo, err := cigate.DetectRepo(cfg.CI.Repo, os.Getenv("GITHUB_OWNER"), os.Getenv("GITHUB_REPO_NAME"))
	if err != nil {
		exitWith(exitInfraFailure, err)
		return nil
	}

	timeout := cfg.CI.Timeout.Duration()
	if ciGateTimeoutSeconds > 0 {
		timeout = time.Duration(ciGateTimeoutSeconds) * time.Second
	}
	poll := cfg.CI.PollInterval.Duration()
	if ciGatePollSeconds > 0 {
		poll = time.Duration(ciGatePollSeconds) * time.Second
	}
	mergeMethod := cfg.CI.MergeMethod
	if ciGateMergeMethod != "" {
		mergeMethod = ciGateMergeMethod
	}

	result, err := cigate.Wait(ctx, client, cigate.WaitOptions{
		Repo:         repo,
		PRNumber:     ciGatePR,
		Timeout:      timeout,
		PollInterval: poll,
		Approve:      ciGateApprove || cfg.CI.Approve,
		Merge:        ciGateMerge || cfg.CI.Merge,
		MergeMethod:  mergeMethod,
		Branch:       cfg.CI.Branch,
	})

	out := ciGateOutput{}
	if err != nil {
		out.Error = err.Error()
	} else {
		out.OK = result.Summary.AllGreen()
		out.Summary = result.Summary
		out.HeadSHA = result.HeadSHA
		out.Approved = result.Approved
		out.Merged = result.Merged
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			exitWith(exitInfraFailure, encErr)
			return nil
		}
	} else if err != nil {
		fmt.Println("ci-gate:", err)
	} else if out.OK {
		fmt.Println("ci-gate: all required checks green")
	} else {
		fmt.Printf("ci-gate: failed=%v missing=%v pending=%v\n", out.Summary.Failed, out.Summary.Missing, out.Summary.Pending)
	}

	if err != nil {
		exitWith(exitInfraFailure, nil)
	} else if !out.OK {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
