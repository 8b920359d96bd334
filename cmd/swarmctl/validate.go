package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/validator"
)

var (
	validateRole        string
	validateRequireHMAC bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the full read-only consistency check over the state document",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateRole, "role", "", "acting role; must equal role_for_phase(next_phase) if set")
	validateCmd.Flags().BoolVar(&validateRequireHMAC, "require-hmac", false, "fail if state_hmac is absent")
}

type validateOutput struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	store := statestore.New(currentStatePath(), []byte(cfg.State.HMACKey.Value()))
	state, err := store.Load()
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("load state: %w", err))
		return nil
	}

	opts := validator.Options{HMACKey: []byte(cfg.State.HMACKey.Value()), Role: validateRole}
	result := validator.Validate(state, opts)

	if validateRequireHMAC && state.StateHMAC == "" {
		result.Errors = append(result.Errors, "require-hmac: state_hmac is absent")
	}

	out := validateOutput{OK: result.OK(), Errors: result.Errors, Warnings: result.Warnings}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			exitWith(exitInfraFailure, err)
			return nil
		}
	} else {
		for _, e := range out.Errors {
			fmt.Printf("ERROR: %s\n", e)
		}
		for _, w := range out.Warnings {
			fmt.Printf("WARN: %s\n", w)
		}
		if out.OK {
			fmt.Println("state is valid")
		}
	}

	if !out.OK {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
