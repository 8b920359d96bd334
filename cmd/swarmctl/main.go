// Package main implements the swarmctl CLI: one Cobra subcommand per
// workflow-engine component (validate, transition, policy-guard,
// capture, run-and-capture, state-diff-guard, ci-gate,
// set-execution-lane, migrate-state, orchestrate).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/cmas-os/swarmctl/internal/config"
	"github.com/cmas-os/swarmctl/internal/logging"
)

// Exit codes shared by every subcommand, per spec.md §6.3.
const (
	exitOK           = 0
	exitDomainFail   = 1
	exitInfraFailure = 2
)

var (
	version = "dev"

	statePath string
	jsonOut   bool
	logLevel  string

	cfg *config.Config
	log *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitDomainFail)
	}
}

var rootCmd = &cobra.Command{
	Use:     "swarmctl",
	Short:   "Workflow enforcement engine for multi-role dev swarms",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if statePath != "" {
			cfg.State.Path = statePath
		}

		logCfg := logging.NewDefaultConfig()
		if lvl, err := logging.LevelFromString(logLevel); err == nil {
			logCfg.Level = lvl
		} else {
			logCfg.Level = zapcore.InfoLevel
		}
		var err error
		log, err = logging.NewLogger(logCfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "path to swarm_state.json (default: SWARMCTL_STATE_PATH or swarm_state.json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(transitionCmd)
	rootCmd.AddCommand(policyGuardCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(runAndCaptureCmd)
	rootCmd.AddCommand(stateDiffGuardCmd)
	rootCmd.AddCommand(ciGateCmd)
	rootCmd.AddCommand(setExecutionLaneCmd)
	rootCmd.AddCommand(migrateStateCmd)
	rootCmd.AddCommand(orchestrateCmd)
}

// exitWith logs err (if non-nil) at Error level and calls os.Exit(code).
func exitWith(code int, err error) {
	if err != nil {
		log.Error(rootCmd.Context(), err.Error())
		fmt.Fprintln(os.Stderr, err)
	}
	_ = log.Sync()
	os.Exit(code)
}

func currentStatePath() string {
	if statePath != "" {
		return statePath
	}
	return cfg.State.Path
}
