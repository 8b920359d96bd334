package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmas-os/swarmctl/internal/ledger"
)

var (
	captureInput       string
	captureCommand     string
	captureExitCode    int
	captureActor       string
	capturePhase       string
	captureTaskID      string
	captureOut         string
	captureEvidenceDir string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record an already-executed command's output into the evidence ledger",
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().StringVar(&captureInput, "input", "-", "path to captured output, or - for stdin")
	captureCmd.Flags().StringVar(&captureCommand, "command", "", "the command string that produced the output, for the ledger record")
	captureCmd.Flags().IntVar(&captureExitCode, "exit-code", 0, "exit code the command returned")
	captureCmd.Flags().StringVar(&captureActor, "actor", "", "acting role")
	captureCmd.Flags().StringVar(&capturePhase, "phase", "", "phase the capture belongs to")
	captureCmd.Flags().StringVar(&captureTaskID, "task-id", "", "task identifier")
	captureCmd.Flags().StringVar(&captureOut, "out", "", "ledger markdown log path override")
	captureCmd.Flags().StringVar(&captureEvidenceDir, "evidence-dir", "", "evidence blob directory override")
}

type captureOutput struct {
	RunID        string `json:"run_id"`
	EvidencePath string `json:"evidence_path"`
	ChainHMAC    string `json:"chain_hmac"`
}

func runCapture(cmd *cobra.Command, args []string) error {
	var output []byte
	var err error
	if captureInput == "-" {
		output, err = io.ReadAll(os.Stdin)
	} else {
		output, err = os.ReadFile(captureInput)
	}
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("read input: %w", err))
		return nil
	}

	evidenceDir := captureEvidenceDir
	if evidenceDir == "" {
		evidenceDir = cfg.Ledger.EvidenceDir
	}
	logPath := captureOut
	if logPath == "" {
		logPath = cfg.Ledger.LogPath
	}

	now := time.Now()
	sum := sha256.Sum256(output)
	runID := ledger.NewRunID(now, hex.EncodeToString(sum[:]))

	evidencePath, digest, err := ledger.WriteEvidence(evidenceDir, runID, output)
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("write evidence: %w", err))
		return nil
	}

	block := ledger.RenderBlock(ledger.Run{
		ID:           runID,
		TimestampUTC: now.UTC().Format("2006-01-02T15:04:05Z"),
		Actor:        captureActor,
		Phase:        capturePhase,
		TaskID:       captureTaskID,
		Command:      captureCommand,
		ExitCode:     captureExitCode,
		SHA256:       digest,
		EvidencePath: evidencePath,
		Output:       output,
	})

	chainHMAC, err := ledger.AppendBlock(logPath, []byte(cfg.Ledger.HMACKey.Value()), block)
	if err != nil {
		exitWith(exitInfraFailure, fmt.Errorf("append evidence log: %w", err))
		return nil
	}

	out := captureOutput{RunID: runID, EvidencePath: evidencePath, ChainHMAC: chainHMAC}
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Printf("captured %s -> %s\n", runID, evidencePath)

	if captureExitCode != 0 {
		exitWith(exitDomainFail, nil)
	}
	return nil
}
