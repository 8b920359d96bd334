// Package runner implements the Command Runner: it executes a shell
// command, captures combined stdout+stderr, hands the output to the
// Evidence Ledger, and returns the command's own exit code — reserving
// exit code 2 for a capture-path failure distinct from the command's
// own failure.
package runner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"time"

	"github.com/cmas-os/swarmctl/internal/ledger"
)

// CaptureFailureExitCode is the exit code the run-and-capture command
// uses when RunAndCapture returns an error because the capture path
// itself failed (command start, evidence write, HMAC chain append), as
// distinct from the executed command's own non-zero exit.
const CaptureFailureExitCode = 2

// Request describes one run-and-capture invocation.
type Request struct {
	Command     string
	Actor       string
	Phase       string
	TaskID      string
	EvidenceDir string
	LogPath     string
	HMACKey     []byte
	Now         func() time.Time
}

// Result is what RunAndCapture returns on success (including a non-zero
// command exit code, which is not itself an error).
type Result struct {
	ExitCode     int
	EvidencePath string
	RunID        string
	ChainHMAC    string
}

// RunAndCapture executes req.Command through the shell, captures its
// combined output, writes a content-addressed evidence blob, and appends
// a chained markdown record to req.LogPath.
func RunAndCapture(ctx context.Context, req Request) (*Result, error) {
	nowFn := req.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", req.Command)
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := nowFn()
	runErr := cmd.Run()
	CaptureDuration.Observe(nowFn().Sub(start).Seconds())
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			CapturesTotal.WithLabelValues("capture_failure").Inc()
			return nil, fmt.Errorf("capture: failed to execute command: %w", runErr)
		}
	}

	now := nowFn()
	output := buf.Bytes()
	sum := sha256.Sum256(output)
	runID := ledger.NewRunID(now, hex.EncodeToString(sum[:]))

	evidencePath, digest, err := ledger.WriteEvidence(req.EvidenceDir, runID, output)
	if err != nil {
		CapturesTotal.WithLabelValues("capture_failure").Inc()
		return nil, fmt.Errorf("capture: write evidence: %w", err)
	}

	block := ledger.RenderBlock(ledger.Run{
		ID:           runID,
		TimestampUTC: now.UTC().Format("2006-01-02T15:04:05Z"),
		Actor:        req.Actor,
		Phase:        req.Phase,
		TaskID:       req.TaskID,
		Command:      req.Command,
		ExitCode:     exitCode,
		SHA256:       digest,
		EvidencePath: evidencePath,
		Output:       output,
	})

	chainHMAC, err := ledger.AppendBlock(req.LogPath, req.HMACKey, block)
	if err != nil {
		CapturesTotal.WithLabelValues("capture_failure").Inc()
		return nil, fmt.Errorf("capture: append evidence log: %w", err)
	}

	outcome := "command_success"
	if exitCode != 0 {
		outcome = "command_failure"
	}
	CapturesTotal.WithLabelValues(outcome).Inc()

	return &Result{ExitCode: exitCode, EvidencePath: evidencePath, RunID: runID, ChainHMAC: chainHMAC}, nil
}
