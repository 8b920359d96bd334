// Package orchestrator composes the lower-level checks into the single
// pipeline `swarmctl orchestrate` runs for one phase attempt: validate
// state, check the policy guard, run the quality guards, run-and-capture
// the phase's test command, and finally attempt the state transition.
// Any stage failing aborts the remaining stages.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/cmas-os/swarmctl/internal/guards"
	"github.com/cmas-os/swarmctl/internal/policy"
	"github.com/cmas-os/swarmctl/internal/registry"
	"github.com/cmas-os/swarmctl/internal/runner"
	"github.com/cmas-os/swarmctl/internal/statestore"
	"github.com/cmas-os/swarmctl/internal/swarmerr"
	"github.com/cmas-os/swarmctl/internal/transition"
	"github.com/cmas-os/swarmctl/internal/validator"
)

// Request describes one orchestrated phase attempt.
type Request struct {
	RepoRoot          string
	StatePath         string
	HMACStateKey      []byte
	HMACLogKey        []byte
	ActorRole         string
	ToPhase           string
	TaskID            string
	TestCommand       string
	EvidenceDir       string
	LogPath           string
	NoMocksDirs       []string
	NoPlaceholderDirs []string
	Now               func() time.Time
}

// StageResult records the pass/fail outcome of one pipeline stage.
type StageResult struct {
	Stage  string
	OK     bool
	Detail string
}

// Report is the full outcome of one orchestrate run.
type Report struct {
	Stages []StageResult
	State  *statestore.State
}

func (r *Report) record(stage string, ok bool, detail string) {
	r.Stages = append(r.Stages, StageResult{Stage: stage, OK: ok, Detail: detail})
}

// OK reports whether every stage passed.
func (r *Report) OK() bool {
	for _, s := range r.Stages {
		if !s.OK {
			return false
		}
	}
	return true
}

// Run executes the pipeline and returns a Report. It stops at the first
// failing stage; stages after it are simply absent from the report.
func Run(ctx context.Context, req Request) (*Report, error) {
	report := &Report{}
	store := statestore.New(req.StatePath, req.HMACStateKey)

	current, err := store.Load()
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindIO, "load state: %v", err)
	}

	valResult := validator.Validate(current, validator.Options{HMACKey: req.HMACStateKey, Role: req.ActorRole})
	if !valResult.OK() {
		report.record("validate", false, fmt.Sprintf("%v", valResult.Errors))
		return report, nil
	}
	report.record("validate", true, "")

	actorRole, err := registry.CanonicalizeRole(req.ActorRole)
	if err != nil {
		report.record("policy-guard", false, err.Error())
		return report, nil
	}
	changed, err := policy.ChangedFilesWorkingTree(req.RepoRoot)
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindIO, "list working tree changes: %v", err)
	}
	violations := policy.Check(policy.DefaultGlobTable, actorRole, changed, policy.CheckOptions{Mode: policy.ModeWorkingTree})
	if len(violations) > 0 {
		report.record("policy-guard", false, fmt.Sprintf("%d path violation(s)", len(violations)))
		return report, nil
	}
	report.record("policy-guard", true, "")

	mockFindings, err := guards.ScanNoMocks(req.RepoRoot, defaultOr(req.NoMocksDirs, []string{"tests"}))
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindIO, "scan for mocks: %v", err)
	}
	if len(mockFindings) > 0 {
		report.record("no-mocks-guard", false, fmt.Sprintf("%d forbidden mock pattern(s)", len(mockFindings)))
		return report, nil
	}
	report.record("no-mocks-guard", true, "")

	placeholderFindings, err := guards.ScanNoPlaceholders(req.RepoRoot, req.NoPlaceholderDirs)
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindIO, "scan for placeholders: %v", err)
	}
	if len(placeholderFindings) > 0 {
		report.record("no-placeholders-guard", false, fmt.Sprintf("%d placeholder token(s)", len(placeholderFindings)))
		return report, nil
	}
	report.record("no-placeholders-guard", true, "")

	captureResult, err := runner.RunAndCapture(ctx, runner.Request{
		Command:     req.TestCommand,
		Actor:       req.ActorRole,
		Phase:       req.ToPhase,
		TaskID:      req.TaskID,
		EvidenceDir: req.EvidenceDir,
		LogPath:     req.LogPath,
		HMACKey:     req.HMACLogKey,
		Now:         req.Now,
	})
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindCapture, "run-and-capture: %v", err)
	}
	if captureResult.ExitCode != 0 {
		report.record("run-and-capture", false, fmt.Sprintf("command exited %d", captureResult.ExitCode))
		return report, nil
	}
	report.record("run-and-capture", true, captureResult.RunID)

	engine := transition.New(store)
	next, err := engine.Execute(transition.Request{
		ActorRole:    req.ActorRole,
		ToPhase:      req.ToPhase,
		TaskID:       req.TaskID,
		EvidencePath: captureResult.EvidencePath,
		Now:          req.Now,
	})
	if err != nil {
		report.record("transition", false, err.Error())
		return report, nil
	}
	report.record("transition", true, "")
	report.State = next

	return report, nil
}

func defaultOr(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

var lastRunPattern = regexp.MustCompile(`(?m)^## Run: (\S+)\s*$`)
var evidenceLinePattern = regexp.MustCompile("`([^`]+)`")

// ParseLastRun scans a CI_LOGS.md-style evidence log from the end and
// returns the most recent run's id and evidence path, for commands that
// need to reference "whatever just ran" without re-running it.
func ParseLastRun(logPath string) (runID, evidencePath string, err error) {
	content, err := os.ReadFile(logPath)
	if err != nil {
		return "", "", err
	}
	matches := lastRunPattern.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return "", "", swarmerr.New(swarmerr.KindIO, "no run records found in %s", filepath.Base(logPath))
	}
	last := matches[len(matches)-1]
	runID = string(content[last[2]:last[3]])

	tail := string(content[last[1]:])
	evidenceIdx := regexp.MustCompile(`(?m)^- evidence: `).FindStringIndex(tail)
	if evidenceIdx == nil {
		return runID, "", nil
	}
	line := tail[evidenceIdx[1]:]
	if nl := regexp.MustCompile(`\n`).FindStringIndex(line); nl != nil {
		line = line[:nl[0]]
	}
	if m := evidenceLinePattern.FindStringSubmatch(line); m != nil {
		evidencePath = m[1]
	}
	return runID, evidencePath, nil
}
