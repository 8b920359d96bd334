// Package feedback renders the markdown artifact an analyst writes back
// to a failing role: metadata, a summary, evidence references, an
// extracted failure snippet, required fixes, and exit criteria.
package feedback

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cmas-os/swarmctl/internal/swarmerr"
)

var failureLinePattern = regexp.MustCompile(`(?i)(FAIL|ERROR|Error:|AssertionError|Traceback|Unhandled|Exception)`)

// ExtractFailureSnippet returns the lines around the first failure
// marker in output, or the last few lines if no marker is found.
func ExtractFailureSnippet(output string, context int) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if failureLinePattern.MatchString(line) {
			start := i - context
			if start < 0 {
				start = 0
			}
			end := i + context + 1
			if end > len(lines) {
				end = len(lines)
			}
			return strings.Join(lines[start:end], "\n")
		}
	}
	tailStart := len(lines) - 20
	if tailStart < 0 {
		tailStart = 0
	}
	return strings.Join(lines[tailStart:], "\n")
}

// Artifact describes one feedback document to render and write.
type Artifact struct {
	TaskID        string
	Summary       string
	EvidencePaths []string
	FailureOutput string
	RequiredFixes []string
	ExitCriteria  []string
	Now           func() time.Time
	NewUUIDSuffix func() string
}

// ID returns the artifact's FB-<UTC>-<uuid8> identifier. An 8-character
// uuid suffix disambiguates two artifacts minted within the same UTC
// second, which a pure FB-<UTC> id cannot.
func (a Artifact) ID() string {
	nowFn := a.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	suffixFn := a.NewUUIDSuffix
	if suffixFn == nil {
		suffixFn = func() string { return uuid.NewString()[:8] }
	}
	return fmt.Sprintf("FB-%s-%s", nowFn().UTC().Format("20060102T150405Z"), suffixFn())
}

// Render produces the artifact's markdown contents.
func (a Artifact) Render(id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Feedback %s\n\n", id)
	b.WriteString("## Metadata\n")
	fmt.Fprintf(&b, "- task_id: %s\n\n", a.TaskID)
	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "%s\n\n", a.Summary)
	b.WriteString("## Evidence\n")
	for _, p := range a.EvidencePaths {
		fmt.Fprintf(&b, "- `%s`\n", p)
	}
	b.WriteString("\n## Failure Snippet\n```\n")
	b.WriteString(ExtractFailureSnippet(a.FailureOutput, 3))
	b.WriteString("\n```\n\n")
	b.WriteString("## Required Fixes\n")
	for _, f := range a.RequiredFixes {
		fmt.Fprintf(&b, "- [ ] %s\n", f)
	}
	b.WriteString("\n## Exit Criteria\n")
	for _, c := range a.ExitCriteria {
		fmt.Fprintf(&b, "- [ ] %s\n", c)
	}
	return b.String()
}

// DefaultPath returns tasks/feedback/<task_id>/fix_required.md under root.
func DefaultPath(root, taskID string) string {
	return filepath.Join(root, "tasks", "feedback", taskID, "fix_required.md")
}

// Write renders and writes the artifact to path, refusing to overwrite
// an existing file unless overwrite is true — feedback artifacts are
// immutable by default so an analyst's prior findings can't be
// silently clobbered by a retry.
func Write(path string, a Artifact, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return swarmerr.New(swarmerr.KindIO, "feedback artifact %s already exists and overwrite was not requested", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return swarmerr.New(swarmerr.KindIO, "create feedback directory: %v", err)
	}
	id := a.ID()
	return os.WriteFile(path, []byte(a.Render(id)), 0644)
}
