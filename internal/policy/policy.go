// Package policy implements the path-glob allow/deny engine run by
// `swarmctl policy-guard`: global deny globs that apply to every
// non-orchestrator actor, per-role allow globs, and per-role extra deny
// globs, evaluated either against the working tree or against a named
// diff range.
package policy

import (
	"path/filepath"

	"github.com/cmas-os/swarmctl/internal/registry"
)

// GlobTable holds the glob sets an actor's edits are checked against.
type GlobTable struct {
	// StateFilePath and CodeownersPath are checked ahead of GlobalDeny,
	// each behind its own override flag (§4.5 steps 1-2), rather than
	// as ordinary global-deny globs.
	StateFilePath  string
	CodeownersPath string
	GlobalDeny     []string
	RoleAllow      map[registry.Role][]string
	RoleDeny       map[registry.Role][]string
}

// Mode selects how the caller derived the changed-paths set, which in
// turn determines the default value of allow_state_edit (§4.5: true in
// diff mode, false in working-tree mode except for orchestrator).
type Mode int

const (
	ModeWorkingTree Mode = iota
	ModeDiff
)

// CheckOptions carries the per-invocation flags §4.5 checks against.
type CheckOptions struct {
	Mode                Mode
	AllowCodeownersEdit bool
}

// DefaultGlobTable is the built-in policy, mirroring the original
// implementation's hardcoded GLOBAL_DENY_GLOBS_AGENT / ROLE_ALLOW_GLOBS_AGENT
// / ROLE_DENY_GLOBS_AGENT dictionaries. A deployment may override this
// via a TOML file (see LoadOverrides). The state file and CODEOWNERS are
// intentionally absent from GlobalDeny: they are each gated by their own
// dedicated flag-checked rule (§4.5 steps 1-2), not a blanket global deny.
var DefaultGlobTable = GlobTable{
	StateFilePath:  "swarm_state.json",
	CodeownersPath: ".github/CODEOWNERS",
	GlobalDeny: []string{
		"tasks/logs/**",
		"tasks/evidence/**",
	},
	RoleAllow: map[registry.Role][]string{
		registry.RoleArchitect: {
			"SWARM_CONSTITUTION.md", "SWARM_ARCHITECTURE.md", "TASKS_CONTEXT.md",
			"docs/**", "config/personas/**", ".github/**", "swarm/**", "tasks/queue/**",
		},
		registry.RoleQA: {
			"tests/**", "vitest.config.ts", "playwright.config.ts",
			"package.json", "package-lock.json", "TASKS_CONTEXT.md",
		},
		registry.RoleBackend: {
			"app/**", "components/**", "data/**", "lib/**", "src/**",
			"package.json", "package-lock.json", "tsconfig.json",
		},
		registry.RoleFrontend: {
			"app/**", "components/**", "data/**", "public/**",
			"package.json", "package-lock.json", "tsconfig.json",
		},
		registry.RoleAnalyst: {
			"tasks/feedback/**", "tasks/reports/**", "tasks/completed/**", "docs/**",
		},
		registry.RoleOrchestrator: {
			"swarm_state.json", "tasks/logs/**", "tasks/evidence/**",
			"tasks/reports/**", "tasks/queue/**", "tasks/completed/**",
		},
	},
	RoleDeny: map[registry.Role][]string{
		registry.RoleBackend:  {"tests/**"},
		registry.RoleFrontend: {"tests/**"},
	},
}

// Violation records one path that an actor is not permitted to touch.
type Violation struct {
	Path   string
	Reason string
}

// Check evaluates every path in changed against table for actor and
// returns the violations found, applying §4.5's seven-step algorithm in
// order: state-file edit, CODEOWNERS edit, global deny (non-orchestrator
// only), "no allowlist for this role", "not in role allow", "in role
// deny", else allow.
func Check(table GlobTable, actor registry.Role, changed []string, opts CheckOptions) []Violation {
	allowStateEdit := opts.Mode == ModeDiff || actor == registry.RoleOrchestrator

	var violations []Violation
	for _, path := range changed {
		if reason, denied := isDenied(table, actor, path, opts, allowStateEdit); denied {
			violations = append(violations, Violation{Path: path, Reason: reason})
		}
	}
	return violations
}

func isDenied(table GlobTable, actor registry.Role, path string, opts CheckOptions, allowStateEdit bool) (string, bool) {
	if table.StateFilePath != "" && path == table.StateFilePath && actor != registry.RoleOrchestrator && !allowStateEdit {
		return "state file may only be written by the orchestrator or in diff mode", true
	}
	if table.CodeownersPath != "" && path == table.CodeownersPath && !opts.AllowCodeownersEdit {
		return "CODEOWNERS is protected unless allow_codeowners_edit is set", true
	}
	if actor != registry.RoleOrchestrator && matchesAny(table.GlobalDeny, path) {
		return "matches a globally protected path", true
	}

	allow, hasAllowlist := table.RoleAllow[actor]
	if !hasAllowlist {
		return "role has no configured allowlist", true
	}
	if !matchesAny(allow, path) {
		return "not within role's allowed paths", true
	}
	if deny, ok := table.RoleDeny[actor]; ok && matchesAny(deny, path) {
		return "matches a role-specific deny path", true
	}
	return "", false
}

// matchesAny reports whether path matches any of the given glob
// patterns. Patterns ending in "/**" match any path under that
// directory; other patterns use filepath.Match semantics.
func matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, path string) bool {
	if dir, ok := doubleStarPrefix(pattern); ok {
		return path == dir || (len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == '/')
	}
	ok, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	return ok
}

// doubleStarPrefix reports whether pattern has the form "dir/**" and, if
// so, returns "dir".
func doubleStarPrefix(pattern string) (string, bool) {
	const suffix = "/**"
	if len(pattern) > len(suffix) && pattern[len(pattern)-len(suffix):] == suffix {
		return pattern[:len(pattern)-len(suffix)], true
	}
	return "", false
}
