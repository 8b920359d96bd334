// Package config provides configuration loading for swarmctl.
//
// Configuration is loaded from environment variables with sensible
// defaults, optionally layered on top of a YAML file. It supports the
// state store, evidence ledger, policy engine, and CI-gate settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete swarmctl configuration.
type Config struct {
	State    StateConfig    `koanf:"state"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Policy   PolicyConfig   `koanf:"policy"`
	Guards   GuardsConfig   `koanf:"guards"`
	CI       CIConfig       `koanf:"ci"`
	Security SecurityConfig `koanf:"security"`
}

// StateConfig controls where and how swarm_state.json is read/written.
type StateConfig struct {
	// Path is the state document's location. Default: swarm_state.json
	// in the current working directory.
	Path string `koanf:"path"`

	// HMACKey signs state_hmac. Empty disables tamper-evidence checks.
	HMACKey Secret `koanf:"hmac_key"`
}

// LedgerConfig controls the evidence ledger: the append-only markdown
// run log and the content-addressed raw output blobs it references.
type LedgerConfig struct {
	// LogPath is the markdown run-record file. Default: tasks/logs/CI_LOGS.md
	LogPath string `koanf:"log_path"`

	// EvidenceDir holds content-addressed raw output blobs.
	// Default: tasks/evidence
	EvidenceDir string `koanf:"evidence_dir"`

	// HMACKey signs the hash chain linking consecutive run blocks.
	HMACKey Secret `koanf:"hmac_key"`
}

// PolicyConfig controls the path-glob allow/deny engine.
type PolicyConfig struct {
	// OverridePath, if set, is a TOML file merged onto the built-in
	// glob tables (see internal/policy.LoadOverrides).
	OverridePath string `koanf:"override_path"`
}

// GuardsConfig controls which directories the quality guards scan.
type GuardsConfig struct {
	NoMocksDirs       []string `koanf:"no_mocks_dirs"`
	NoPlaceholderDirs []string `koanf:"no_placeholder_dirs"`
}

// CIConfig controls the CI-gate waiter's GitHub integration.
type CIConfig struct {
	// Token is a GitHub personal access token or installation token.
	Token Secret `koanf:"token"`

	// Repo is "owner/name".
	Repo string `koanf:"repo"`

	// API, if set, is a GitHub Enterprise API base URL. Empty means
	// github.com.
	API string `koanf:"api"`

	// Branch overrides the branch used to look up required status
	// checks; empty means derive it from the pull request's base ref.
	Branch string `koanf:"branch"`

	// RequiredChecks is loaded with the rest of the CI settings, but
	// ci-gate does not consult it: required checks always come from
	// branch protection, falling back to cigate.DefaultRequiredChecks.
	RequiredChecks []string `koanf:"required_checks"`

	PollInterval Duration `koanf:"poll_interval"`
	Timeout      Duration `koanf:"timeout"`

	Approve     bool   `koanf:"approve"`
	Merge       bool   `koanf:"merge"`
	MergeMethod string `koanf:"merge_method"`
}

// SecurityConfig holds settings that affect the policy engine's default
// behavior.
type SecurityConfig struct {
	// AllowCodeownersOverride, when true, is policy-guard's default for
	// allow_codeowners_edit (§4.5): it permits edits to CODEOWNERS that
	// would otherwise be denied, without requiring --allow-codeowners-edit
	// on every invocation.
	AllowCodeownersOverride bool `koanf:"allow_codeowners_override"`
}

// Load builds a Config from environment variables with defaults, with
// no YAML file involved. Use LoadWithFile to layer a YAML file beneath
// the environment.
//
// Secrets and GitHub settings honor the spec's own variable names
// first, falling back to an SWARMCTL_*-namespaced equivalent so a
// deployment can set either:
//
// State:
//   - SWARMCTL_STATE_PATH (default: swarm_state.json)
//   - SWARM_STATE_HMAC_KEY, else SWARMCTL_STATE_HMAC_KEY
//
// Ledger:
//   - SWARMCTL_LEDGER_LOG_PATH (default: tasks/logs/CI_LOGS.md)
//   - SWARMCTL_LEDGER_EVIDENCE_DIR (default: tasks/evidence)
//   - SWARM_LOG_HMAC_KEY, else SWARMCTL_LEDGER_HMAC_KEY
//
// Policy:
//   - SWARMCTL_POLICY_OVERRIDE_PATH
//
// Guards:
//   - SWARMCTL_GUARDS_NO_MOCKS_DIRS (comma-separated, default: tests)
//   - SWARMCTL_GUARDS_NO_PLACEHOLDER_DIRS (comma-separated, default: app,components,data,lib,src)
//
// CI:
//   - GITHUB_TOKEN, else GH_TOKEN, else SWARMCTL_CI_TOKEN
//   - GITHUB_REPO (owner/name), else SWARMCTL_CI_REPO
//   - GITHUB_API (enterprise base URL), else SWARMCTL_CI_API
//   - GITHUB_BRANCH, else SWARMCTL_CI_BRANCH
//   - SWARMCTL_CI_REQUIRED_CHECKS (comma-separated)
//   - SWARMCTL_CI_POLL_INTERVAL (default: 15s)
//   - SWARMCTL_CI_TIMEOUT (default: 30m)
//   - SWARMCTL_CI_APPROVE (default: false)
//   - SWARMCTL_CI_MERGE (default: false)
//   - SWARMCTL_CI_MERGE_METHOD (default: squash)
//
// Security:
//   - CMAS_ALLOW_CODEOWNERS_EDIT, else SWARMCTL_SECURITY_ALLOW_CODEOWNERS_OVERRIDE (default: false)
func Load() *Config {
	cfg := &Config{
		State: StateConfig{
			Path:    getEnvString("SWARMCTL_STATE_PATH", "swarm_state.json"),
			HMACKey: Secret(firstEnv("SWARM_STATE_HMAC_KEY", "SWARMCTL_STATE_HMAC_KEY")),
		},
		Ledger: LedgerConfig{
			LogPath:     getEnvString("SWARMCTL_LEDGER_LOG_PATH", filepath.Join("tasks", "logs", "CI_LOGS.md")),
			EvidenceDir: getEnvString("SWARMCTL_LEDGER_EVIDENCE_DIR", filepath.Join("tasks", "evidence")),
			HMACKey:     Secret(firstEnv("SWARM_LOG_HMAC_KEY", "SWARMCTL_LEDGER_HMAC_KEY")),
		},
		Policy: PolicyConfig{
			OverridePath: getEnvString("SWARMCTL_POLICY_OVERRIDE_PATH", ""),
		},
		Guards: GuardsConfig{
			NoMocksDirs:       getEnvStringSlice("SWARMCTL_GUARDS_NO_MOCKS_DIRS", []string{"tests"}),
			NoPlaceholderDirs: getEnvStringSlice("SWARMCTL_GUARDS_NO_PLACEHOLDER_DIRS", []string{"app", "components", "data", "lib", "src"}),
		},
		CI: CIConfig{
			Token:          Secret(firstEnv("GITHUB_TOKEN", "GH_TOKEN", "SWARMCTL_CI_TOKEN")),
			Repo:           firstEnv("GITHUB_REPO", "SWARMCTL_CI_REPO"),
			API:            firstEnv("GITHUB_API", "SWARMCTL_CI_API"),
			Branch:         firstEnv("GITHUB_BRANCH", "SWARMCTL_CI_BRANCH"),
			RequiredChecks: getEnvStringSlice("SWARMCTL_CI_REQUIRED_CHECKS", nil),
			PollInterval:   Duration(getEnvDuration("SWARMCTL_CI_POLL_INTERVAL", 15*time.Second)),
			Timeout:        Duration(getEnvDuration("SWARMCTL_CI_TIMEOUT", 30*time.Minute)),
			Approve:        getEnvBool("SWARMCTL_CI_APPROVE", false),
			Merge:          getEnvBool("SWARMCTL_CI_MERGE", false),
			MergeMethod:    getEnvString("SWARMCTL_CI_MERGE_METHOD", "squash"),
		},
		Security: SecurityConfig{
			AllowCodeownersOverride: firstEnvBool(false, "CMAS_ALLOW_CODEOWNERS_EDIT", "SWARMCTL_SECURITY_ALLOW_CODEOWNERS_OVERRIDE"),
		},
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.State.Path == "" {
		return errors.New("state.path must not be empty")
	}
	if err := validatePath(c.State.Path); err != nil {
		return fmt.Errorf("invalid state.path: %w", err)
	}
	if err := validatePath(c.Ledger.LogPath); err != nil {
		return fmt.Errorf("invalid ledger.log_path: %w", err)
	}
	if err := validatePath(c.Ledger.EvidenceDir); err != nil {
		return fmt.Errorf("invalid ledger.evidence_dir: %w", err)
	}

	if c.CI.Repo != "" {
		if !strings.Contains(c.CI.Repo, "/") {
			return fmt.Errorf("ci.repo must be in owner/name form, got %q", c.CI.Repo)
		}
	}
	if c.CI.PollInterval.Duration() <= 0 {
		return errors.New("ci.poll_interval must be positive")
	}
	if c.CI.Timeout.Duration() <= 0 {
		return errors.New("ci.timeout must be positive")
	}
	switch c.CI.MergeMethod {
	case "squash", "merge", "rebase":
	default:
		return fmt.Errorf("ci.merge_method must be one of squash, merge, rebase; got %q", c.CI.MergeMethod)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv returns the value of the first of keys that is set and
// non-empty, checking them in order; it returns "" if none are set.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// firstEnvBool is firstEnv's boolean counterpart.
func firstEnvBool(defaultValue bool, keys ...string) bool {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				return parsed
			}
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := make([]string, 0)
		for _, part := range splitAndTrim(value, ",") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		result = append(result, strings.TrimSpace(part))
	}
	return result
}

// validatePath checks if a path is safe (no path traversal).
func validatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}
	if filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		origDepth := strings.Count(path, string(filepath.Separator))
		cleanDepth := strings.Count(clean, string(filepath.Separator))
		if cleanDepth < origDepth-1 {
			return fmt.Errorf("path traversal detected: %s (resolves to %s)", path, clean)
		}
	}
	return nil
}
