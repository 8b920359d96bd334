// Package config provides configuration loading for swarmctl.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// LoadWithFile loads configuration from a YAML file, then overrides it
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SWARMCTL_STATE_PATH, SWARMCTL_CI_TOKEN, etc.)
//  2. YAML config file (.swarm/config.yaml by default)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty,
// uses the default path ".swarm/config.yaml" relative to the working
// directory, and it is fine for that file not to exist.
//
// # Security Considerations
//
// File Permissions: when present, the configuration file MUST have 0600
// or 0400 permissions (owner read[, write] only); files with weaker
// permissions are rejected, since this file may carry HMAC keys and a
// CI token.
//
// File Size Limit: configuration files larger than 1MB are rejected.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separators and the SWARMCTL_
// prefix. The transformer maps them to YAML field names:
//
//	SWARMCTL_STATE_PATH      -> state.path
//	SWARMCTL_CI_TOKEN        -> ci.token
//
// The spec's own variable names (SWARM_STATE_HMAC_KEY, SWARM_LOG_HMAC_KEY,
// CMAS_ALLOW_CODEOWNERS_EDIT, GITHUB_TOKEN/GH_TOKEN, GITHUB_API,
// GITHUB_REPO, GITHUB_BRANCH) are also honored, taking precedence over
// their SWARMCTL_* equivalents above.
//	SWARMCTL_LEDGER_LOG_PATH -> ledger.log_path
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		configPath = filepath.Join(".swarm", "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("SWARMCTL_", ".", func(s string) string {
		// SWARMCTL_LEDGER_LOG_PATH -> ledger.log_path
		trimmed := strings.TrimPrefix(s, "SWARMCTL_")
		lower := strings.ToLower(trimmed)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// The spec's own variable names take precedence over the SWARMCTL_*
	// namespace above, so either naming works.
	stringMappings := []struct {
		koanfKey string
		keys     []string
	}{
		{"state.hmac_key", []string{"SWARM_STATE_HMAC_KEY"}},
		{"ledger.hmac_key", []string{"SWARM_LOG_HMAC_KEY"}},
		{"ci.token", []string{"GITHUB_TOKEN", "GH_TOKEN"}},
		{"ci.api", []string{"GITHUB_API"}},
		{"ci.repo", []string{"GITHUB_REPO"}},
		{"ci.branch", []string{"GITHUB_BRANCH"}},
	}
	for _, mapping := range stringMappings {
		if value := firstEnv(mapping.keys...); value != "" {
			if err := k.Set(mapping.koanfKey, value); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", mapping.keys[0], err)
			}
		}
	}
	if value := os.Getenv("CMAS_ALLOW_CODEOWNERS_EDIT"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid CMAS_ALLOW_CODEOWNERS_EDIT %q: %w", value, err)
		}
		if err := k.Set("security.allow_codeowners_override", parsed); err != nil {
			return nil, fmt.Errorf("failed to apply CMAS_ALLOW_CODEOWNERS_EDIT: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateConfigFileProperties checks file permissions and size. Only
// runs if the file exists; takes FileInfo from an already-opened file
// descriptor to avoid a TOCTOU race between stat and open.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for fields a partial YAML file or
// environment left unset.
func applyDefaults(cfg *Config) {
	if cfg.State.Path == "" {
		cfg.State.Path = "swarm_state.json"
	}
	if cfg.Ledger.LogPath == "" {
		cfg.Ledger.LogPath = filepath.Join("tasks", "logs", "CI_LOGS.md")
	}
	if cfg.Ledger.EvidenceDir == "" {
		cfg.Ledger.EvidenceDir = filepath.Join("tasks", "evidence")
	}
	if len(cfg.Guards.NoMocksDirs) == 0 {
		cfg.Guards.NoMocksDirs = []string{"tests"}
	}
	if len(cfg.Guards.NoPlaceholderDirs) == 0 {
		cfg.Guards.NoPlaceholderDirs = []string{"app", "components", "data", "lib", "src"}
	}
	if cfg.CI.PollInterval.Duration() == 0 {
		cfg.CI.PollInterval = Duration(15 * time.Second)
	}
	if cfg.CI.Timeout.Duration() == 0 {
		cfg.CI.Timeout = Duration(30 * time.Minute)
	}
	if cfg.CI.MergeMethod == "" {
		cfg.CI.MergeMethod = "squash"
	}
}
