package policy

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/cmas-os/swarmctl/internal/registry"
)

// overrideFile is the TOML shape of a policy override document, letting
// an operator tighten or loosen DefaultGlobTable without a rebuild —
// grounded on the secrets allowlist's own TOML-table convention.
type overrideFile struct {
	StateFilePath  string              `toml:"state_file_path"`
	CodeownersPath string              `toml:"codeowners_path"`
	GlobalDeny     []string            `toml:"global_deny"`
	RoleAllow      map[string][]string `toml:"role_allow"`
	RoleDeny       map[string][]string `toml:"role_deny"`
}

// LoadOverrides reads a TOML file at path and merges it onto base: a
// present global_deny list replaces base's, and each present role key
// replaces that role's allow/deny list. Roles not mentioned in the file
// keep base's entries untouched.
func LoadOverrides(path string, base GlobTable) (GlobTable, error) {
	var doc overrideFile
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return base, fmt.Errorf("decode policy overrides %s: %w", path, err)
	}

	merged := GlobTable{
		StateFilePath:  base.StateFilePath,
		CodeownersPath: base.CodeownersPath,
		GlobalDeny:     base.GlobalDeny,
		RoleAllow:      copyRoleGlobs(base.RoleAllow),
		RoleDeny:       copyRoleGlobs(base.RoleDeny),
	}

	if doc.StateFilePath != "" {
		merged.StateFilePath = doc.StateFilePath
	}
	if doc.CodeownersPath != "" {
		merged.CodeownersPath = doc.CodeownersPath
	}
	if doc.GlobalDeny != nil {
		merged.GlobalDeny = doc.GlobalDeny
	}
	for roleName, globs := range doc.RoleAllow {
		role, err := registry.CanonicalizeRole(roleName)
		if err != nil {
			return base, fmt.Errorf("policy override role_allow has invalid role %q: %w", roleName, err)
		}
		merged.RoleAllow[role] = globs
	}
	for roleName, globs := range doc.RoleDeny {
		role, err := registry.CanonicalizeRole(roleName)
		if err != nil {
			return base, fmt.Errorf("policy override role_deny has invalid role %q: %w", roleName, err)
		}
		merged.RoleDeny[role] = globs
	}

	return merged, nil
}

func copyRoleGlobs(src map[registry.Role][]string) map[registry.Role][]string {
	out := make(map[registry.Role][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}
