// Package authroles maps identity-provider group names to gate role
// identifiers.
package authroles

import (
	"sort"

	"github.com/filegate/filegate/internal/ports"
)

// StaticRoleMapper translates provider groups into roles via a fixed
// alias table. Groups without an alias are dropped; DefaultRole, when
// set, is granted to any identity with at least one group.
type StaticRoleMapper struct {
	// Aliases maps a provider group name to a role identifier, e.g.
	// "wp-admins" -> "administrator".
	Aliases map[string]string

	// DefaultRole is granted alongside mapped roles when non-empty.
	DefaultRole string
}

var _ ports.RoleMapper = StaticRoleMapper{}

func (m StaticRoleMapper) Map(groups []string) []string {
	seen := map[string]bool{}
	for _, g := range groups {
		if role, ok := m.Aliases[g]; ok && role != "" {
			seen[role] = true
		}
	}
	if m.DefaultRole != "" && len(groups) > 0 {
		seen[m.DefaultRole] = true
	}
	if len(seen) == 0 {
		return nil
	}
	roles := make([]string, 0, len(seen))
	for r := range seen {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// PassThroughRoleMapper treats provider group names as role identifiers
// verbatim, for hosts whose IdP already issues role-shaped groups.
type PassThroughRoleMapper struct{}

var _ ports.RoleMapper = PassThroughRoleMapper{}

func (PassThroughRoleMapper) Map(groups []string) []string {
	if len(groups) == 0 {
		return nil
	}
	return append([]string(nil), groups...)
}
