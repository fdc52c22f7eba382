package auth

import "strings"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

// CanonicalRole lower-cases a role name and drops a Spring-style "ROLE_"
// prefix. Unknown names are kept as they are, so the permission matrix can
// carry rows for roles the event policy does not use yet.
func CanonicalRole(role string) Role {
	value := strings.ToLower(strings.TrimSpace(role))
	return Role(strings.TrimPrefix(value, "role_"))
}

// NormalizeRole maps a raw role claim onto a known role. Anything
// unrecognised is a collaborator.
func NormalizeRole(role string) Role {
	switch canonical := CanonicalRole(role); canonical {
	case RoleAdmin, RoleCollaborator:
		return canonical
	default:
		return RoleCollaborator
	}
}

func HasRole(roles []string, allowed ...Role) bool {
	if len(allowed) == 0 {
		return false
	}
	for _, role := range roles {
		current := NormalizeRole(role)
		for _, candidate := range allowed {
			if current == candidate {
				return true
			}
		}
	}
	return false
}

// IsAdmin collapses a role set to the admin flag used by the event policy.
func IsAdmin(roles []string) bool {
	return HasRole(roles, RoleAdmin)
}

// NormalizeRoles returns the distinct normalized roles in input order.
func NormalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[Role]bool, len(roles))
	for _, role := range roles {
		if strings.TrimSpace(role) == "" {
			continue
		}
		normalized := NormalizeRole(role)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, string(normalized))
	}
	return out
}
