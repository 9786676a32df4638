// Package models holds the data types shared across the gateway: the
// resolved Principal, raw claim sets, API tokens, and per-store metadata.
package models

// Role of a principal. Anything unrecognized degrades to RoleUser.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Tier of a principal. Anything unrecognized degrades to TierFree.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Principal is the resolved identity for a single request.
//
// ID is a stable opaque UUID generated at first provisioning. Email is the
// unique natural key across all stores and the correlation field before an
// ID exists.
type Principal struct {
	ID    string
	Email string
	Role  Role
	Tier  Tier
}

// IsAdmin reports whether the principal bypasses data-isolation filters.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ParseRole maps a stored role string to a Role, defaulting to RoleUser.
func ParseRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ParseTier maps a stored tier string to a Tier, defaulting to TierFree.
func ParseTier(s string) Tier {
	if Tier(s) == TierPro {
		return TierPro
	}
	return TierFree
}
