package models

import "time"

// APIToken is a stored long-lived credential. Only the SHA-256 hash of the
// raw token is persisted; the raw value exists client-side only.
type APIToken struct {
	ID         string
	Hash       []byte
	OwnerID    string
	Scopes     []string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
}

// TokenOwner is the result of a token-hash lookup joined with the owning
// profile row, so the API-token path resolves identity in a single query.
type TokenOwner struct {
	TokenID   string
	UserID    string
	Email     string
	Role      Role
	Tier      Tier
	Scopes    []string
	ExpiresAt *time.Time
}
