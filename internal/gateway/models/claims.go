package models

import "time"

// AuthMethod identifies which credential path produced a ClaimSet.
type AuthMethod string

const (
	// MethodProxy is a signed assertion injected by the reverse proxy.
	MethodProxy AuthMethod = "proxy"
	// MethodAPIToken is a long-lived hashed API token.
	MethodAPIToken AuthMethod = "api_token"
	// MethodFallback is the operator-configured internal-network identity.
	MethodFallback AuthMethod = "fallback"
)

// ClaimSet is the normalized output of token verification, before identity
// resolution. Role and Tier are only set when the credential itself carries
// them (the API-token lookup joins the profile row); the resolver falls
// back to a profile lookup otherwise.
type ClaimSet struct {
	Email     string
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	Method    AuthMethod

	Role Role
	Tier Tier
}
