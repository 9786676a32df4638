// Package common defines shared sentinel errors used across the gateway.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Credential errors (missing, malformed, or rejected).
	ErrUnauthenticated = errors.New("unauthenticated")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
	ErrScopeMissing = errors.New("required scope missing")

	// Key-set errors (transient, callers may retry).
	ErrKeySetUnavailable = errors.New("key set unavailable")

	// Provisioning errors. A critical store failure aborts authentication;
	// everything else is carried as per-store metadata.
	ErrProvisioningCritical = errors.New("critical store provisioning failed")

	// Schema errors. Fatal means the process must not accept traffic.
	ErrSchemaFatal = errors.New("critical schema object missing")
)
