// Package stores defines the adapter contract every storage backend
// implements for just-in-time provisioning.
package stores

import (
	"context"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// Adapter guarantees a usable principal exists in one backend.
//
// EnsureProvisioned must be idempotent: concurrent calls for the same
// never-seen principal resolve through the backend's own unique
// constraints or merge semantics, not application-level locking. The
// relational adapter additionally fills the principal's ID, role, and
// tier from the stored row; all other adapters must not mutate it.
type Adapter interface {
	Kind() models.StoreKind
	EnsureProvisioned(ctx context.Context, p *models.Principal) (created bool, err error)
}
