// Package relational provisions the profile row: the critical store. The
// insert mints the canonical UUID every other backend keys off, so a
// failure here aborts authentication outright.
package relational

import (
	"context"
	"fmt"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/profiles"
)

// Adapter keys off the unique email column.
type Adapter struct {
	profiles profiles.Repository
}

func New(p profiles.Repository) *Adapter {
	return &Adapter{profiles: p}
}

func (a *Adapter) Kind() models.StoreKind {
	return models.StoreRelational
}

// EnsureProvisioned upserts the profile row and copies the stored id,
// role, and tier back into the principal. This is the only adapter allowed
// to mutate the principal, and the coordinator runs it alone before any
// other adapter starts.
func (a *Adapter) EnsureProvisioned(ctx context.Context, p *models.Principal) (bool, error) {
	stored, created, err := a.profiles.Upsert(ctx, p.Email)
	if err != nil {
		return false, fmt.Errorf("profile upsert: %w", err)
	}
	p.ID = stored.ID
	p.Role = stored.Role
	p.Tier = stored.Tier
	return created, nil
}
