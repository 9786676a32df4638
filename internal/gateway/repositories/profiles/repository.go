// Package profiles provides the repository over the relational profile
// table: the canonical source of the principal's id, role, and tier, and
// the write-back target for the photo-account credential.
package profiles

import (
	"context"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

type Repository interface {
	// Upsert creates the profile row for email if absent and returns the
	// stored principal plus whether the row was newly created. The insert
	// generates the canonical UUID every other store keys off.
	Upsert(ctx context.Context, email string) (*models.Principal, bool, error)

	// FindByEmail returns the stored principal for email, or
	// common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.Principal, error)

	// SetPhotoCredential stores the photo-account reference and the sealed
	// API key on the profile row.
	SetPhotoCredential(ctx context.Context, userID, accountID string, sealedKey []byte) error
}
