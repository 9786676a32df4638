// Package tokens provides the read path over stored API tokens. Tokens are
// issued elsewhere; the gateway only looks them up by hash and records use.
package tokens

import (
	"context"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

type Repository interface {
	// FindByHash returns the token owner joined with the profile row, or
	// common.ErrorNotFound.
	FindByHash(ctx context.Context, hash []byte) (*models.TokenOwner, error)

	// TouchLastUsed sets last_used_at to now for the given token.
	TouchLastUsed(ctx context.Context, tokenID string) error
}
