// Package resolver normalizes a verified claim set into a canonical
// Principal. Role and tier live in the relational store, not in the
// external token, so resolution may perform a single profile lookup.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// ProfileLookup is the read-only slice of the profiles repository the
// resolver needs.
type ProfileLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.Principal, error)
}

type Resolver struct {
	profiles ProfileLookup
}

func New(profiles ProfileLookup) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve turns a claim set into a Principal. When the claim set already
// carries role and tier (the API-token path joins the profile row) no
// lookup is performed. A never-seen email resolves to the pre-provisioning
// defaults: no ID, role user, tier free.
func (r *Resolver) Resolve(ctx context.Context, claims *models.ClaimSet) (*models.Principal, error) {
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: claim set carries no email", common.ErrUnauthenticated)
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))

	if claims.Role != "" && claims.Tier != "" {
		return &models.Principal{
			ID:    claims.Subject,
			Email: email,
			Role:  claims.Role,
			Tier:  claims.Tier,
		}, nil
	}

	p, err := r.profiles.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.Principal{
				Email: email,
				Role:  models.RoleUser,
				Tier:  models.TierFree,
			}, nil
		}
		return nil, fmt.Errorf("profile lookup: %w", err)
	}
	return p, nil
}
