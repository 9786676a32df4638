// Package gateway composes credential verification, principal resolution
// and store provisioning into the single Authenticate entry point the
// transport layers call.
package gateway

import (
	"context"
	"net/http"

	"github.com/akarpov87/identity-gateway/internal/gateway/isolation"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

// ClaimVerifier extracts a claim set from request headers.
type ClaimVerifier interface {
	Verify(ctx context.Context, h http.Header) (*models.ClaimSet, error)
}

// PrincipalResolver normalizes a claim set into a Principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, claims *models.ClaimSet) (*models.Principal, error)
}

// Provisioner guarantees the principal exists in every backend.
type Provisioner interface {
	Provision(ctx context.Context, p *models.Principal) (*models.Principal, []models.StoreFailure, error)
}

// Gateway is the composition root. One instance serves all transports.
type Gateway struct {
	verifier    ClaimVerifier
	resolver    PrincipalResolver
	provisioner Provisioner
	logger      logging.Logger
}

func New(v ClaimVerifier, r PrincipalResolver, p Provisioner, logger logging.Logger) *Gateway {
	return &Gateway{
		verifier:    v,
		resolver:    r,
		provisioner: p,
		logger:      logger.With("module", "gateway"),
	}
}

// Authenticate runs the full pipeline for one request: verify the
// credential, resolve the principal, provision it everywhere. A non-nil
// principal is always fully provisioned in the relational store; the
// returned failures list the secondary stores that could not be prepared
// this time.
func (g *Gateway) Authenticate(ctx context.Context, h http.Header) (*models.Principal, []models.StoreFailure, error) {
	claims, err := g.verifier.Verify(ctx, h)
	if err != nil {
		return nil, nil, err
	}

	p, err := g.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	p, failures, err := g.provisioner.Provision(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	g.logger.Debug(ctx, "request authenticated",
		"user_id", p.ID, "email", p.Email, "method", claims.Method, "degraded", len(failures) > 0)
	return p, failures, nil
}

// FilterFor returns the data-isolation predicate for the principal against
// the given store kind.
func (g *Gateway) FilterFor(p *models.Principal, kind models.StoreKind) isolation.Predicate {
	return isolation.FilterFor(p, kind)
}
