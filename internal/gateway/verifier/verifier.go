// Package verifier validates inbound identity assertions. Three credential
// paths are supported, checked in order: the reverse-proxy-injected signed
// assertion, a long-lived API token presented as a bearer credential, and
// an operator-configured fallback identity for private deployments where
// requests arrive over the internal network with no external headers at all.
package verifier

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/keyset"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

// DefaultAssertionHeader is where the tunnel places the signed assertion.
const DefaultAssertionHeader = "Cf-Access-Jwt-Assertion"

// TokenRepository is the read path over stored API tokens.
type TokenRepository interface {
	// FindByHash returns the owner joined with the profile row for the
	// given token hash, or common.ErrorNotFound.
	FindByHash(ctx context.Context, hash []byte) (*models.TokenOwner, error)
	// TouchLastUsed records that the token was just used.
	TouchLastUsed(ctx context.Context, tokenID string) error
}

// Config holds the verifier's trust settings.
type Config struct {
	// AssertionHeader carrying the proxy assertion. Defaults to
	// DefaultAssertionHeader when empty.
	AssertionHeader string
	// Audience the assertion must be issued for.
	Audience string
	// RequiredScope, when non-empty, must be present on API tokens.
	RequiredScope string
	// FallbackEmail enables the internal-network bypass. Requests with no
	// credential at all authenticate as this identity. Leave empty on any
	// deployment reachable from outside the private network.
	FallbackEmail string
}

// Verifier checks inbound credentials and produces a raw ClaimSet.
type Verifier struct {
	keys   *keyset.Cache
	tokens TokenRepository
	cfg    Config
	logger logging.Logger

	now          func() time.Time
	touchTimeout time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New constructs a Verifier.
func New(keys *keyset.Cache, tokens TokenRepository, cfg Config, logger logging.Logger, opts ...Option) *Verifier {
	if cfg.AssertionHeader == "" {
		cfg.AssertionHeader = DefaultAssertionHeader
	}
	v := &Verifier{
		keys:         keys,
		tokens:       tokens,
		cfg:          cfg,
		logger:       logger.With("module", "verifier"),
		now:          time.Now,
		touchTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// HashToken computes the stored fingerprint of a raw API token. Lookup by
// SHA-256 hash is O(1) against the unique index and never handles the raw
// value server-side beyond this call.
func HashToken(raw string) []byte {
	h := sha256.Sum256([]byte(raw))
	return h[:]
}

// Verify inspects the request headers and returns the extracted claim set.
// Any credential failure yields common.ErrUnauthenticated; a claim set is
// never partially trusted.
func (v *Verifier) Verify(ctx context.Context, h http.Header) (*models.ClaimSet, error) {
	if raw := h.Get(v.cfg.AssertionHeader); raw != "" {
		return v.verifyAssertion(ctx, raw)
	}
	if raw, ok := bearerToken(h); ok {
		return v.verifyAPIToken(ctx, raw)
	}
	if v.cfg.FallbackEmail != "" {
		return &models.ClaimSet{
			Email:  v.cfg.FallbackEmail,
			Method: models.MethodFallback,
		}, nil
	}
	return nil, fmt.Errorf("%w: no credential presented", common.ErrUnauthenticated)
}

type assertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func (v *Verifier) verifyAssertion(ctx context.Context, raw string) (*models.ClaimSet, error) {
	claims := &assertionClaims{}

	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("assertion has no key id")
			}
			return v.keys.Key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, common.ErrKeySetUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Email == "" {
		return nil, fmt.Errorf("%w: assertion carries no email claim", common.ErrUnauthenticated)
	}

	cs := &models.ClaimSet{
		Email:   claims.Email,
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
		Method:  models.MethodProxy,
	}
	if claims.ExpiresAt != nil {
		cs.ExpiresAt = claims.ExpiresAt.Time
	}
	return cs, nil
}

func (v *Verifier) verifyAPIToken(ctx context.Context, raw string) (*models.ClaimSet, error) {
	owner, err := v.tokens.FindByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown api token", common.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("api token lookup: %w", err)
	}
	if owner.ExpiresAt != nil && owner.ExpiresAt.Before(v.now()) {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, common.ErrTokenExpired)
	}
	if v.cfg.RequiredScope != "" && !slices.Contains(owner.Scopes, v.cfg.RequiredScope) {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthenticated, common.ErrScopeMissing)
	}

	v.touchAsync(owner.TokenID)

	return &models.ClaimSet{
		Email:   owner.Email,
		Subject: owner.UserID,
		Method:  models.MethodAPIToken,
		Role:    owner.Role,
		Tier:    owner.Tier,
	}, nil
}

// touchAsync updates last_used_at without blocking the request. Failures
// are logged and otherwise ignored.
func (v *Verifier) touchAsync(tokenID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), v.touchTimeout)
		defer cancel()
		if err := v.tokens.TouchLastUsed(ctx, tokenID); err != nil {
			v.logger.Warn(ctx, "api token last_used update failed", "token_id", tokenID, "error", err)
		}
	}()
}

func bearerToken(h http.Header) (string, bool) {
	auth := h.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):]), true
	}
	return "", false
}
