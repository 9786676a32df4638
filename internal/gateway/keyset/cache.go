// Package keyset caches the identity issuer's public key set (JWKS). Keys
// are fetched over HTTP, cached with a TTL, and refreshed behind a
// single-flight group so that a burst of requests hitting an expired cache
// or an unknown key id triggers exactly one fetch.
package keyset

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/akarpov87/identity-gateway/internal/common"
)

// DefaultTTL is how long a fetched key set is considered fresh.
const DefaultTTL = 10 * time.Minute

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// Cache holds the issuer's RSA public keys, keyed by key id.
type Cache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient overrides the HTTP client used for key-set fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(cache *Cache) { cache.client = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(cache *Cache) { cache.now = now }
}

// New creates a Cache for the key-set endpoint at url. A non-positive ttl
// falls back to DefaultTTL.
func New(url string, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the public key for kid. A fresh cache is served as is; an
// expired cache or an unknown kid triggers a single-flight refresh. If the
// refresh fails but a previously cached key matches, the stale key is
// served rather than failing the request.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if _, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	}); err != nil {
		if ok {
			return key, nil
		}
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: unknown key id %q", common.ErrUnauthenticated, kid)
	}
	return key, nil
}

// refresh fetches the key-set document, retrying transient failures with a
// capped fibonacci backoff before giving up with ErrKeySetUnavailable.
func (c *Cache) refresh(ctx context.Context) error {
	var doc jwksDocument

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("key set endpoint returned %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("key set endpoint returned %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&doc)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrKeySetUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: document contains no usable RSA keys", common.ErrKeySetUnavailable)
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
