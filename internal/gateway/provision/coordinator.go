// Package provision fans a resolved principal out to every storage
// backend. The relational adapter runs first and alone because its upsert
// mints the canonical id; everything else runs concurrently afterwards and
// is allowed to fail without failing authentication.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
	"github.com/akarpov87/identity-gateway/internal/gateway/repositories/events"
	"github.com/akarpov87/identity-gateway/internal/gateway/stores"
	"github.com/akarpov87/identity-gateway/internal/logging"
)

const (
	// DefaultCallTimeout bounds a single adapter call.
	DefaultCallTimeout = 3 * time.Second
	// DefaultMaxInFlight bounds concurrent adapter calls.
	DefaultMaxInFlight = 5
)

// Coordinator runs the adapter fan-out.
type Coordinator struct {
	critical  stores.Adapter
	secondary []stores.Adapter
	recorder  events.Recorder
	logger    logging.Logger

	callTimeout time.Duration
	maxInFlight int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCallTimeout overrides the per-adapter timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.callTimeout = d }
}

// WithMaxInFlight overrides the fan-out concurrency bound.
func WithMaxInFlight(n int) Option {
	return func(c *Coordinator) { c.maxInFlight = n }
}

// WithRecorder attaches a best-effort audit recorder for first-time
// provisioning events.
func WithRecorder(r events.Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// New builds a Coordinator from the adapter set. Exactly one adapter must
// be the relational (critical) one.
func New(adapters []stores.Adapter, logger logging.Logger, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		logger:      logger.With("module", "provision"),
		callTimeout: DefaultCallTimeout,
		maxInFlight: DefaultMaxInFlight,
	}
	for _, a := range adapters {
		if a.Kind() == models.StoreRelational {
			if c.critical != nil {
				return nil, errors.New("duplicate relational adapter")
			}
			c.critical = a
			continue
		}
		c.secondary = append(c.secondary, a)
	}
	if c.critical == nil {
		return nil, errors.New("relational adapter is required")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Provision guarantees the principal exists in every backend. The critical
// adapter's failure aborts with ErrProvisioningCritical and no other
// adapter is invoked; secondary failures are collected as StoreFailures
// and never fail the call. Idempotency rests on each backend's own
// constraint or merge semantics, so no locks are taken here and a
// concurrent first-time race resolves to a single record per store.
func (c *Coordinator) Provision(ctx context.Context, p *models.Principal) (*models.Principal, []models.StoreFailure, error) {
	created, err := c.call(ctx, c.critical, p)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrProvisioningCritical, err)
	}
	c.record(ctx, created, p, c.critical.Kind())

	results := make(chan models.StoreFailure, len(c.secondary))

	var g errgroup.Group
	g.SetLimit(c.maxInFlight)
	for _, a := range c.secondary {
		g.Go(func() error {
			created, err := c.call(ctx, a, p)
			if err != nil {
				results <- models.StoreFailure{Store: a.Kind(), Err: err}
				return nil
			}
			c.record(ctx, created, p, a.Kind())
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var failures []models.StoreFailure
	for f := range results {
		c.logger.Warn(ctx, "store provisioning failed", "store", f.Store, "user_id", p.ID, "error", f.Err)
		failures = append(failures, f)
	}
	return p, failures, nil
}

func (c *Coordinator) call(ctx context.Context, a stores.Adapter, p *models.Principal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return a.EnsureProvisioned(ctx, p)
}

// record writes an audit event for a first-time creation. The backing
// table is optional, so errors are only logged.
func (c *Coordinator) record(ctx context.Context, created bool, p *models.Principal, kind models.StoreKind) {
	if !created {
		return
	}
	c.logger.Info(ctx, "store provisioned", "store", kind, "user_id", p.ID)
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, p.ID, kind); err != nil {
		c.logger.Warn(ctx, "provisioning event not recorded", "store", kind, "error", err)
	}
}
