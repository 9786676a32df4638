// Package document covers the document store, where no explicit user
// record exists: documents are attributed to their owner purely by field
// values set at write time. Provisioning is therefore a no-op; the adapter
// exists so the coordinator treats all backends uniformly. Query-side
// isolation is handled by the document predicate in the isolation package.
package document

import (
	"context"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Kind() models.StoreKind {
	return models.StoreDocument
}

// EnsureProvisioned reports created=false unconditionally: there is
// nothing to create ahead of the first document write.
func (a *Adapter) EnsureProvisioned(ctx context.Context, p *models.Principal) (bool, error) {
	return false, nil
}
