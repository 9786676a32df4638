// Package graph provisions the user node in the graph store. MERGE is
// idempotent by construction, so no separate existence check is needed and
// concurrent first-time requests collapse onto a single node.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

const mergeQuery = `
MERGE (u:User {email: $email})
ON CREATE SET u.user_id = $user_id, u.created_at = datetime()
RETURN u`

// mergeUserNode is a seam for testing without a live neo4j instance.
var mergeUserNode = func(ctx context.Context, driver neo4j.DriverWithContext, cypher string, params map[string]any) (int, error) {
	result, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer)
	if err != nil {
		return 0, err
	}
	return result.Summary.Counters().NodesCreated(), nil
}

// Adapter keys off the email property; the canonical id is attached to the
// node on creation for traversals that join against other stores.
type Adapter struct {
	driver neo4j.DriverWithContext
}

func New(driver neo4j.DriverWithContext) *Adapter {
	return &Adapter{driver: driver}
}

func (a *Adapter) Kind() models.StoreKind {
	return models.StoreGraph
}

func (a *Adapter) EnsureProvisioned(ctx context.Context, p *models.Principal) (bool, error) {
	created, err := mergeUserNode(ctx, a.driver, mergeQuery, map[string]any{
		"email":   p.Email,
		"user_id": p.ID,
	})
	if err != nil {
		return false, fmt.Errorf("user node merge: %w", err)
	}
	return created > 0, nil
}
