// Package isolation builds the per-store data-isolation predicate every
// capability must apply when querying user-owned data. The predicate is a
// value returned to the caller, not enforcement performed here: a caller
// that ignores it leaks data, and the gateway cannot intercept downstream
// queries to prevent that.
package isolation

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

// Predicate is a tagged variant with one case per store kind. Callers
// hand it to the matching Apply helper for their backend.
type Predicate interface {
	isPredicate()
}

// AllowAll places no restriction on the query. Returned for admins, and
// for the photo store where the per-account credential already scopes
// every call to its owner.
type AllowAll struct{}

// Relational restricts a SQL query to rows whose Column equals Value.
type Relational struct {
	Column string
	Value  any
}

// Graph anchors a cypher query at the requesting user's node. Match is a
// clause to prepend; Params carries its bindings.
type Graph struct {
	Match  string
	Params map[string]any
}

// Object restricts object listings to the user's prefix.
type Object struct {
	Prefix string
}

// Document restricts a document query to the user's attribution fields,
// checked in both top-level and nested metadata locations.
type Document struct {
	Filter bson.D
}

func (AllowAll) isPredicate()   {}
func (Relational) isPredicate() {}
func (Graph) isPredicate()      {}
func (Object) isPredicate()     {}
func (Document) isPredicate()   {}

// FilterFor returns the predicate a query against the given store must
// apply on behalf of the principal. Admins bypass all filtering.
func FilterFor(p *models.Principal, kind models.StoreKind) Predicate {
	if p.IsAdmin() {
		return AllowAll{}
	}

	switch kind {
	case models.StoreRelational:
		return Relational{Column: "owner_email", Value: p.Email}
	case models.StoreGraph:
		return Graph{
			Match:  "MATCH (owner:User {email: $owner_email})",
			Params: map[string]any{"owner_email": p.Email},
		}
	case models.StoreObject:
		return Object{Prefix: fmt.Sprintf("user-%s/", p.ID)}
	case models.StoreDocument:
		return Document{Filter: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "user_id", Value: p.ID}},
			bson.D{{Key: "metadata.user_id", Value: p.ID}},
			bson.D{{Key: "user_email", Value: p.Email}},
			bson.D{{Key: "metadata.user_email", Value: p.Email}},
		}}}}
	case models.StorePhotos:
		// Photo queries run under the user's own sealed API key; the
		// service scopes them to the account.
		return AllowAll{}
	default:
		// An unknown store gets a predicate that can never match.
		return Relational{Column: "owner_email", Value: nil}
	}
}
