package isolation

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AppendWhere attaches a relational predicate to a SQL query that has no
// WHERE clause yet. argIndex is the 1-based position the predicate's bind
// parameter should use, so callers with existing parameters pass len+1.
func AppendWhere(query string, pred Predicate, argIndex int) (string, []any, error) {
	switch v := pred.(type) {
	case AllowAll:
		return query, nil, nil
	case Relational:
		return fmt.Sprintf("%s WHERE %s = $%d", query, v.Column, argIndex), []any{v.Value}, nil
	default:
		return "", nil, fmt.Errorf("predicate %T does not apply to a relational query", pred)
	}
}

// AnchorMatch returns the cypher clause and parameters to prepend to a
// graph query. AllowAll yields an empty clause.
func AnchorMatch(pred Predicate) (string, map[string]any, error) {
	switch v := pred.(type) {
	case AllowAll:
		return "", nil, nil
	case Graph:
		return v.Match, v.Params, nil
	default:
		return "", nil, fmt.Errorf("predicate %T does not apply to a graph query", pred)
	}
}

// PrefixFor returns the key prefix an object listing must use. AllowAll
// yields an empty prefix (list everything).
func PrefixFor(pred Predicate) (string, error) {
	switch v := pred.(type) {
	case AllowAll:
		return "", nil
	case Object:
		return v.Prefix, nil
	default:
		return "", fmt.Errorf("predicate %T does not apply to an object listing", pred)
	}
}

// MergeFilter combines a caller's document filter with the predicate.
// AllowAll returns the base filter unchanged.
func MergeFilter(base bson.D, pred Predicate) (bson.D, error) {
	switch v := pred.(type) {
	case AllowAll:
		return base, nil
	case Document:
		if len(base) == 0 {
			return v.Filter, nil
		}
		return bson.D{{Key: "$and", Value: bson.A{base, v.Filter}}}, nil
	default:
		return nil, fmt.Errorf("predicate %T does not apply to a document query", pred)
	}
}
