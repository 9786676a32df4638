package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

var (
	admin = &models.Principal{ID: "id-a", Email: "admin@example.com", Role: models.RoleAdmin}
	user  = &models.Principal{ID: "id-u", Email: "user@example.com", Role: models.RoleUser}
)

func TestFilterFor_AdminBypassesEveryStore(t *testing.T) {
	kinds := []models.StoreKind{
		models.StoreRelational,
		models.StoreGraph,
		models.StoreObject,
		models.StoreDocument,
		models.StorePhotos,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			assert.IsType(t, AllowAll{}, FilterFor(admin, kind))
		})
	}
}

func TestFilterFor_UserRelational(t *testing.T) {
	pred := FilterFor(user, models.StoreRelational)
	rel, ok := pred.(Relational)
	require.True(t, ok)
	assert.Equal(t, "owner_email", rel.Column)
	assert.Equal(t, "user@example.com", rel.Value)
}

func TestFilterFor_UserGraph(t *testing.T) {
	pred := FilterFor(user, models.StoreGraph)
	g, ok := pred.(Graph)
	require.True(t, ok)
	assert.Contains(t, g.Match, "User")
	assert.Equal(t, "user@example.com", g.Params["owner_email"])
}

func TestFilterFor_UserObject(t *testing.T) {
	pred := FilterFor(user, models.StoreObject)
	o, ok := pred.(Object)
	require.True(t, ok)
	assert.Equal(t, "user-id-u/", o.Prefix)
}

func TestFilterFor_UserDocument(t *testing.T) {
	pred := FilterFor(user, models.StoreDocument)
	d, ok := pred.(Document)
	require.True(t, ok)
	require.Len(t, d.Filter, 1)
	assert.Equal(t, "$or", d.Filter[0].Key)

	or, ok := d.Filter[0].Value.(bson.A)
	require.True(t, ok)
	assert.Len(t, or, 4, "id and email, top-level and nested metadata")
}

func TestFilterFor_UserPhotos(t *testing.T) {
	assert.IsType(t, AllowAll{}, FilterFor(user, models.StorePhotos))
}

func TestAppendWhere(t *testing.T) {
	q, args, err := AppendWhere("SELECT * FROM notes", FilterFor(user, models.StoreRelational), 1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM notes WHERE owner_email = $1", q)
	assert.Equal(t, []any{"user@example.com"}, args)

	q, args, err = AppendWhere("SELECT * FROM notes", AllowAll{}, 1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM notes", q)
	assert.Nil(t, args)

	_, _, err = AppendWhere("SELECT 1", Object{Prefix: "x/"}, 1)
	assert.Error(t, err)
}

func TestAnchorMatch(t *testing.T) {
	clause, params, err := AnchorMatch(FilterFor(user, models.StoreGraph))
	require.NoError(t, err)
	assert.NotEmpty(t, clause)
	assert.Equal(t, "user@example.com", params["owner_email"])

	clause, params, err = AnchorMatch(AllowAll{})
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Nil(t, params)

	_, _, err = AnchorMatch(Object{})
	assert.Error(t, err)
}

func TestPrefixFor(t *testing.T) {
	prefix, err := PrefixFor(FilterFor(user, models.StoreObject))
	require.NoError(t, err)
	assert.Equal(t, "user-id-u/", prefix)

	prefix, err = PrefixFor(AllowAll{})
	require.NoError(t, err)
	assert.Empty(t, prefix)

	_, err = PrefixFor(Graph{})
	assert.Error(t, err)
}

func TestMergeFilter(t *testing.T) {
	pred := FilterFor(user, models.StoreDocument)

	merged, err := MergeFilter(nil, pred)
	require.NoError(t, err)
	assert.Equal(t, "$or", merged[0].Key)

	base := bson.D{{Key: "kind", Value: "note"}}
	merged, err = MergeFilter(base, pred)
	require.NoError(t, err)
	assert.Equal(t, "$and", merged[0].Key)

	merged, err = MergeFilter(base, AllowAll{})
	require.NoError(t, err)
	assert.Equal(t, base, merged)

	_, err = MergeFilter(base, Relational{})
	assert.Error(t, err)
}
