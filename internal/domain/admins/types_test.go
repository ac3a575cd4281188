package admins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestPasswordSetCompare(t *testing.T) {
	t.Parallel()

	var p password
	require.NoError(t, p.Set("s3cret!"))
	assert.NoError(t, p.Compare("s3cret!"))
	assert.Error(t, p.Compare("wrong"))
}

func TestDocumentRoundTripKeepsHash(t *testing.T) {
	t.Parallel()

	a := Admin{Username: "root", Role: RoleSuperAdmin, IsActive: true}
	require.NoError(t, a.Password.Set("hunter22"))

	raw, err := bson.Marshal(document{Admin: a, Hash: string(a.Password.hash)})
	require.NoError(t, err)

	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	assert.Equal(t, "root", m["username"])
	assert.NotEmpty(t, m["password"])

	var doc document
	require.NoError(t, bson.Unmarshal(raw, &doc))
	got := doc.admin()
	assert.NoError(t, got.Password.Compare("hunter22"))
	assert.NotNil(t, got.Permissions)
}
