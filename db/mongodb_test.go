package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestWalletIndexIsUniquePerIdentityAndChain(t *testing.T) {
	idx := Indexes()[WalletCollection][0]

	require.Equal(t, bson.D{{Key: "user_id", Value: 1}, {Key: "chain", Value: 1}}, idx.Keys)
	require.NotNil(t, idx.Options.Unique)
	require.True(t, *idx.Options.Unique)
}

func TestIdentityIndexIsUniqueHandle(t *testing.T) {
	idx := Indexes()[IdentityCollection][0]

	require.Equal(t, bson.M{"handle": 1}, idx.Keys)
	require.True(t, *idx.Options.Unique)
}

func TestWalletsHaveNoAddressIndex(t *testing.T) {
	idx := Indexes()[WalletCollection]

	require.Len(t, idx, 1)
	require.NotContains(t, idx[0].Keys, bson.E{Key: "address", Value: 1})
}
