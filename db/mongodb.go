package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	IdentityCollection = "users"
	WalletCollection   = "wallets"
)

type MongoRepo struct {
	Client       *mongo.Client
	DB           *mongo.Database
	IdentityColl *mongo.Collection
	WalletColl   *mongo.Collection
}

func NewMongoRepo(ctx context.Context, uri, dbName string) (*MongoRepo, error) {
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	// ping
	ctx2, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx2, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoRepo{
		Client:       client,
		DB:           db,
		IdentityColl: db.Collection(IdentityCollection),
		WalletColl:   db.Collection(WalletCollection),
	}, nil
}

func (m *MongoRepo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Indexes the stores rely on for uniqueness. The wallet index is what makes
// concurrent wallet creation safe.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		IdentityCollection: {
			{Keys: bson.M{"handle": 1}, Options: options.Index().SetUnique(true)},
		},
		WalletCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "chain", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates every index from Indexes, ignoring ones that exist.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range Indexes() {
		for _, idx := range models {
			if err := createIndexSafe(ctx, db.Collection(coll), idx); err != nil {
				return fmt.Errorf("%s index error: %w", coll, err)
			}
		}
	}
	return nil
}

func createIndexSafe(ctx context.Context, col *mongo.Collection, index mongo.IndexModel) error {
	_, err := col.Indexes().CreateOne(ctx, index)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return err
	}
	return nil
}
