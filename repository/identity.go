package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linlinbupt123-crypto/chat_wallet/entity"
)

type IdentityRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewIdentityRepo(col *mongo.Collection) *IdentityRepo {
	return &IdentityRepo{col: col, now: time.Now}
}

// Upsert returns the identity for handle, creating it on first contact.
// Existing identities are never modified.
func (r *IdentityRepo) Upsert(ctx context.Context, handle string) (*entity.Identity, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	// handle is copied from the filter on insert
	update := bson.M{"$setOnInsert": bson.M{"created_at": r.now().UTC()}}

	var out entity.Identity
	err := r.col.FindOneAndUpdate(ctx, bson.M{"handle": handle}, update, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		// two upserts raced on the unique handle index; the other one won
		return r.GetByHandle(ctx, handle)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByHandle returns nil, nil when the handle is unknown.
func (r *IdentityRepo) GetByHandle(ctx context.Context, handle string) (*entity.Identity, error) {
	var out entity.Identity
	err := r.col.FindOne(ctx, bson.M{"handle": handle}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
