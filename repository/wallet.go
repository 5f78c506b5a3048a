/*
(user_id, chain) → unique index
address / encrypted_private_key / encrypted_mnemonic / created_at
*/
package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
)

type Wallet struct {
	col *mongo.Collection
}

func NewWalletRepo(col *mongo.Collection) *Wallet {
	return &Wallet{col: col}
}

// Create inserts w and fills in its id. A second wallet for the same user
// and chain fails with errors.ErrDuplicate.
func (r *Wallet) Create(ctx context.Context, w *entity.WalletRecord) (*entity.WalletRecord, error) {
	res, err := r.col.InsertOne(ctx, w)
	if mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("wallet %s/%s: %w", w.IdentityID, w.Chain, wrapErrors.ErrDuplicate)
	}
	if err != nil {
		return nil, err
	}
	saved := *w
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		saved.ID = oid.Hex()
	}
	return &saved, nil
}

// GetByUserAndChain returns nil, nil when the user has no wallet on chain.
func (r *Wallet) GetByUserAndChain(ctx context.Context, userID, chain string) (*entity.WalletRecord, error) {
	var w entity.WalletRecord
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "chain": chain}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}
