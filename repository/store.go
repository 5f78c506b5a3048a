package repository

import (
	"context"

	"github.com/linlinbupt123-crypto/chat_wallet/db"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
)

// Store is the Mongo-backed identity registry.
type Store struct {
	Identities *IdentityRepo
	Wallets    *Wallet
}

func NewStore(m *db.MongoRepo) *Store {
	return &Store{
		Identities: NewIdentityRepo(m.IdentityColl),
		Wallets:    NewWalletRepo(m.WalletColl),
	}
}

func (s *Store) UpsertIdentity(ctx context.Context, handle string) (*entity.Identity, error) {
	return s.Identities.Upsert(ctx, handle)
}

func (s *Store) FindIdentity(ctx context.Context, handle string) (*entity.Identity, error) {
	return s.Identities.GetByHandle(ctx, handle)
}

func (s *Store) FindWalletRecord(ctx context.Context, identityID, chain string) (*entity.WalletRecord, error) {
	return s.Wallets.GetByUserAndChain(ctx, identityID, chain)
}

func (s *Store) InsertWalletRecord(ctx context.Context, record *entity.WalletRecord) (*entity.WalletRecord, error) {
	return s.Wallets.Create(ctx, record)
}
