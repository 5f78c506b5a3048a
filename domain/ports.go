package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/linlinbupt123-crypto/chat_wallet/entity"
)

// IdentityStore is the remote registry of users and their wallets.
// Find* methods return (nil, nil) when nothing matches.
type IdentityStore interface {
	UpsertIdentity(ctx context.Context, handle string) (*entity.Identity, error)
	FindIdentity(ctx context.Context, handle string) (*entity.Identity, error)
	FindWalletRecord(ctx context.Context, identityID, chain string) (*entity.WalletRecord, error)
	// InsertWalletRecord returns errors.ErrDuplicate (wrapped) when a record
	// for the same identity and chain already exists.
	InsertWalletRecord(ctx context.Context, record *entity.WalletRecord) (*entity.WalletRecord, error)
}

// Receipt is the part of a transaction receipt the pipeline looks at.
type Receipt struct {
	Status      uint64
	BlockNumber *big.Int
}

// ChainStateProvider reads chain state and relays signed transactions for one
// EVM chain.
type ChainStateProvider interface {
	// Symbol is the native asset ticker, used only in messages.
	Symbol() string

	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	FeeRate(ctx context.Context) (*big.Int, error)
	PendingNonce(ctx context.Context, addr common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)

	// ResolveName returns found=false when the name has no resolver or no
	// address record.
	ResolveName(ctx context.Context, name string) (addr common.Address, found bool, err error)
	ReverseLookup(ctx context.Context, addr common.Address) (name string, found bool, err error)

	SubmitSignedTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	// AwaitReceipt blocks until the receipt is available or ctx is done.
	AwaitReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// NameRecords serves the auxiliary records attached to a name.
// Absent records are returned as zero values with a nil error.
type NameRecords interface {
	TextRecord(ctx context.Context, name, key string) (string, error)
	CoinAddress(ctx context.Context, name string, coinType uint64) ([]byte, error)
	ContentHash(ctx context.Context, name string) ([]byte, error)
}

// ChainRegistry maps configured chain names to their providers.
type ChainRegistry interface {
	Provider(chain string) (ChainStateProvider, error)
	Chains() []string
}
