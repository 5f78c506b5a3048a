// Package domaintest provides in-memory implementations of the domain ports
// for tests of the packages built on top of domain.
package domaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
)

// MemStore is an IdentityStore that enforces one wallet per identity and
// chain.
type MemStore struct {
	mu         sync.Mutex
	identities map[string]*entity.Identity
	wallets    map[string]*entity.WalletRecord
	seq        int

	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{
		identities: make(map[string]*entity.Identity),
		wallets:    make(map[string]*entity.WalletRecord),
	}
}

func (s *MemStore) UpsertIdentity(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if id, ok := s.identities[handle]; ok {
		return id, nil
	}
	s.seq++
	id := &entity.Identity{ID: fmt.Sprintf("id-%d", s.seq), Handle: handle}
	s.identities[handle] = id
	return id, nil
}

func (s *MemStore) FindIdentity(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.identities[handle], nil
}

func (s *MemStore) FindWalletRecord(_ context.Context, identityID, chain string) (*entity.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.wallets[identityID+"|"+chain], nil
}

func (s *MemStore) InsertWalletRecord(_ context.Context, rec *entity.WalletRecord) (*entity.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	k := rec.IdentityID + "|" + rec.Chain
	if _, ok := s.wallets[k]; ok {
		return nil, wrapErrors.ErrDuplicate
	}
	s.seq++
	saved := *rec
	saved.ID = fmt.Sprintf("w-%d", s.seq)
	s.wallets[k] = &saved
	return &saved, nil
}

// Chain is a ChainStateProvider backed by fixed values. Submitted
// transactions are decoded and confirm immediately.
type Chain struct {
	mu sync.Mutex

	Balances map[common.Address]*big.Int
	GasPrice *big.Int
	ID       *big.Int
	Names    map[string]common.Address
	Err      error

	Submitted []*types.Transaction
}

func NewChain() *Chain {
	return &Chain{
		Balances: make(map[common.Address]*big.Int),
		GasPrice: big.NewInt(1_000_000_000),
		ID:       big.NewInt(1),
		Names:    make(map[string]common.Address),
	}
}

// Fund sets the balance of addr.
func (c *Chain) Fund(addr common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[addr] = new(big.Int).Set(wei)
}

func (c *Chain) Symbol() string { return "ETH" }

func (c *Chain) Balance(_ context.Context, addr common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	if b, ok := c.Balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (c *Chain) FeeRate(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.GasPrice), nil
}

func (c *Chain) PendingNonce(context.Context, common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(c.Submitted)), nil
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ID), nil
}

func (c *Chain) ResolveName(_ context.Context, name string) (common.Address, bool, error) {
	addr, ok := c.Names[name]
	return addr, ok, nil
}

func (c *Chain) ReverseLookup(_ context.Context, addr common.Address) (string, bool, error) {
	for name, a := range c.Names {
		if a == addr {
			return name, true, nil
		}
	}
	return "", false, nil
}

func (c *Chain) SubmitSignedTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Submitted = append(c.Submitted, tx)
	return tx.Hash(), nil
}

func (c *Chain) AwaitReceipt(context.Context, common.Hash) (*domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &domain.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(int64(len(c.Submitted)))}, nil
}

// Registry is a ChainRegistry over a fixed map.
type Registry map[string]domain.ChainStateProvider

func (r Registry) Provider(chain string) (domain.ChainStateProvider, error) {
	p, ok := r[chain]
	if !ok {
		return nil, wrapErrors.Newf(wrapErrors.CodeValidation, "select chain", "unsupported chain %q", chain)
	}
	return p, nil
}

func (r Registry) Chains() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
