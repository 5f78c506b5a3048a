package domain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
)

const testScryptN = 1 << 10

// memStore enforces the (identity, chain) uniqueness a real store gets from
// its index.
type memStore struct {
	mu         sync.Mutex
	identities map[string]*entity.Identity
	wallets    map[string]*entity.WalletRecord
	nextID     int
	inserts    int

	findErr error
	// beforeInsert runs inside InsertWalletRecord before the uniqueness check
	beforeInsert func(s *memStore, rec *entity.WalletRecord)
}

func newMemStore() *memStore {
	return &memStore{
		identities: make(map[string]*entity.Identity),
		wallets:    make(map[string]*entity.WalletRecord),
	}
}

func walletKey(identityID, chain string) string {
	return identityID + "|" + chain
}

func (s *memStore) UpsertIdentity(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.identities[handle]; ok {
		return id, nil
	}
	s.nextID++
	id := &entity.Identity{ID: fmt.Sprintf("id-%d", s.nextID), Handle: handle}
	s.identities[handle] = id
	return id, nil
}

func (s *memStore) FindIdentity(_ context.Context, handle string) (*entity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.identities[handle], nil
}

func (s *memStore) FindWalletRecord(_ context.Context, identityID, chain string) (*entity.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.wallets[walletKey(identityID, chain)], nil
}

func (s *memStore) InsertWalletRecord(_ context.Context, rec *entity.WalletRecord) (*entity.WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeInsert != nil {
		s.beforeInsert(s, rec)
	}
	k := walletKey(rec.IdentityID, rec.Chain)
	if _, ok := s.wallets[k]; ok {
		return nil, fmt.Errorf("insert: %w", wrapErrors.ErrDuplicate)
	}
	s.inserts++
	s.nextID++
	saved := *rec
	saved.ID = fmt.Sprintf("w-%d", s.nextID)
	s.wallets[k] = &saved
	return &saved, nil
}

type fakeRegistry map[string]ChainStateProvider

func (r fakeRegistry) Provider(chain string) (ChainStateProvider, error) {
	p, ok := r[chain]
	if !ok {
		return nil, wrapErrors.Newf(wrapErrors.CodeValidation, "select chain", "unsupported chain %q", chain)
	}
	return p, nil
}

func (r fakeRegistry) Chains() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}

type fakeChain struct {
	mu sync.Mutex

	chainID *big.Int
	balance *big.Int
	feeRate *big.Int
	nonce   uint64

	names      map[string]common.Address
	reverse    map[common.Address]string
	resolveErr error
	reverseErr error
	balanceErr error
	onChainID  func()

	submitErr  error
	onSubmit   func()
	submitted  []*types.Transaction
	receipt    *Receipt
	awaitBlock bool
	awaitErr   error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chainID: big.NewInt(1),
		balance: new(big.Int),
		feeRate: big.NewInt(1_000_000_000),
		names:   make(map[string]common.Address),
		reverse: make(map[common.Address]string),
		receipt: &Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
	}
}

func (f *fakeChain) Symbol() string { return "ETH" }

func (f *fakeChain) Balance(context.Context, common.Address) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeChain) FeeRate(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.feeRate), nil
}

func (f *fakeChain) PendingNonce(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) {
	if f.onChainID != nil {
		f.onChainID()
	}
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeChain) ResolveName(_ context.Context, name string) (common.Address, bool, error) {
	if f.resolveErr != nil {
		return common.Address{}, false, f.resolveErr
	}
	addr, ok := f.names[name]
	return addr, ok, nil
}

func (f *fakeChain) ReverseLookup(_ context.Context, addr common.Address) (string, bool, error) {
	if f.reverseErr != nil {
		return "", false, f.reverseErr
	}
	name, ok := f.reverse[addr]
	return name, ok, nil
}

func (f *fakeChain) SubmitSignedTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if f.submitErr != nil {
		return common.Hash{}, f.submitErr
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	f.submitted = append(f.submitted, tx)
	return tx.Hash(), nil
}

func (f *fakeChain) AwaitReceipt(ctx context.Context, _ common.Hash) (*Receipt, error) {
	if f.awaitBlock {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.awaitErr != nil {
		return nil, f.awaitErr
	}
	return f.receipt, nil
}

func (f *fakeChain) submissions() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.submitted...)
}

// fakeRecords serves auxiliary name records; keys listed in fail return an
// error instead.
type fakeRecords struct {
	text        map[string]string
	coins       map[uint64][]byte
	contentHash []byte
	fail        map[string]bool
}

func (f *fakeRecords) TextRecord(_ context.Context, _ string, key string) (string, error) {
	if f.fail[key] {
		return "", fmt.Errorf("resolver reverted for %s", key)
	}
	return f.text[key], nil
}

func (f *fakeRecords) CoinAddress(_ context.Context, _ string, coinType uint64) ([]byte, error) {
	if f.fail[fmt.Sprintf("coin:%d", coinType)] {
		return nil, fmt.Errorf("resolver reverted for coin %d", coinType)
	}
	return f.coins[coinType], nil
}

func (f *fakeRecords) ContentHash(context.Context, string) ([]byte, error) {
	if f.fail["contenthash"] {
		return nil, fmt.Errorf("resolver reverted for contenthash")
	}
	return f.contentHash, nil
}
