package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	"github.com/linlinbupt123-crypto/chat_wallet/domain/domaintest"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/utils"
)

func newTestService() (*WalletService, *domaintest.MemStore, *domaintest.Chain) {
	store := domaintest.NewMemStore()
	chain := domaintest.NewChain()
	chains := domaintest.Registry{"ethereum": chain}
	cipher := domain.NewKeyCipher(1 << 10)
	names := domain.NewNameResolver(chain, nil, nil)

	svc := NewWalletService(
		store,
		chains,
		domain.NewWalletProvisioner(store, cipher, "k", chains, nil),
		domain.NewTransferExecutor(store, chains, names, cipher, "k", nil),
		names,
		nil,
	)
	return svc, store, chain
}

func TestCreateWalletRegistersIdentity(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	var secret domain.Disclosure
	res, err := svc.CreateWallet(ctx, "+15550001111", "ethereum", func(d domain.Disclosure) { secret = d })
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, res.Address, secret.Address)
	require.NotEmpty(t, secret.Mnemonic)

	identity, err := store.FindIdentity(ctx, "+15550001111")
	require.NoError(t, err)
	require.NotNil(t, identity)

	again, err := svc.CreateWallet(ctx, " +15550001111 ", "ethereum", nil)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, res.Address, again.Address)
}

func TestCreateWalletErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()

	_, err := svc.CreateWallet(ctx, "  ", "ethereum", nil)
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeValidation))

	store.Err = errors.New("server selection timeout")
	_, err = svc.CreateWallet(ctx, "alice", "ethereum", nil)
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeNetwork))
}

func TestTransferEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, chain := newTestService()

	created, err := svc.CreateWallet(ctx, "alice", "ethereum", nil)
	require.NoError(t, err)
	one, _ := utils.ETHToWei("1")
	chain.Fund(common.HexToAddress(created.Address), one)

	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	res := svc.Transfer(ctx, "alice", to.Hex(), "250000000000000000", "ethereum")
	require.True(t, res.Success, res.Message)
	require.Len(t, chain.Submitted, 1)
	require.Equal(t, "250000000000000000", chain.Submitted[0].Value().String())
	require.Contains(t, res.Message, "Successfully sent 0.25 ETH")
}

func TestTransferRejectsBadAmount(t *testing.T) {
	svc, _, chain := newTestService()

	for _, amount := range []string{"", "abc", "0", "-1", "0.25", "1e18", "0x10"} {
		res := svc.Transfer(context.Background(), "alice", "bob.eth", amount, "ethereum")
		require.False(t, res.Success, amount)
		require.Equal(t, wrapErrors.CodeValidation, res.Code, amount)
	}
	require.Empty(t, chain.Submitted)
}

func TestTransferAmountIsWei(t *testing.T) {
	ctx := context.Background()
	svc, _, chain := newTestService()

	created, err := svc.CreateWallet(ctx, "contact-1", "ethereum", nil)
	require.NoError(t, err)
	chain.Fund(common.HexToAddress(created.Address), big.NewInt(100))
	chain.GasPrice = big.NewInt(1)

	// balance covers the amount but not amount plus 21000 gas
	res := svc.Transfer(ctx, "contact-1", "0x000000000000000000000000000000000000dEaD", "100", "ethereum")
	require.False(t, res.Success)
	require.Equal(t, wrapErrors.CodeInsufficientBalanceFee, res.Code)

	res = svc.Transfer(ctx, "contact-1", "0x000000000000000000000000000000000000dEaD", "101", "ethereum")
	require.Equal(t, wrapErrors.CodeInsufficientBalance, res.Code)
	require.Empty(t, chain.Submitted)
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	svc, _, chain := newTestService()

	_, err := svc.GetBalance(ctx, "alice", "ethereum")
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeNotFound))

	created, err := svc.CreateWallet(ctx, "alice", "ethereum", nil)
	require.NoError(t, err)
	half, _ := utils.ETHToWei("0.5")
	chain.Fund(common.HexToAddress(created.Address), half)

	asset, err := svc.GetBalance(ctx, "alice", "Ethereum")
	require.NoError(t, err)
	require.Equal(t, "ethereum", asset.Chain)
	require.Equal(t, "ETH", asset.Symbol)
	require.Equal(t, created.Address, asset.Address)
	require.Equal(t, 0, half.Cmp(asset.Balance))

	_, err = svc.GetBalance(ctx, "alice", "solana")
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeValidation))
}

func TestLookupName(t *testing.T) {
	svc, _, chain := newTestService()
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	chain.Names["vitalik.eth"] = addr

	p, err := svc.LookupName(context.Background(), "vitalik.eth")
	require.NoError(t, err)
	require.Equal(t, addr, p.Address)
	require.True(t, p.IsPrimary)
}

func TestUnsupportedOperations(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Swap(context.Background(), "alice", "ETH", "USDC", "1")
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeUnsupported))

	err = svc.CrossChainTransfer(context.Background(), "alice", "ethereum", "base", "0x1111111111111111111111111111111111111111", "1")
	require.True(t, wrapErrors.Is(err, wrapErrors.CodeUnsupported))
}
