package service

import (
	"context"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
)

type WalletService struct {
	Store       domain.IdentityStore
	Chains      domain.ChainRegistry
	Provisioner *domain.WalletProvisioner
	Executor    *domain.TransferExecutor
	Names       *domain.NameResolver
	logger      *slog.Logger
}

func NewWalletService(
	store domain.IdentityStore,
	chains domain.ChainRegistry,
	provisioner *domain.WalletProvisioner,
	executor *domain.TransferExecutor,
	names *domain.NameResolver,
	log *slog.Logger,
) *WalletService {
	if log == nil {
		log = logger.Nop()
	}
	return &WalletService{
		Store:       store,
		Chains:      chains,
		Provisioner: provisioner,
		Executor:    executor,
		Names:       names,
		logger:      log,
	}
}

// CreateWallet registers handle on first contact and provisions its wallet
// on chain. Calling it again returns the existing wallet.
func (s *WalletService) CreateWallet(ctx context.Context, handle, chain string, disclose domain.DiscloseFunc) (*domain.CreationResult, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, wrapErrors.Newf(wrapErrors.CodeValidation, "create wallet", "identity handle is required")
	}
	identity, err := s.Store.UpsertIdentity(ctx, handle)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "upsert identity", err)
	}
	return s.Provisioner.Create(ctx, identity, chain, disclose)
}

// Transfer sends amountWei, a base-10 integer in the chain's smallest unit,
// from handle's wallet to recipient. The result is never nil.
func (s *WalletService) Transfer(ctx context.Context, handle, recipient, amountWei, chain string) *domain.TransferResult {
	wei, ok := new(big.Int).SetString(strings.TrimSpace(amountWei), 10)
	if !ok || wei.Sign() <= 0 {
		return &domain.TransferResult{
			Code:    wrapErrors.CodeValidation,
			Message: "Invalid transfer request: amount must be a positive integer number of wei",
		}
	}
	return s.Executor.Execute(ctx, domain.TransferRequest{
		Handle:    handle,
		Recipient: recipient,
		Amount:    wei,
		Chain:     chain,
	})
}

// LookupName returns the profile of an ENS name.
func (s *WalletService) LookupName(ctx context.Context, name string) (*domain.NameProfile, error) {
	return s.Names.Lookup(ctx, name)
}

// GetBalance returns the native balance of handle's wallet on chain.
func (s *WalletService) GetBalance(ctx context.Context, handle, chain string) (*entity.Asset, error) {
	const op = "get balance"

	chain = strings.ToLower(strings.TrimSpace(chain))
	provider, err := s.Chains.Provider(chain)
	if err != nil {
		return nil, err
	}
	identity, err := s.Store.FindIdentity(ctx, strings.TrimSpace(handle))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, op, err)
	}
	if identity == nil {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "identity not found")
	}
	wallet, err := s.Store.FindWalletRecord(ctx, identity.ID, chain)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, op, err)
	}
	if wallet == nil {
		return nil, wrapErrors.Newf(wrapErrors.CodeNotFound, "wallet not found", "no %s wallet", chain)
	}

	balance, err := provider.Balance(ctx, common.HexToAddress(wallet.Address))
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, op, err)
	}
	return &entity.Asset{
		Chain:   chain,
		Symbol:  provider.Symbol(),
		Balance: balance,
		Address: wallet.Address,
	}, nil
}

// Swap is not offered.
func (s *WalletService) Swap(context.Context, string, string, string, string) error {
	return wrapErrors.New(wrapErrors.CodeUnsupported, "token swaps are not supported")
}

// CrossChainTransfer is not offered.
func (s *WalletService) CrossChainTransfer(context.Context, string, string, string, string, string) error {
	return wrapErrors.New(wrapErrors.CodeUnsupported, "cross-chain transfers are not supported")
}
