package chain

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/linlinbupt123-crypto/chat_wallet/config"
	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
)

// ethBackend is the subset of *ethclient.Client the adapter uses.
type ethBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// rawSender relays already-signed transactions.
type rawSender interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

type ETHChain struct {
	Name      string
	Rpc       string
	TestToken string
	MainNet   bool

	symbol  string
	chainID *big.Int // configured id, 0 = accept whatever the node reports

	client       ethBackend
	raw          rawSender
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewETHChain(cfg config.EthConfig, poll time.Duration, log *slog.Logger) *ETHChain {
	if log == nil {
		log = logger.Nop()
	}
	if poll <= 0 {
		poll = 2 * time.Second
	}
	symbol := cfg.Symbol
	if symbol == "" {
		symbol = "ETH"
	}
	return &ETHChain{
		Name:         cfg.Name,
		Rpc:          cfg.RPC,
		TestToken:    cfg.TestToken,
		MainNet:      cfg.MainNet,
		symbol:       symbol,
		chainID:      big.NewInt(cfg.ChainID),
		pollInterval: poll,
		logger:       log.With("chain", cfg.Name),
	}
}

// Dial connects the RPC client. It must be called before any other method.
func (e *ETHChain) Dial(ctx context.Context) error {
	link := fmt.Sprintf("%s%s", e.Rpc, e.TestToken)
	client, err := ethclient.DialContext(ctx, link)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.DailChain, "eth dial", err)
	}
	e.client = client
	e.raw = client.Client()
	return nil
}

// Close releases the RPC connection.
func (e *ETHChain) Close() {
	if c, ok := e.client.(*ethclient.Client); ok {
		c.Close()
	}
}

func (e *ETHChain) Symbol() string {
	return e.symbol
}

func (e *ETHChain) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return e.client.BalanceAt(ctx, addr, nil)
}

// FeeRate is the node's suggested gas price in wei.
func (e *ETHChain) FeeRate(ctx context.Context) (*big.Int, error) {
	return e.client.SuggestGasPrice(ctx)
}

func (e *ETHChain) PendingNonce(ctx context.Context, addr common.Address) (uint64, error) {
	nonce, err := e.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, wrapErrors.WrapWithCode(wrapErrors.PendingNonceAt, "PendingNonceAt", err)
	}
	return nonce, nil
}

// ChainID asks the node and checks it against the configured id, if any.
func (e *ETHChain) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := e.client.ChainID(ctx)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.GetchainIDErr, "get chainID", err)
	}
	if e.chainID.Sign() > 0 && e.chainID.Cmp(id) != 0 {
		return nil, wrapErrors.Newf(wrapErrors.GetchainIDErr, "get chainID", "node reports chain %s, configured %s", id, e.chainID)
	}
	return id, nil
}

func (e *ETHChain) SubmitSignedTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	if err := e.raw.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw)); err != nil {
		return common.Hash{}, wrapErrors.WrapWithCode(wrapErrors.SendTxErr, "SendTransaction", err)
	}
	return hash, nil
}

// AwaitReceipt polls for the receipt of hash until it exists or ctx ends.
func (e *ETHChain) AwaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return &domain.Receipt{Status: receipt.Status, BlockNumber: receipt.BlockNumber}, nil
		}
		if !stderrors.Is(err, ethereum.NotFound) {
			e.logger.Debug("receipt poll failed", "tx_hash", hash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
