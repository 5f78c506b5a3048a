package domain

import (
	"context"
	"crypto/ecdsa"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
	"github.com/linlinbupt123-crypto/chat_wallet/utils"
)

// TransferRequest moves Amount wei from the wallet of Handle on Chain to
// Recipient, which is either a 0x address or a name.
type TransferRequest struct {
	Handle    string
	Recipient string
	Amount    *big.Int
	Chain     string
}

// TransferResult is the single outcome of a transfer. Success results carry
// the receipt fields; failures carry Code. TxHash is also set on failures
// that happen after submission.
type TransferResult struct {
	Success      bool
	Code         wrapErrors.Code
	Message      string
	TxHash       string
	BlockNumber  *big.Int
	Amount       *big.Int
	Recipient    string
	ResolvedFrom string
}

type TransferExecutor struct {
	store      IdentityStore
	chains     ChainRegistry
	names      *NameResolver
	cipher     *KeyCipher
	passphrase string
	logger     *slog.Logger

	// ConfirmTimeout bounds the wait for a receipt; 0 waits as long as ctx.
	ConfirmTimeout time.Duration
}

func NewTransferExecutor(store IdentityStore, chains ChainRegistry, names *NameResolver, cipher *KeyCipher, passphrase string, log *slog.Logger) *TransferExecutor {
	if log == nil {
		log = logger.Nop()
	}
	return &TransferExecutor{
		store:      store,
		chains:     chains,
		names:      names,
		cipher:     cipher,
		passphrase: passphrase,
		logger:     log,
	}
}

// transferRun is the state of one Execute call. Nothing in it outlives the
// call.
type transferRun struct {
	req      TransferRequest
	provider ChainStateProvider

	identity *entity.Identity
	wallet   *entity.WalletRecord
	secret   *EncryptedSecret
	key      *ecdsa.PrivateKey
	from     common.Address

	to           common.Address
	resolvedFrom string

	balance *big.Int
	feeRate *big.Int
	fee     *big.Int

	txHash  common.Hash
	receipt *Receipt
}

type transferStage struct {
	name string
	run  func(ctx context.Context, r *transferRun) error
	// submitted marks stages that run after the transaction left this process
	submitted bool
}

// Execute runs the transfer pipeline. It never returns an error: every
// failure, expected or not, is a TransferResult with a Code.
func (e *TransferExecutor) Execute(ctx context.Context, req TransferRequest) *TransferResult {
	run := &transferRun{req: req}
	defer run.wipe()

	log := e.logger.With("handle", req.Handle, "chain", req.Chain)

	if err := e.validate(run); err != nil {
		return e.fail(log, run, "validate", err)
	}

	stages := []transferStage{
		{name: "resolve identity", run: e.resolveIdentity},
		{name: "resolve wallet", run: e.resolveWallet},
		{name: "validate key material", run: e.validateKeyMaterial},
		{name: "decrypt key", run: e.decryptKey},
		{name: "resolve recipient", run: e.resolveRecipient},
		{name: "fetch chain state", run: e.fetchChainState},
		{name: "check balance", run: e.checkAmount},
		{name: "check balance for fee", run: e.checkAmountWithFee},
		{name: "sign and submit", run: e.signAndSubmit},
		{name: "await confirmation", run: e.awaitConfirmation, submitted: true},
	}
	for _, st := range stages {
		if !st.submitted {
			if err := ctx.Err(); err != nil {
				return e.fail(log, run, st.name, wrapErrors.WrapWithCode(wrapErrors.CodeCancelled, st.name, err))
			}
		}
		if err := st.run(ctx, run); err != nil {
			return e.fail(log, run, st.name, err)
		}
	}

	amountETH := utils.WeiToETH(req.Amount)
	var msg strings.Builder
	if run.resolvedFrom != "" {
		fmt.Fprintf(&msg, "Sending %s %s to %s (resolved from %s)...\n", amountETH, run.provider.Symbol(), run.to.Hex(), run.resolvedFrom)
	}
	fmt.Fprintf(&msg, "Successfully sent %s %s to %s\n\nTransaction hash: %s\nBlock: %s",
		amountETH, run.provider.Symbol(), run.to.Hex(), run.txHash.Hex(), run.receipt.BlockNumber)

	log.Info("transfer confirmed", "tx_hash", run.txHash.Hex(), "block", run.receipt.BlockNumber.String(), "to", run.to.Hex())
	return &TransferResult{
		Success:      true,
		Message:      msg.String(),
		TxHash:       run.txHash.Hex(),
		BlockNumber:  run.receipt.BlockNumber,
		Amount:       new(big.Int).Set(req.Amount),
		Recipient:    run.to.Hex(),
		ResolvedFrom: run.resolvedFrom,
	}
}

func (e *TransferExecutor) validate(r *transferRun) error {
	const op = "validate transfer"

	r.req.Handle = strings.TrimSpace(r.req.Handle)
	r.req.Recipient = strings.TrimSpace(r.req.Recipient)
	r.req.Chain = strings.ToLower(strings.TrimSpace(r.req.Chain))

	if r.req.Handle == "" {
		return wrapErrors.Newf(wrapErrors.CodeValidation, op, "identity handle is required")
	}
	if r.req.Amount == nil || r.req.Amount.Sign() <= 0 {
		return wrapErrors.Newf(wrapErrors.CodeValidation, op, "amount must be a positive number of wei")
	}
	if !common.IsHexAddress(r.req.Recipient) && !IsName(r.req.Recipient) {
		return wrapErrors.Newf(wrapErrors.CodeValidation, op, "recipient %q is neither an address nor a name", r.req.Recipient)
	}
	provider, err := e.chains.Provider(r.req.Chain)
	if err != nil {
		return err
	}
	r.provider = provider
	return nil
}

func (e *TransferExecutor) resolveIdentity(ctx context.Context, r *transferRun) error {
	identity, err := e.store.FindIdentity(ctx, r.req.Handle)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "find identity", err)
	}
	if identity == nil {
		return wrapErrors.New(wrapErrors.CodeNotFound, "identity not found")
	}
	r.identity = identity
	return nil
}

func (e *TransferExecutor) resolveWallet(ctx context.Context, r *transferRun) error {
	wallet, err := e.store.FindWalletRecord(ctx, r.identity.ID, r.req.Chain)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "find wallet record", err)
	}
	if wallet == nil {
		return wrapErrors.Newf(wrapErrors.CodeNotFound, "wallet not found", "no %s wallet, create one first", r.req.Chain)
	}
	r.wallet = wallet
	return nil
}

func (e *TransferExecutor) validateKeyMaterial(_ context.Context, r *transferRun) error {
	if strings.TrimSpace(r.wallet.EncryptedPrivateKey) == "" {
		return wrapErrors.New(wrapErrors.CodeIntegrity, "wallet has no private key")
	}
	if !common.IsHexAddress(r.wallet.Address) {
		return wrapErrors.New(wrapErrors.CodeIntegrity, "wallet address is malformed")
	}
	secret, err := ParseEncryptedSecret(r.wallet.EncryptedPrivateKey)
	if err != nil {
		return err
	}
	r.secret = secret
	return nil
}

func (e *TransferExecutor) decryptKey(_ context.Context, r *transferRun) error {
	plain, err := e.cipher.Decrypt(r.secret, e.passphrase)
	if err != nil {
		return err
	}
	key, err := parsePrivateKeyHex(plain)
	if err != nil {
		// the parse error could echo key bytes, drop it
		return wrapErrors.New(wrapErrors.CodeIntegrity, "decrypted private key is malformed")
	}
	r.key = key
	r.from = crypto.PubkeyToAddress(key.PublicKey)
	if r.from != common.HexToAddress(r.wallet.Address) {
		return wrapErrors.New(wrapErrors.CodeIntegrity, "private key does not match wallet address")
	}
	return nil
}

func (e *TransferExecutor) resolveRecipient(ctx context.Context, r *transferRun) error {
	if common.IsHexAddress(r.req.Recipient) {
		r.to = common.HexToAddress(r.req.Recipient)
		return nil
	}
	addr, found, err := e.names.Resolve(ctx, r.req.Recipient)
	if err != nil {
		if wrapErrors.Is(err, wrapErrors.CodeValidation) {
			return err
		}
		return wrapErrors.WrapWithCode(wrapErrors.CodeNameResolution, "resolve recipient", err)
	}
	if !found {
		return wrapErrors.Newf(wrapErrors.CodeNameResolution, "resolve recipient", "could not resolve %s", r.req.Recipient)
	}
	r.to = addr
	r.resolvedFrom = r.req.Recipient
	return nil
}

func (e *TransferExecutor) fetchChainState(ctx context.Context, r *transferRun) error {
	balance, err := r.provider.Balance(ctx, r.from)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "get balance", err)
	}
	feeRate, err := r.provider.FeeRate(ctx)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "get fee rate", err)
	}
	r.balance = balance
	r.feeRate = feeRate
	r.fee = new(big.Int).Mul(feeRate, big.NewInt(utils.TRANSFER_GAS_UNITS))
	return nil
}

func (e *TransferExecutor) checkAmount(_ context.Context, r *transferRun) error {
	if r.balance.Cmp(r.req.Amount) < 0 {
		return wrapErrors.Newf(wrapErrors.CodeInsufficientBalance, "check balance",
			"you have %s %s, but are trying to send %s %s",
			utils.WeiToETH(r.balance), r.provider.Symbol(), utils.WeiToETH(r.req.Amount), r.provider.Symbol())
	}
	return nil
}

func (e *TransferExecutor) checkAmountWithFee(_ context.Context, r *transferRun) error {
	total := new(big.Int).Add(r.req.Amount, r.fee)
	if r.balance.Cmp(total) < 0 {
		return wrapErrors.Newf(wrapErrors.CodeInsufficientBalanceFee, "check balance for fee",
			"need %s %s (%s + ~%s gas), have %s",
			utils.WeiToETH(total), r.provider.Symbol(), utils.WeiToETH(r.req.Amount), utils.WeiToETH(r.fee), utils.WeiToETH(r.balance))
	}
	return nil
}

func (e *TransferExecutor) signAndSubmit(ctx context.Context, r *transferRun) error {
	nonce, err := r.provider.PendingNonce(ctx, r.from)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "pending nonce", err)
	}
	chainID, err := r.provider.ChainID(ctx)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "chain id", err)
	}

	// tip == cap keeps the worst-case fee at exactly feeRate*gas, the figure
	// the sufficiency check used
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: r.feeRate,
		GasFeeCap: r.feeRate,
		Gas:       utils.TRANSFER_GAS_UNITS,
		To:        &r.to,
		Value:     r.req.Amount,
	})
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), r.key)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeSubmissionFailed, "sign transaction", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeSubmissionFailed, "encode transaction", err)
	}

	if ctx.Err() != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeCancelled, "sign and submit", ctx.Err())
	}
	// the hash is known before broadcast; keep it so an interrupted submit
	// can still be traced
	r.txHash = signed.Hash()

	hash, err := r.provider.SubmitSignedTransaction(ctx, raw)
	if err != nil {
		if ctx.Err() != nil {
			return wrapErrors.WrapWithCode(wrapErrors.CodeConfirmationPending, "submit interrupted, transaction may have been broadcast", err)
		}
		r.txHash = common.Hash{}
		return wrapErrors.WrapWithCode(wrapErrors.CodeSubmissionFailed, "submit transaction", err)
	}
	if hash != (common.Hash{}) {
		r.txHash = hash
	}
	e.logger.Info("transaction submitted", "tx_hash", r.txHash.Hex(), "chain", r.req.Chain, "nonce", nonce)
	return nil
}

func (e *TransferExecutor) awaitConfirmation(ctx context.Context, r *transferRun) error {
	if e.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.ConfirmTimeout)
		defer cancel()
	}
	receipt, err := r.provider.AwaitReceipt(ctx, r.txHash)
	if err != nil {
		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return wrapErrors.WrapWithCode(wrapErrors.CodeConfirmationPending, "await confirmation", err)
		}
		return wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "await confirmation", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return wrapErrors.Newf(wrapErrors.CodeChainRejection, "transaction reverted", "included in block %s with failed status", receipt.BlockNumber)
	}
	r.receipt = receipt
	return nil
}

func (e *TransferExecutor) fail(log *slog.Logger, r *transferRun, stage string, err error) *TransferResult {
	code := wrapErrors.CodeOf(err)
	res := &TransferResult{
		Success: false,
		Code:    code,
		Message: failureMessage(code, err, r),
	}
	if r.txHash != (common.Hash{}) {
		res.TxHash = r.txHash.Hex()
	}
	log.Warn("transfer failed", "stage", stage, "code", string(code), "tx_hash", res.TxHash, "err", err)
	return res
}

// failureMessage is what the user reads. Integrity failures say nothing about
// why decryption failed.
func failureMessage(code wrapErrors.Code, err error, r *transferRun) string {
	var appErr *wrapErrors.AppError
	detail := ""
	if stderrors.As(err, &appErr) && appErr.Err != nil && code != wrapErrors.CodeIntegrity && code != wrapErrors.CodeNetwork {
		detail = appErr.Err.Error()
	}

	switch code {
	case wrapErrors.CodeValidation:
		return "Invalid transfer request: " + detail
	case wrapErrors.CodeNotFound:
		if r.identity == nil {
			return "User not found. Please create a wallet first."
		}
		return fmt.Sprintf("No %s wallet found. Please create a wallet first.", r.req.Chain)
	case wrapErrors.CodeIntegrity:
		return "Wallet configuration error: the stored private key could not be used."
	case wrapErrors.CodeNameResolution:
		return fmt.Sprintf("Could not resolve name %s. Please verify the name is correct.", r.req.Recipient)
	case wrapErrors.CodeInsufficientBalance:
		return "Insufficient balance. " + capitalize(detail) + "."
	case wrapErrors.CodeInsufficientBalanceFee:
		return "Insufficient balance for gas. " + capitalize(detail) + "."
	case wrapErrors.CodeNetwork:
		return "The blockchain or wallet service is unreachable right now. Please try again later."
	case wrapErrors.CodeSubmissionFailed:
		return "The transaction could not be submitted: " + detail
	case wrapErrors.CodeChainRejection:
		return fmt.Sprintf("Transaction failed on chain. Transaction hash: %s", r.txHash.Hex())
	case wrapErrors.CodeCancelled:
		return "Transfer cancelled before anything was sent."
	case wrapErrors.CodeConfirmationPending:
		return fmt.Sprintf("Transaction %s was sent but is not confirmed yet. Check its status later.", r.txHash.Hex())
	default:
		return "Transfer failed."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (r *transferRun) wipe() {
	if r.key != nil && r.key.D != nil {
		r.key.D.SetInt64(0)
	}
	r.key = nil
	r.secret = nil
}
