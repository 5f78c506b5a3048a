package domain

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/entity"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
)

// DisclosureNotice accompanies every one-time disclosure of fresh secrets.
const DisclosureNotice = "Save your private key and recovery phrase somewhere safe now. " +
	"They will never be shown again; delete this message once you have stored them."

// CreationResult never carries secret material.
type CreationResult struct {
	Created  bool
	Address  string
	RecordID string
}

// Disclosure is the plaintext of a newly generated wallet, handed out once.
type Disclosure struct {
	Address    string
	PrivateKey string
	Mnemonic   string
	Notice     string
}

// DiscloseFunc receives the plaintext secrets of a new wallet. It must not
// retain them after it returns.
type DiscloseFunc func(Disclosure)

type WalletProvisioner struct {
	store      IdentityStore
	cipher     *KeyCipher
	passphrase string
	chains     ChainRegistry
	logger     *slog.Logger
	now        func() time.Time
}

func NewWalletProvisioner(store IdentityStore, cipher *KeyCipher, passphrase string, chains ChainRegistry, log *slog.Logger) *WalletProvisioner {
	if log == nil {
		log = logger.Nop()
	}
	return &WalletProvisioner{
		store:      store,
		cipher:     cipher,
		passphrase: passphrase,
		chains:     chains,
		logger:     log,
		now:        time.Now,
	}
}

/*
Create provisions the wallet of identity on chain.

  - An existing record is returned untouched with Created=false.
  - Otherwise a keypair and recovery phrase are generated, each encrypted on
    its own, and the record is inserted. disclose (optional) sees the
    plaintexts exactly once, after the insert succeeded.
  - Losing an insert race to a concurrent Create is reported like an
    existing record.
*/
func (p *WalletProvisioner) Create(ctx context.Context, identity *entity.Identity, chain string, disclose DiscloseFunc) (*CreationResult, error) {
	const op = "create wallet"

	if identity == nil || identity.ID == "" {
		return nil, wrapErrors.Newf(wrapErrors.CodeValidation, op, "identity is required")
	}
	chain = strings.ToLower(strings.TrimSpace(chain))
	if _, err := p.chains.Provider(chain); err != nil {
		return nil, err
	}

	existing, err := p.store.FindWalletRecord(ctx, identity.ID, chain)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "find wallet record", err)
	}
	if existing != nil {
		p.logger.Info("wallet already provisioned", "identity_id", identity.ID, "chain", chain, "address", existing.Address)
		return &CreationResult{Created: false, Address: existing.Address, RecordID: existing.ID}, nil
	}

	keys, err := generateKeyMaterial()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, op, err)
	}
	defer keys.wipe()

	privHex := keys.privateKeyHex()
	encKey, err := p.cipher.EncryptString(privHex, p.passphrase)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "encrypt private key", err)
	}
	encMnemonic, err := p.cipher.EncryptString(keys.mnemonic, p.passphrase)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "encrypt mnemonic", err)
	}

	record := &entity.WalletRecord{
		IdentityID:          identity.ID,
		Chain:               chain,
		Address:             keys.address.Hex(),
		EncryptedPrivateKey: encKey,
		EncryptedMnemonic:   encMnemonic,
		CreatedAt:           p.now().UTC(),
	}
	saved, err := p.store.InsertWalletRecord(ctx, record)
	if stderrors.Is(err, wrapErrors.ErrDuplicate) {
		return p.raceLost(ctx, identity.ID, chain)
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "insert wallet record", err)
	}

	p.logger.Info("wallet provisioned", "identity_id", identity.ID, "chain", chain, "address", saved.Address)

	if disclose != nil {
		disclose(Disclosure{
			Address:    saved.Address,
			PrivateKey: privHex,
			Mnemonic:   keys.mnemonic,
			Notice:     DisclosureNotice,
		})
	}
	return &CreationResult{Created: true, Address: saved.Address, RecordID: saved.ID}, nil
}

func (p *WalletProvisioner) raceLost(ctx context.Context, identityID, chain string) (*CreationResult, error) {
	existing, err := p.store.FindWalletRecord(ctx, identityID, chain)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "find wallet record", err)
	}
	if existing == nil {
		return nil, wrapErrors.Newf(wrapErrors.CodeInternal, "create wallet", "duplicate insert but no record for chain %s", chain)
	}
	p.logger.Info("concurrent wallet create resolved", "identity_id", identityID, "chain", chain, "address", existing.Address)
	return &CreationResult{Created: false, Address: existing.Address, RecordID: existing.ID}, nil
}
