package domain

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/linlinbupt123-crypto/chat_wallet/utils"
)

// keyMaterial is a freshly generated wallet. Callers must call wipe once the
// plaintext has been encrypted and disclosed.
type keyMaterial struct {
	privateKey *ecdsa.PrivateKey
	mnemonic   string
	address    common.Address
}

func (k *keyMaterial) privateKeyHex() string {
	b := crypto.FromECDSA(k.privateKey)
	defer clearBytes(b)
	return hexutil.Encode(b)
}

func (k *keyMaterial) wipe() {
	if k.privateKey != nil && k.privateKey.D != nil {
		k.privateKey.D.SetInt64(0)
	}
	k.mnemonic = ""
}

// generateKeyMaterial creates a 12-word mnemonic and derives the first
// Ethereum account from it, the same account any BIP-44 wallet would show.
func generateKeyMaterial() (*keyMaterial, error) {
	entropy, err := bip39.NewEntropy(utils.MNEMONIC_ENTROPY_BITS)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	defer clearBytes(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}

	// empty BIP39 passphrase: the phrase alone must restore the wallet
	seed := bip39.NewSeed(mnemonic, "")
	defer clearBytes(seed)

	priv, addr, err := deriveETHKeyPair(seed, utils.ETH_DERIVATION_PATH)
	if err != nil {
		return nil, err
	}
	return &keyMaterial{privateKey: priv, mnemonic: mnemonic, address: addr}, nil
}

// deriveETHKeyPair derives an Ethereum key from seed along a BIP32 path.
// path: "m/44'/60'/0'/0/0" or "44'/60'/0'/0/0"
func deriveETHKeyPair(seed []byte, path string) (*ecdsa.PrivateKey, common.Address, error) {
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams) // network params do not affect eth keys
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to create master key: %w", err)
	}

	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid derivation path: %w", err)
	}

	key := master
	for _, idx := range indices {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("failed to derive child key: %w", err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to get EC private key: %w", err)
	}
	privBytes := priv.Serialize()
	ecdsaKey, err := crypto.ToECDSA(privBytes)
	clearBytes(privBytes)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to convert to ecdsa: %w", err)
	}
	return ecdsaKey, crypto.PubkeyToAddress(ecdsaKey.PublicKey), nil
}

// parsePrivateKeyHex accepts a 32-byte key with or without 0x prefix.
func parsePrivateKeyHex(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return crypto.HexToECDSA(s)
}

// parseDerivationPath accepts "m/44'/60'/0'/0/0" or "44'/60'/0'/0/0"
func parseDerivationPath(path string) ([]uint32, error) {
	p := strings.TrimSpace(path)
	if strings.HasPrefix(p, "m/") || strings.HasPrefix(p, "M/") {
		p = p[2:]
	}
	if p == "" {
		return nil, errors.New("empty derivation path")
	}
	parts := strings.Split(p, "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, errors.New("invalid path segment")
		}
		hardened := strings.HasSuffix(part, "'")
		if hardened {
			part = strings.TrimSuffix(part, "'")
		}
		v, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errors.New("invalid derivation index")
		}
		idx := uint32(v)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, idx)
	}
	return indices, nil
}
