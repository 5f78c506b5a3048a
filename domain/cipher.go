package domain

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
)

// NOTE:
//   - Secrets are sealed with AES-256-GCM under a key derived by scrypt.
//   - New secrets are encoded "scrypt$<N>$<salt>:nonce:tag:ciphertext" (hex
//     fields) with a random per-secret salt. N travels with the secret, so
//     raising the configured cost only affects secrets written afterwards.
//   - Secrets written by the chat bot before the rewrite are
//     "nonce:tag:ciphertext" and were all derived with the fixed salt "salt"
//     and Node's scrypt defaults; those are still readable but never written.

const (
	keyLen   = 32
	saltSize = 16
	nonceLen = 12
	tagSize  = 16

	scryptR = 8
	scryptP = 1

	// DefaultScryptN is about 32MB of memory per derivation.
	DefaultScryptN = 1 << 15

	// upper bound accepted from stored secrets, 1GB of memory
	maxScryptN = 1 << 20

	legacyScryptN = 1 << 14
	legacySalt    = "salt"

	kdfTag = "scrypt"
)

var errMalformedSecret = errors.New("malformed encrypted secret")

// EncryptedSecret is the at-rest form of one secret string. Salt is nil for
// legacy secrets.
type EncryptedSecret struct {
	N          int
	Salt       []byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// IsLegacy reports whether the secret uses the fixed-salt three-field format.
func (s *EncryptedSecret) IsLegacy() bool {
	return s.Salt == nil
}

// String encodes the secret in its storage form.
func (s *EncryptedSecret) String() string {
	fields := []string{
		hex.EncodeToString(s.Nonce),
		hex.EncodeToString(s.Tag),
		hex.EncodeToString(s.Ciphertext),
	}
	if !s.IsLegacy() {
		kdf := fmt.Sprintf("%s$%d$%s", kdfTag, s.N, hex.EncodeToString(s.Salt))
		fields = append([]string{kdf}, fields...)
	}
	return strings.Join(fields, ":")
}

// ParseEncryptedSecret decodes the storage form produced by String. Any
// structural problem is reported as an integrity error.
func ParseEncryptedSecret(encoded string) (*EncryptedSecret, error) {
	const op = "parse encrypted secret"

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}
	var s EncryptedSecret
	s.N = legacyScryptN
	if len(parts) == 4 {
		n, salt, err := parseKDFField(parts[0])
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
		}
		s.N, s.Salt, parts = n, salt, parts[1:]
	}

	raw := make([][]byte, len(parts))
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil {
			return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
		}
		raw[i] = b
	}
	s.Nonce, s.Tag, s.Ciphertext = raw[0], raw[1], raw[2]

	// GCM accepts other nonce sizes, but only 12 and 16 were ever written.
	if (len(s.Nonce) != nonceLen && len(s.Nonce) != 16) || len(s.Tag) != tagSize {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}
	return &s, nil
}

// parseKDFField reads "scrypt$<N>$<salt hex>".
func parseKDFField(field string) (int, []byte, error) {
	meta := strings.Split(field, "$")
	if len(meta) != 3 || meta[0] != kdfTag {
		return 0, nil, errMalformedSecret
	}
	n, err := strconv.Atoi(meta[1])
	if err != nil || !validScryptN(n) {
		return 0, nil, errMalformedSecret
	}
	salt, err := hex.DecodeString(meta[2])
	if err != nil || len(salt) != saltSize {
		return 0, nil, errMalformedSecret
	}
	return n, salt, nil
}

func validScryptN(n int) bool {
	return n > 1 && n <= maxScryptN && n&(n-1) == 0
}

// KeyCipher seals and opens secret strings with a passphrase.
type KeyCipher struct {
	scryptN int
	rand    io.Reader
}

// NewKeyCipher seals new secrets with cost scryptN. Existing secrets are
// opened with the cost stored alongside them.
func NewKeyCipher(scryptN int) *KeyCipher {
	if !validScryptN(scryptN) {
		scryptN = DefaultScryptN
	}
	return &KeyCipher{scryptN: scryptN, rand: rand.Reader}
}

// Encrypt seals plaintext under a fresh salt and nonce.
func (c *KeyCipher) Encrypt(plaintext, passphrase string) (*EncryptedSecret, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, c.scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clearBytes(key)

	gcm, err := newGCM(key, nonceLen)
	if err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - tagSize

	return &EncryptedSecret{
		N:          c.scryptN,
		Salt:       salt,
		Nonce:      nonce,
		Tag:        sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// Decrypt opens secret. A wrong passphrase, a tampered field and a malformed
// secret are indistinguishable to the caller: all are integrity errors.
func (c *KeyCipher) Decrypt(secret *EncryptedSecret, passphrase string) (string, error) {
	const op = "decrypt secret"

	if secret == nil || len(secret.Tag) != tagSize || len(secret.Nonce) == 0 {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}

	salt, n := secret.Salt, secret.N
	if secret.IsLegacy() {
		salt, n = []byte(legacySalt), legacyScryptN
	}
	if !validScryptN(n) {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}
	key, err := scrypt.Key([]byte(passphrase), salt, n, scryptR, scryptP, keyLen)
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}
	defer clearBytes(key)

	gcm, err := newGCM(key, len(secret.Nonce))
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeIntegrity, op, errMalformedSecret)
	}

	sealed := make([]byte, 0, len(secret.Ciphertext)+tagSize)
	sealed = append(sealed, secret.Ciphertext...)
	sealed = append(sealed, secret.Tag...)

	plain, err := gcm.Open(nil, secret.Nonce, sealed, nil)
	if err != nil {
		// do not surface the crypto error; it says nothing useful and may
		// tempt callers to branch on it
		return "", wrapErrors.New(wrapErrors.CodeIntegrity, "incorrect passphrase or corrupted data")
	}
	defer clearBytes(plain)
	return string(plain), nil
}

// EncryptString is Encrypt followed by String.
func (c *KeyCipher) EncryptString(plaintext, passphrase string) (string, error) {
	s, err := c.Encrypt(plaintext, passphrase)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// DecryptString parses and decrypts an encoded secret.
func (c *KeyCipher) DecryptString(encoded, passphrase string) (string, error) {
	s, err := ParseEncryptedSecret(encoded)
	if err != nil {
		return "", err
	}
	return c.Decrypt(s, passphrase)
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	if nonceSize == nonceLen {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
