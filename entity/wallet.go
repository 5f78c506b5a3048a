package entity

import (
	"time"
)

// WalletRecord is the single custodial keypair an identity holds on a chain.
// Both secrets are encoded EncryptedSecret strings, never plaintext.
type WalletRecord struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	IdentityID          string    `bson:"user_id" json:"user_id"`
	Chain               string    `bson:"chain" json:"chain"`
	Address             string    `bson:"address" json:"address"`
	EncryptedPrivateKey string    `bson:"encrypted_private_key" json:"-"`
	EncryptedMnemonic   string    `bson:"encrypted_mnemonic" json:"-"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}
