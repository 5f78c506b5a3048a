package utils

/*
BIP-44 path: m / purpose' / coin_type' / account' / change / address_index

	m        master key derived from the mnemonic seed
	44'      purpose, hardened
	60'      coin type, 60 = Ethereum
	0'       account
	0        external chain
	0        address index

Every wallet this service provisions lives at index 0: one keypair per
(identity, chain).
*/
const (
	ETH_DERIVATION_PATH_PREFIX = "m/44'/60'/0'/0/"
	ETH_DERIVATION_PATH        = ETH_DERIVATION_PATH_PREFIX + "0"

	// Gas used by a plain value transfer to an EOA.
	TRANSFER_GAS_UNITS = 21000

	// Entropy for a 12-word recovery phrase.
	MNEMONIC_ENTROPY_BITS = 128
)
