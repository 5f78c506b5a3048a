package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameHash computes the ENS node of an already normalised name (EIP-137).
func NameHash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node[:], label)
	}
	return node
}

// reverseName is the name under which addr's primary name is recorded.
func reverseName(addr common.Address) string {
	return strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse"
}

// dnsEncode writes name in DNS wire format: length-prefixed labels ending in
// a zero byte.
func dnsEncode(name string) ([]byte, error) {
	out := make([]byte, 0, len(name)+2)
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 || len(label) > 255 {
			return nil, fmt.Errorf("dns encode %q: bad label length", name)
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0), nil
}
