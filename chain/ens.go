package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ENSRegistryAddress is the registry deployed at the same address on mainnet
// and the public testnets.
var ENSRegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const (
	registryABIJSON = `[
		{"name":"resolver","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]}
	]`
	resolverABIJSON = `[
		{"name":"addr","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
		{"name":"name","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]},
		{"name":"text","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]},
		{"name":"contenthash","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"bytes"}]}
	]`
	// addr(bytes32,uint256) overloads addr(bytes32); kept apart so neither
	// gets a generated name
	// ENSIP-10 extended resolver
	wildcardABIJSON = `[
		{"name":"supportsInterface","type":"function","stateMutability":"view",
		 "inputs":[{"name":"interfaceID","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}]},
		{"name":"resolve","type":"function","stateMutability":"view",
		 "inputs":[{"name":"name","type":"bytes"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes"}]}
	]`
	multicoinABIJSON = `[
		{"name":"addr","type":"function","stateMutability":"view",
		 "inputs":[{"name":"node","type":"bytes32"},{"name":"coinType","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]}
	]`
)

var (
	registryABI  = mustParseABI(registryABIJSON)
	resolverABI  = mustParseABI(resolverABIJSON)
	multicoinABI = mustParseABI(multicoinABIJSON)
	wildcardABI  = mustParseABI(wildcardABIJSON)

	extendedResolverID = [4]byte{0x90, 0x61, 0xb9, 0x23}
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ResolveName returns the address record of name. name must already be
// normalised.
func (e *ETHChain) ResolveName(ctx context.Context, name string) (common.Address, bool, error) {
	var addr common.Address
	ok, err := e.recordCall(ctx, name, resolverABI, "addr", &addr, [32]byte(NameHash(name)))
	if err != nil || !ok || addr == (common.Address{}) {
		return common.Address{}, false, err
	}
	return addr, true, nil
}

// ReverseLookup returns the primary name of addr, but only if that name
// resolves back to addr.
func (e *ETHChain) ReverseLookup(ctx context.Context, addr common.Address) (string, bool, error) {
	rev := reverseName(addr)
	var name string
	ok, err := e.recordCall(ctx, rev, resolverABI, "name", &name, [32]byte(NameHash(rev)))
	if err != nil || !ok || name == "" {
		return "", false, err
	}

	forward, found, err := e.ResolveName(ctx, name)
	if err != nil {
		return "", false, err
	}
	if !found || forward != addr {
		return "", false, nil
	}
	return name, true, nil
}

func (e *ETHChain) TextRecord(ctx context.Context, name, key string) (string, error) {
	var v string
	if _, err := e.recordCall(ctx, name, resolverABI, "text", &v, [32]byte(NameHash(name)), key); err != nil {
		return "", err
	}
	return v, nil
}

func (e *ETHChain) CoinAddress(ctx context.Context, name string, coinType uint64) ([]byte, error) {
	var v []byte
	if _, err := e.recordCall(ctx, name, multicoinABI, "addr", &v, [32]byte(NameHash(name)), new(big.Int).SetUint64(coinType)); err != nil {
		return nil, err
	}
	return v, nil
}

func (e *ETHChain) ContentHash(ctx context.Context, name string) ([]byte, error) {
	var v []byte
	if _, err := e.recordCall(ctx, name, resolverABI, "contenthash", &v, [32]byte(NameHash(name))); err != nil {
		return nil, err
	}
	return v, nil
}

// recordCall reads one resolver record of name. When only an ancestor has a
// resolver and it implements ENSIP-10, the call goes through its resolve
// method instead.
func (e *ETHChain) recordCall(ctx context.Context, name string, contract abi.ABI, method string, out interface{}, args ...interface{}) (bool, error) {
	resolver, wildcard, err := e.findResolver(ctx, name)
	if err != nil || resolver == (common.Address{}) {
		return false, err
	}
	if !wildcard {
		return e.call(ctx, resolver, contract, method, out, args...)
	}

	inner, err := contract.Pack(method, args...)
	if err != nil {
		return false, fmt.Errorf("pack %s: %w", method, err)
	}
	dnsName, err := dnsEncode(name)
	if err != nil {
		return false, err
	}
	var res []byte
	ok, err := e.call(ctx, resolver, wildcardABI, "resolve", &res, dnsName, inner)
	if err != nil || !ok || len(res) == 0 {
		return false, err
	}
	if err := contract.UnpackIntoInterface(out, method, res); err != nil {
		return false, fmt.Errorf("unpack %s: %w", method, err)
	}
	return true, nil
}

// findResolver returns the resolver of name, walking up to the closest
// ancestor that has one. An ancestor's resolver only counts if it is an
// extended resolver; wildcard reports that case.
func (e *ETHChain) findResolver(ctx context.Context, name string) (common.Address, bool, error) {
	labels := strings.Split(name, ".")
	for i := range labels {
		resolver, err := e.resolverOf(ctx, NameHash(strings.Join(labels[i:], ".")))
		if err != nil {
			return common.Address{}, false, err
		}
		if resolver == (common.Address{}) {
			continue
		}
		if i == 0 {
			return resolver, false, nil
		}
		var extended bool
		ok, err := e.call(ctx, resolver, wildcardABI, "supportsInterface", &extended, extendedResolverID)
		if err != nil || !ok || !extended {
			return common.Address{}, false, err
		}
		return resolver, true, nil
	}
	return common.Address{}, false, nil
}

func (e *ETHChain) resolverOf(ctx context.Context, node common.Hash) (common.Address, error) {
	var resolver common.Address
	if _, err := e.call(ctx, ENSRegistryAddress, registryABI, "resolver", &resolver, [32]byte(node)); err != nil {
		return common.Address{}, err
	}
	return resolver, nil
}

// call runs a view method and decodes its single return value into out.
// ok is false when the contract returned nothing, which is how resolvers
// without the method (or addresses without code) answer.
func (e *ETHChain) call(ctx context.Context, to common.Address, contract abi.ABI, method string, out interface{}, args ...interface{}) (bool, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return false, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("call %s: %w", method, err)
	}
	if len(res) == 0 {
		return false, nil
	}
	if err := contract.UnpackIntoInterface(out, method, res); err != nil {
		return false, fmt.Errorf("unpack %s: %w", method, err)
	}
	return true, nil
}
