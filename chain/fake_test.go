package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var testResolver = common.HexToAddress("0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63")

// fakeBackend answers eth calls from in-memory ENS state. Calls to unknown
// contracts return no data, as calls to addresses without code do.
type fakeBackend struct {
	mu sync.Mutex

	resolvers map[common.Hash]common.Address
	addrs     map[common.Hash]common.Address
	names     map[common.Hash]string
	texts     map[string]string
	coins     map[string][]byte
	hashes    map[common.Hash][]byte
	callErr   error

	// wildcard makes testResolver an ENSIP-10 extended resolver
	wildcard    bool
	lastDNSName []byte

	chainID  *big.Int
	receipts []*types.Receipt // served in order, nil entries mean not found yet
	polls    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		resolvers: make(map[common.Hash]common.Address),
		addrs:     make(map[common.Hash]common.Address),
		names:     make(map[common.Hash]string),
		texts:     make(map[string]string),
		coins:     make(map[string][]byte),
		hashes:    make(map[common.Hash][]byte),
		chainID:   big.NewInt(1),
	}
}

// register points name at addr through testResolver.
func (f *fakeBackend) register(name string, addr common.Address) common.Hash {
	node := NameHash(name)
	f.resolvers[node] = testResolver
	f.addrs[node] = addr
	return node
}

// setPrimary records name as addr's reverse record.
func (f *fakeBackend) setPrimary(addr common.Address, name string) {
	node := NameHash(reverseName(addr))
	f.resolvers[node] = testResolver
	f.names[node] = name
}

func (f *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 3, nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return f.chainID, nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	r := f.receipts[0]
	f.receipts = f.receipts[1:]
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	switch *msg.To {
	case ENSRegistryAddress:
		node, _ := unpackCall(registryABI, msg.Data)
		return registryABI.Methods["resolver"].Outputs.Pack(f.resolvers[node])
	case testResolver:
		if method, err := resolverABI.MethodById(msg.Data[:4]); err == nil {
			node, args := unpackCall(resolverABI, msg.Data)
			switch method.Name {
			case "addr":
				return method.Outputs.Pack(f.addrs[node])
			case "name":
				return method.Outputs.Pack(f.names[node])
			case "text":
				return method.Outputs.Pack(f.texts[node.Hex()+"/"+args[1].(string)])
			case "contenthash":
				return method.Outputs.Pack(f.hashes[node])
			}
		}
		if method, err := wildcardABI.MethodById(msg.Data[:4]); err == nil {
			switch method.Name {
			case "supportsInterface":
				return method.Outputs.Pack(f.wildcard)
			case "resolve":
				args, err := method.Inputs.Unpack(msg.Data[4:])
				if err != nil {
					return nil, err
				}
				f.lastDNSName = args[0].([]byte)
				inner := args[1].([]byte)
				res, err := f.CallContract(ctx, ethereum.CallMsg{To: &testResolver, Data: inner}, nil)
				if err != nil {
					return nil, err
				}
				return method.Outputs.Pack(res)
			}
		}
		node, args := unpackCall(multicoinABI, msg.Data)
		coin := args[1].(*big.Int)
		return multicoinABI.Methods["addr"].Outputs.Pack(f.coins[fmt.Sprintf("%s/%s", node.Hex(), coin)])
	}
	return nil, nil
}

func unpackCall(contract abi.ABI, data []byte) (common.Hash, []interface{}) {
	method, err := contract.MethodById(data[:4])
	if err != nil {
		panic(err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		panic(err)
	}
	return common.Hash(args[0].([32]byte)), args
}

type fakeRaw struct {
	method string
	args   []interface{}
	hash   common.Hash
	err    error
}

func (f *fakeRaw) CallContext(_ context.Context, result interface{}, method string, args ...interface{}) error {
	f.method, f.args = method, args
	if f.err != nil {
		return f.err
	}
	*result.(*common.Hash) = f.hash
	return nil
}
