package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/linlinbupt123-crypto/chat_wallet/config"
	"github.com/linlinbupt123-crypto/chat_wallet/domain"
	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
)

// Registry holds one provider per configured chain name.
type Registry struct {
	providers map[string]domain.ChainStateProvider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domain.ChainStateProvider)}
}

// Register adds or replaces the provider for name.
func (r *Registry) Register(name string, p domain.ChainStateProvider) {
	r.providers[strings.ToLower(name)] = p
}

func (r *Registry) Provider(name string) (domain.ChainStateProvider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, wrapErrors.Newf(wrapErrors.CodeValidation, "select chain", "unsupported chain %q", name)
	}
	return p, nil
}

func (r *Registry) Chains() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DialAll connects every configured chain and returns the registry together
// with the ETHChain values so the caller can reach ENS records and close
// connections.
func DialAll(ctx context.Context, chains []config.EthConfig, poll time.Duration, log *slog.Logger) (*Registry, map[string]*ETHChain, error) {
	reg := NewRegistry()
	dialed := make(map[string]*ETHChain, len(chains))
	for _, c := range chains {
		eth := NewETHChain(c, poll, log)
		if err := eth.Dial(ctx); err != nil {
			for _, d := range dialed {
				d.Close()
			}
			return nil, nil, fmt.Errorf("chain %s: %w", c.Name, err)
		}
		reg.Register(c.Name, eth)
		dialed[strings.ToLower(c.Name)] = eth
	}
	return reg, dialed, nil
}
