package domain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"

	wrapErrors "github.com/linlinbupt123-crypto/chat_wallet/errors"
	"github.com/linlinbupt123-crypto/chat_wallet/logger"
)

var (
	profileTextKeys = []string{"avatar", "email", "url", "description", "com.twitter", "com.github"}

	// SLIP-44 coin types fetched for a profile.
	profileCoins = map[string]uint64{"btc": 0, "ltc": 2, "doge": 3}

	nameProfile = idna.New(idna.MapForLookup(), idna.Transitional(false), idna.StrictDomainName(false))
)

const maxRecordFetches = 4

// NameProfile is everything a name lookup could find. Missing records are
// left empty.
type NameProfile struct {
	Name          string
	Address       common.Address
	PrimaryName   string
	IsPrimary     bool
	TextRecords   map[string]string
	CoinAddresses map[string]string
	ContentHash   string
}

type NameResolver struct {
	chain   ChainStateProvider
	records NameRecords
	logger  *slog.Logger
}

// NewNameResolver builds a resolver on chain. records may be nil, in which
// case Lookup returns profiles without auxiliary records.
func NewNameResolver(chain ChainStateProvider, records NameRecords, log *slog.Logger) *NameResolver {
	if log == nil {
		log = logger.Nop()
	}
	return &NameResolver{chain: chain, records: records, logger: log}
}

// NormalizeName lower-cases and IDNA-maps name. Names must have at least two
// labels.
func NormalizeName(name string) (string, error) {
	n, err := nameProfile.ToUnicode(strings.TrimSpace(name))
	if err != nil {
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeValidation, "normalize name", err)
	}
	n = strings.ToLower(n)
	labels := strings.Split(n, ".")
	if len(labels) < 2 {
		return "", wrapErrors.Newf(wrapErrors.CodeValidation, "normalize name", "%q is not a dotted name", name)
	}
	for _, l := range labels {
		if l == "" {
			return "", wrapErrors.Newf(wrapErrors.CodeValidation, "normalize name", "%q has an empty label", name)
		}
	}
	return n, nil
}

// IsName reports whether s looks like a resolvable name rather than an address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !common.IsHexAddress(s)
}

// Resolve looks up the address for name. An unconfigured name is reported
// with found=false and a nil error.
func (r *NameResolver) Resolve(ctx context.Context, name string) (common.Address, bool, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return common.Address{}, false, err
	}
	addr, found, err := r.chain.ResolveName(ctx, n)
	if err != nil {
		return common.Address{}, false, wrapErrors.WrapWithCode(wrapErrors.CodeNetwork, "resolve name", err)
	}
	if !found || addr == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return addr, true, nil
}

// ReverseLookup returns the primary name of addr. Failures are logged and
// reported as absent.
func (r *NameResolver) ReverseLookup(ctx context.Context, addr common.Address) (string, bool) {
	name, found, err := r.chain.ReverseLookup(ctx, addr)
	if err != nil {
		r.logger.Debug("reverse lookup failed", "address", addr.Hex(), "err", err)
		return "", false
	}
	if !found || name == "" {
		return "", false
	}
	return name, true
}

// Lookup resolves name and gathers its records. Only the primary resolution
// can fail the call; a name without an address is a NOT_FOUND error here
// because there is no profile to return.
func (r *NameResolver) Lookup(ctx context.Context, name string) (*NameProfile, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	addr, found, err := r.Resolve(ctx, n)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, wrapErrors.Newf(wrapErrors.CodeNotFound, "lookup name", "%s has no address configured", n)
	}

	profile := &NameProfile{
		Name:          n,
		Address:       addr,
		TextRecords:   make(map[string]string),
		CoinAddresses: map[string]string{"eth": addr.Hex()},
	}
	if r.records != nil {
		r.fetchRecords(ctx, n, profile)
	}

	if primary, ok := r.ReverseLookup(ctx, addr); ok {
		profile.PrimaryName = primary
		profile.IsPrimary = primary == n
	}
	return profile, nil
}

// fetchRecords runs every record fetch concurrently; a failed fetch only
// leaves its own field empty.
func (r *NameResolver) fetchRecords(ctx context.Context, name string, profile *NameProfile) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(maxRecordFetches)

	for _, key := range profileTextKeys {
		key := key
		g.Go(func() error {
			v, err := r.records.TextRecord(ctx, name, key)
			if err != nil {
				r.logger.Debug("text record fetch failed", "name", name, "record", key, "err", err)
				return nil
			}
			if v != "" {
				mu.Lock()
				profile.TextRecords[key] = v
				mu.Unlock()
			}
			return nil
		})
	}
	for coin, coinType := range profileCoins {
		coin, coinType := coin, coinType
		g.Go(func() error {
			v, err := r.records.CoinAddress(ctx, name, coinType)
			if err != nil {
				r.logger.Debug("coin record fetch failed", "name", name, "coin", coin, "err", err)
				return nil
			}
			if len(v) > 0 {
				mu.Lock()
				profile.CoinAddresses[coin] = "0x" + hex.EncodeToString(v)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Go(func() error {
		v, err := r.records.ContentHash(ctx, name)
		if err != nil {
			r.logger.Debug("contenthash fetch failed", "name", name, "err", err)
			return nil
		}
		if len(v) > 0 {
			mu.Lock()
			profile.ContentHash = "0x" + hex.EncodeToString(v)
			mu.Unlock()
		}
		return nil
	})

	// every goroutine returns nil
	_ = g.Wait()
}

// Summary renders a profile as plain text for a chat reply.
func (p *NameProfile) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ENS lookup for %s\n\n", p.Name)
	fmt.Fprintf(&b, "ETH address: %s\n", p.Address.Hex())
	switch {
	case p.IsPrimary:
		b.WriteString("This is the primary name for this address\n")
	case p.PrimaryName != "":
		fmt.Fprintf(&b, "Primary name: %s\n", p.PrimaryName)
	}

	b.WriteString("\nText records:\n")
	if len(p.TextRecords) == 0 {
		b.WriteString("  (no text records set)\n")
	}
	for _, key := range profileTextKeys {
		if v, ok := p.TextRecords[key]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", key, v)
		}
	}

	b.WriteString("\nAddresses:\n")
	for _, coin := range []string{"eth", "btc", "ltc", "doge"} {
		if v, ok := p.CoinAddresses[coin]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", strings.ToUpper(coin), v)
		}
	}
	if p.ContentHash != "" {
		fmt.Fprintf(&b, "\nContent hash: %s\n", p.ContentHash)
	}
	return b.String()
}
