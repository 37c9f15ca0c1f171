package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/multichain/demo"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/service/redis"
)

const (
	defaultCacheTTL    = 5 * time.Minute
	defaultPingTimeout = 10 * time.Second
)

// Mode selects where a provider's data comes from when every live source is
// exhausted. Live providers degrade to an empty result; demo providers fall
// back to deterministic placeholder data.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// Source is one upstream index a provider can pull an owner's tokens from.
// Sources are tried in registration order; any error falls through to the next.
type Source interface {
	Name() string
	GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error)
}

// MetadataSource is a source that can also look up a single token
type MetadataSource interface {
	GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error)
}

// TrendingSource is a source that can rank tokens by recent market activity
type TrendingSource interface {
	GetTrendingNFTs(ctx context.Context, limit int) ([]common.NFTItem, error)
}

// SearchSource is a source with native text search. Providers without one fall
// back to filtering trending results.
type SearchSource interface {
	SearchNFTs(ctx context.Context, query string, limit int) ([]common.NFTItem, error)
}

// Pinger is a source that can be probed for liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators a provider can be built with
type Options struct {
	// Cache short-circuits owner fetches when a fresh result set is present
	Cache    *redis.Cache
	CacheTTL time.Duration

	// Sources are tried in order after a cache miss
	Sources []Source

	// Scanner reads the ledger directly when every source has failed
	Scanner *Scanner

	// Demo supplies placeholder data; only honored when the mode is demo
	Demo *demo.Generator
}

// Provider is the chain-agnostic adapter for one chain. It layers its
// collaborators into a fixed fallback order: cache, indexing sources, direct
// ledger scan, then placeholder data in demo mode.
type Provider struct {
	chain persist.Chain
	mode  Mode

	cache    *redis.Cache
	cacheTTL time.Duration
	sources  []Source
	scanner  *Scanner
	demo     *demo.Generator

	mu        sync.RWMutex
	config    common.ProviderConfig
	connected bool
}

// New creates a provider for one chain
func New(chain persist.Chain, mode Mode, config common.ProviderConfig, opts Options) *Provider {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	p := &Provider{
		chain:    chain,
		mode:     mode,
		cache:    opts.Cache,
		cacheTTL: ttl,
		sources:  opts.Sources,
		scanner:  opts.Scanner,
		demo:     opts.Demo,
		config:   config,
	}
	p.connected = p.computeConnected(config)
	return p
}

// Chain returns the chain this provider serves
func (p *Provider) Chain() persist.Chain {
	return p.chain
}

// GetNFTs returns every item the address owns that any layer can see. A layer
// failing falls through to the next; total failure yields an empty list.
func (p *Provider) GetNFTs(ctx context.Context, owner persist.Address) ([]common.NFTItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner = owner.Normalized(p.chain)

	if items, ok := p.cachedNFTs(ctx, owner); ok {
		return items, nil
	}

	items, ok := p.fetchFromSources(ctx, owner)

	if !ok && p.scanner != nil {
		items, ok = p.scanner.ScanOwner(ctx, owner)
	}

	if !ok && p.mode == ModeDemo && p.demo != nil {
		items, ok = p.demo.ItemsForOwner(owner), true
	}

	if !ok {
		logger.For(ctx).Warnf("every source for %s failed for owner %s, degrading to empty", p.chain, owner)
		return []common.NFTItem{}, nil
	}

	if items == nil {
		items = []common.NFTItem{}
	}
	p.storeNFTs(ctx, owner, items)
	return items, nil
}

// GetNFTMetadata returns one token's canonical item, trying each source that
// supports lookups and then the ledger. A nil item means no layer knows the
// token.
func (p *Provider) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	for _, source := range p.sources {
		ms, ok := source.(MetadataSource)
		if !ok {
			continue
		}
		item, err := ms.GetNFTMetadata(ctx, contract, tokenID)
		if err != nil {
			logger.For(ctx).WithError(err).Warnf("source %s failed metadata lookup for %s/%s", source.Name(), contract, tokenID)
			continue
		}
		if item != nil {
			return item, nil
		}
	}

	if p.scanner != nil {
		item, err := p.scanner.TokenItem(ctx, contract, tokenID)
		if err != nil {
			logger.For(ctx).WithError(err).Debugf("ledger metadata lookup failed for %s/%s", contract, tokenID)
		} else if item != nil {
			return item, nil
		}
	}

	return nil, nil
}

// GetCollections returns the owner's items grouped by contract
func (p *Provider) GetCollections(ctx context.Context, owner persist.Address) ([]common.NFTCollection, error) {
	items, err := p.GetNFTs(ctx, owner)
	if err != nil {
		return nil, err
	}
	return common.GroupIntoCollections(items), nil
}

// GetTrendingNFTs returns the chain's trending tokens from the first source
// that can rank them
func (p *Provider) GetTrendingNFTs(ctx context.Context, limit int) ([]common.NFTItem, error) {
	for _, source := range p.sources {
		ts, ok := source.(TrendingSource)
		if !ok {
			continue
		}
		items, err := ts.GetTrendingNFTs(ctx, limit)
		if err != nil {
			logger.For(ctx).WithError(err).Warnf("source %s failed trending fetch", source.Name())
			continue
		}
		return items, nil
	}

	if p.mode == ModeDemo && p.demo != nil {
		return p.demo.TrendingItems(limit), nil
	}
	return []common.NFTItem{}, nil
}

// SearchNFTs searches the chain for tokens matching the query. Providers
// without a native search source filter their trending set by name instead.
func (p *Provider) SearchNFTs(ctx context.Context, query string, limit int) ([]common.NFTItem, error) {
	for _, source := range p.sources {
		ss, ok := source.(SearchSource)
		if !ok {
			continue
		}
		items, err := ss.SearchNFTs(ctx, query, limit)
		if err != nil {
			logger.For(ctx).WithError(err).Warnf("source %s failed search", source.Name())
			continue
		}
		return items, nil
	}

	// oversample so the substring filter still has enough to pick from
	candidates, err := p.GetTrendingNFTs(ctx, limit*4)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := []common.NFTItem{}
	for _, item := range candidates {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			matched = append(matched, item)
			if limit > 0 && len(matched) >= limit {
				break
			}
		}
	}
	return matched, nil
}

// UpdateConfig merges the partial config into the provider's current one. Zero
// values leave the existing setting untouched, so a single key can be rotated
// without re-sending the rest.
func (p *Provider) UpdateConfig(partial common.ProviderConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if partial.RPCURL != "" {
		p.config.RPCURL = partial.RPCURL
		if p.scanner != nil {
			p.scanner.SetRPCURL(partial.RPCURL)
		}
	}
	for name, key := range partial.APIKeys {
		if key == "" {
			continue
		}
		if p.config.APIKeys == nil {
			p.config.APIKeys = map[string]string{}
		}
		p.config.APIKeys[name] = key
	}

	p.connected = p.computeConnected(p.config)
}

// IsConnected reports whether the provider's configuration is complete enough
// to serve live data
func (p *Provider) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Config returns a copy of the provider's current configuration
func (p *Provider) Config() common.ProviderConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := common.ProviderConfig{RPCURL: p.config.RPCURL}
	if len(p.config.APIKeys) > 0 {
		out.APIKeys = make(map[string]string, len(p.config.APIKeys))
		for name, key := range p.config.APIKeys {
			out.APIKeys[name] = key
		}
	}
	return out
}

// TestConnection probes every layer that supports a liveness check and reports
// which answered
func (p *Provider) TestConnection(ctx context.Context) common.ConnectionStatus {
	working := []string{}

	for _, source := range p.sources {
		pinger, ok := source.(Pinger)
		if !ok {
			continue
		}
		if err := p.ping(ctx, pinger.Ping); err != nil {
			logger.For(ctx).WithError(err).Infof("source %s failed ping on %s", source.Name(), p.chain)
			continue
		}
		working = append(working, source.Name())
	}

	if p.scanner != nil {
		if err := p.ping(ctx, p.scanner.Ping); err == nil {
			working = append(working, "rpc")
		}
	}

	if p.mode == ModeDemo && p.demo != nil {
		working = append(working, "demo")
	}

	return common.ConnectionStatus{Connected: len(working) > 0, WorkingSources: working}
}

func (p *Provider) ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return fn(ctx)
}

func (p *Provider) computeConnected(config common.ProviderConfig) bool {
	if p.mode == ModeDemo {
		return true
	}
	return config.RPCURL != "" || len(config.APIKeys) > 0
}

func (p *Provider) fetchFromSources(ctx context.Context, owner persist.Address) ([]common.NFTItem, bool) {
	for _, source := range p.sources {
		items, err := source.GetNFTsByOwner(ctx, owner, 0)
		if err != nil {
			logger.For(ctx).WithError(err).Warnf("source %s failed for owner %s on %s", source.Name(), owner, p.chain)
			continue
		}
		return items, true
	}
	return nil, false
}

func (p *Provider) cacheKey(owner persist.Address) string {
	return fmt.Sprintf("%d:%s", p.chain.ID(), owner)
}

func (p *Provider) cachedNFTs(ctx context.Context, owner persist.Address) ([]common.NFTItem, bool) {
	if p.cache == nil {
		return nil, false
	}

	bs, err := p.cache.Get(ctx, p.cacheKey(owner))
	if err != nil {
		if _, miss := err.(redis.ErrKeyNotFound); !miss {
			logger.For(ctx).WithError(err).Warn("token cache read failed")
		}
		return nil, false
	}

	items := []common.NFTItem{}
	if err := json.Unmarshal(bs, &items); err != nil {
		logger.For(ctx).WithError(err).Warn("token cache held invalid payload, ignoring")
		return nil, false
	}
	return items, true
}

func (p *Provider) storeNFTs(ctx context.Context, owner persist.Address, items []common.NFTItem) {
	if p.cache == nil {
		return
	}
	bs, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, p.cacheKey(owner), bs, p.cacheTTL); err != nil {
		logger.For(ctx).WithError(err).Warn("token cache write failed")
	}
}
