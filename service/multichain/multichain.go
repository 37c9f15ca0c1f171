package multichain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
)

const defaultChainTimeout = 30 * time.Second

// ErrChainNotSupported is returned when an operation names a chain outside the
// catalog
type ErrChainNotSupported struct {
	Chain persist.Chain
}

func (e ErrChainNotSupported) Error() string {
	return fmt.Sprintf("chain %d is not supported", e.Chain.ID())
}

// AggregatedNFTs is the cross-chain view of one owner's tokens. Every enabled
// chain has an entry; a chain whose provider failed contributes an empty list
// and is named in FailedChains. NFTs is the merged list in catalog order and
// TotalCount is its length, so only items actually retrieved are counted.
type AggregatedNFTs struct {
	NFTs         []common.NFTItem                   `json:"nfts"`
	Chains       map[persist.Chain][]common.NFTItem `json:"chains"`
	TotalCount   int                                `json:"totalCount"`
	FailedChains []persist.Chain                    `json:"failedChains,omitempty"`
}

// AggregatedCollections is the cross-chain view of one owner's collections
type AggregatedCollections struct {
	Collections  []common.NFTCollection                   `json:"collections"`
	Chains       map[persist.Chain][]common.NFTCollection `json:"chains"`
	TotalCount   int                                      `json:"totalCount"`
	FailedChains []persist.Chain                          `json:"failedChains,omitempty"`
}

// ChainStats summarizes one catalog chain's state and, when the chain is
// enabled and served, its contribution to an owner's holdings
type ChainStats struct {
	Name            string `json:"name"`
	Enabled         bool   `json:"enabled"`
	Connected       bool   `json:"connected"`
	ItemCount       int    `json:"itemCount"`
	CollectionCount int    `json:"collectionCount"`
}

// Aggregator fans requests out to one provider per enabled chain and merges
// the results. A chain failing never fails the aggregate: its slot is an empty
// list and the rest of the chains answer normally.
type Aggregator struct {
	mu           sync.RWMutex
	providers    map[persist.Chain]common.ChainProvider
	enabled      map[persist.Chain]bool
	chainTimeout time.Duration
}

// NewAggregator creates an aggregator with the catalog's default enabled set
// and no providers registered
func NewAggregator() *Aggregator {
	enabled := make(map[persist.Chain]bool, len(ChainCatalog))
	for _, cfg := range ChainCatalog {
		if cfg.EnabledByDefault {
			enabled[cfg.Chain] = true
		}
	}
	return &Aggregator{
		providers:    map[persist.Chain]common.ChainProvider{},
		enabled:      enabled,
		chainTimeout: defaultChainTimeout,
	}
}

// RegisterProvider attaches a provider for one catalog chain, replacing any
// previous one
func (a *Aggregator) RegisterProvider(chain persist.Chain, provider common.ChainProvider) error {
	if _, ok := CatalogEntry(chain); !ok {
		return ErrChainNotSupported{Chain: chain}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[chain] = provider
	return nil
}

// Provider returns the registered provider for a chain
func (a *Aggregator) Provider(chain persist.Chain) (common.ChainProvider, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.providers[chain]
	return p, ok
}

// ToggleChain flips one chain in or out of the enabled set. Toggling a chain
// to its current state is a no-op, so enable/disable round-trips always
// restore the original set.
func (a *Aggregator) ToggleChain(chain persist.Chain, enable bool) error {
	if _, ok := CatalogEntry(chain); !ok {
		return ErrChainNotSupported{Chain: chain}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if enable {
		a.enabled[chain] = true
	} else {
		delete(a.enabled, chain)
	}
	return nil
}

// GetSupportedChains returns the full catalog
func (a *Aggregator) GetSupportedChains() []ChainConfig {
	return ChainCatalog
}

// GetEnabledChains returns the enabled chains in catalog order
func (a *Aggregator) GetEnabledChains() []persist.Chain {
	a.mu.RLock()
	defer a.mu.RUnlock()

	chains := make([]persist.Chain, 0, len(a.enabled))
	for _, cfg := range ChainCatalog {
		if a.enabled[cfg.Chain] {
			chains = append(chains, cfg.Chain)
		}
	}
	return chains
}

// IsChainEnabled reports whether the chain is currently in the enabled set
func (a *Aggregator) IsChainEnabled(chain persist.Chain) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled[chain]
}

// GetAllNFTs fetches the owner's tokens on every enabled chain concurrently.
// Chains answer independently: one timing out or erroring yields an empty
// entry for that chain while the others return their items.
func (a *Aggregator) GetAllNFTs(ctx context.Context, owner persist.Address) AggregatedNFTs {
	result := AggregatedNFTs{Chains: map[persist.Chain][]common.NFTItem{}}

	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for _, entry := range a.enabledProviders() {
		entry := entry
		if entry.provider == nil {
			result.Chains[entry.chain] = []common.NFTItem{}
			continue
		}
		wg.Go(func() {
			chainCtx, cancel := context.WithTimeout(ctx, a.chainTimeout)
			defer cancel()

			items, err := entry.provider.GetNFTs(chainCtx, owner)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.For(ctx).WithError(err).Warnf("chain %s failed during aggregation", entry.chain)
				result.Chains[entry.chain] = []common.NFTItem{}
				result.FailedChains = append(result.FailedChains, entry.chain)
				return
			}
			result.Chains[entry.chain] = items
		})
	}
	wg.Wait()

	result.NFTs = []common.NFTItem{}
	for _, cfg := range ChainCatalog {
		result.NFTs = append(result.NFTs, result.Chains[cfg.Chain]...)
	}
	result.TotalCount = len(result.NFTs)

	return result
}

// GetAllCollections fetches the owner's collections on every enabled chain
// concurrently, with the same per-chain isolation as GetAllNFTs
func (a *Aggregator) GetAllCollections(ctx context.Context, owner persist.Address) AggregatedCollections {
	result := AggregatedCollections{Chains: map[persist.Chain][]common.NFTCollection{}}

	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for _, entry := range a.enabledProviders() {
		entry := entry
		if entry.provider == nil {
			result.Chains[entry.chain] = []common.NFTCollection{}
			continue
		}
		wg.Go(func() {
			chainCtx, cancel := context.WithTimeout(ctx, a.chainTimeout)
			defer cancel()

			collections, err := entry.provider.GetCollections(chainCtx, owner)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.For(ctx).WithError(err).Warnf("chain %s failed during collection aggregation", entry.chain)
				result.Chains[entry.chain] = []common.NFTCollection{}
				result.FailedChains = append(result.FailedChains, entry.chain)
				return
			}
			result.Chains[entry.chain] = collections
		})
	}
	wg.Wait()

	result.Collections = []common.NFTCollection{}
	for _, cfg := range ChainCatalog {
		result.Collections = append(result.Collections, result.Chains[cfg.Chain]...)
	}
	result.TotalCount = len(result.Collections)

	return result
}

// GetNFTMetadata looks one token up on its chain
func (a *Aggregator) GetNFTMetadata(ctx context.Context, chain persist.Chain, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	provider, ok := a.Provider(chain)
	if !ok {
		return nil, ErrChainNotSupported{Chain: chain}
	}
	return provider.GetNFTMetadata(ctx, contract, tokenID)
}

// GetTrendingNFTs merges trending tokens from every enabled chain, interleaved
// in catalog order
func (a *Aggregator) GetTrendingNFTs(ctx context.Context, limit int) []common.NFTItem {
	perChain := map[persist.Chain][]common.NFTItem{}

	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for _, entry := range a.enabledProviders() {
		entry := entry
		if entry.provider == nil {
			continue
		}
		wg.Go(func() {
			chainCtx, cancel := context.WithTimeout(ctx, a.chainTimeout)
			defer cancel()

			items, err := entry.provider.GetTrendingNFTs(chainCtx, limit)
			if err != nil {
				logger.For(ctx).WithError(err).Warnf("chain %s failed trending fetch", entry.chain)
				return
			}
			mu.Lock()
			perChain[entry.chain] = items
			mu.Unlock()
		})
	}
	wg.Wait()

	merged := []common.NFTItem{}
	for i := 0; ; i++ {
		progressed := false
		for _, cfg := range ChainCatalog {
			items := perChain[cfg.Chain]
			if i < len(items) {
				merged = append(merged, items[i])
				progressed = true
				if limit > 0 && len(merged) >= limit {
					return merged
				}
			}
		}
		if !progressed {
			return merged
		}
	}
}

// GetChainStatistics reports one entry per catalog chain. Chains without a
// registered provider get disconnected defaults; only enabled, served chains
// have their holdings counted.
func (a *Aggregator) GetChainStatistics(ctx context.Context, owner persist.Address) map[persist.Chain]ChainStats {
	stats := map[persist.Chain]ChainStats{}

	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for _, cfg := range ChainCatalog {
		cfg := cfg
		chainStats := ChainStats{Name: cfg.Name, Enabled: a.IsChainEnabled(cfg.Chain)}

		provider, registered := a.Provider(cfg.Chain)
		if registered {
			chainStats.Connected = provider.IsConnected()
		}
		if !registered || !chainStats.Enabled {
			mu.Lock()
			stats[cfg.Chain] = chainStats
			mu.Unlock()
			continue
		}

		wg.Go(func() {
			chainCtx, cancel := context.WithTimeout(ctx, a.chainTimeout)
			defer cancel()

			if items, err := provider.GetNFTs(chainCtx, owner); err == nil {
				chainStats.ItemCount = len(items)
				chainStats.CollectionCount = len(common.GroupIntoCollections(items))
			}

			mu.Lock()
			stats[cfg.Chain] = chainStats
			mu.Unlock()
		})
	}
	wg.Wait()

	return stats
}

// TestConnections probes every registered provider, enabled or not
func (a *Aggregator) TestConnections(ctx context.Context) map[persist.Chain]common.ConnectionStatus {
	a.mu.RLock()
	providers := make(map[persist.Chain]common.ChainProvider, len(a.providers))
	for chain, provider := range a.providers {
		providers[chain] = provider
	}
	a.mu.RUnlock()

	statuses := map[persist.Chain]common.ConnectionStatus{}
	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for chain, provider := range providers {
		chain, provider := chain, provider
		wg.Go(func() {
			status := provider.TestConnection(ctx)
			mu.Lock()
			statuses[chain] = status
			mu.Unlock()
		})
	}
	wg.Wait()

	return statuses
}

// InitializeProviders pushes per-chain credentials to the registered
// providers. Chains with no registered provider are skipped with a log line,
// matching how the aggregate calls treat them.
func (a *Aggregator) InitializeProviders(ctx context.Context, credentials map[persist.Chain]common.ProviderConfig) {
	for chain, partial := range credentials {
		provider, ok := a.Provider(chain)
		if !ok {
			logger.For(ctx).Warnf("no provider registered for %s, skipping credentials", chain)
			continue
		}
		provider.UpdateConfig(partial)
	}
}

// UpdateChainConfig forwards a partial config to one chain's provider
func (a *Aggregator) UpdateChainConfig(chain persist.Chain, partial common.ProviderConfig) error {
	provider, ok := a.Provider(chain)
	if !ok {
		return ErrChainNotSupported{Chain: chain}
	}
	provider.UpdateConfig(partial)
	return nil
}

type chainEntry struct {
	chain persist.Chain
	// provider is nil when the chain is enabled but nothing is registered
	// for it
	provider common.ChainProvider
}

// enabledProviders snapshots every currently enabled chain, in catalog order.
// Enabled chains without a registered provider are included so aggregate
// results stay keyed by the full enabled set.
func (a *Aggregator) enabledProviders() []chainEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries := []chainEntry{}
	for _, cfg := range ChainCatalog {
		if !a.enabled[cfg.Chain] {
			continue
		}
		entries = append(entries, chainEntry{chain: cfg.Chain, provider: a.providers[cfg.Chain]})
	}
	return entries
}
