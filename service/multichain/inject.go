package multichain

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/omniwallet/nft-engine/env"
	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/metadata"
	"github.com/omniwallet/nft-engine/service/multichain/alchemy"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/multichain/demo"
	"github.com/omniwallet/nft-engine/service/multichain/objkt"
	"github.com/omniwallet/nft-engine/service/multichain/opensea"
	"github.com/omniwallet/nft-engine/service/multichain/provider"
	"github.com/omniwallet/nft-engine/service/multichain/simplehash"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/service/redis"
)

func init() {
	env.RegisterValidation("CHAIN_PROVIDER_MODE", "oneof=live demo")
}

const defaultHTTPTimeout = 30 * time.Second

// ProviderMode reads the configured data mode. Anything other than an
// explicit demo opt-in runs live.
func ProviderMode(ctx context.Context) provider.Mode {
	if env.GetString(ctx, "CHAIN_PROVIDER_MODE") == string(provider.ModeDemo) {
		return provider.ModeDemo
	}
	return provider.ModeLive
}

// NewProvider assembles the provider for one catalog chain from the
// environment: its indexing sources in fallback order, a ledger scanner for
// EVM chains with an RPC endpoint, a shared token cache when redis is
// reachable, and placeholder data in demo mode. ok is false for chains
// outside the catalog.
func NewProvider(ctx context.Context, chain persist.Chain) (common.ChainProvider, bool) {
	cfg, ok := CatalogEntry(chain)
	if !ok {
		logger.For(ctx).Warnf("no provider available for chain %d", chain.ID())
		return nil, false
	}

	httpClient := &http.Client{Timeout: defaultHTTPTimeout}
	resolver := metadata.NewResolver(httpClient)
	mode := ProviderMode(ctx)

	config := common.ProviderConfig{
		RPCURL:  rpcURLFor(ctx, chain),
		APIKeys: map[string]string{},
	}

	opts := provider.Options{Cache: tokenCache(ctx)}

	if alchemyURL := env.GetString(ctx, alchemyEnvKey(chain)); alchemyURL != "" && chain.IsEVM() {
		config.APIKeys["alchemy"] = alchemyURL
		opts.Sources = append(opts.Sources, alchemy.NewSource(chain, alchemyURL, httpClient))
	}

	if key := env.GetString(ctx, "OPENSEA_API_KEY"); key != "" && chain == persist.ChainETH {
		config.APIKeys["opensea"] = key
		opts.Sources = append(opts.Sources, opensea.NewSource(chain, env.GetString(ctx, "OPENSEA_API_URL"), key, httpClient))
	}

	if key := env.GetString(ctx, "SIMPLEHASH_API_KEY"); key != "" {
		if source, err := simplehash.NewSource(chain, key, httpClient); err == nil {
			config.APIKeys["simplehash"] = key
			opts.Sources = append(opts.Sources, source)
		}
	}

	if chain == persist.ChainTezos {
		opts.Sources = append(opts.Sources, objkt.NewSource(httpClient))
	}

	if chain.IsEVM() && config.RPCURL != "" {
		opts.Scanner = provider.NewScanner(chain, config.RPCURL, scanContracts(ctx, chain), resolver)
	}

	if mode == provider.ModeDemo {
		standard := persist.TokenTypeOther
		if len(cfg.TokenStandards) > 0 {
			standard = cfg.TokenStandards[0]
		}
		opts.Demo = demo.NewGenerator(chain, standard, cfg.NativeCurrency)
	}

	return provider.New(chain, mode, config, opts), true
}

// NewAllProviders builds one provider for every catalog chain
func NewAllProviders(ctx context.Context) map[persist.Chain]common.ChainProvider {
	providers := make(map[persist.Chain]common.ChainProvider, len(ChainCatalog))
	for _, cfg := range ChainCatalog {
		if chainProvider, ok := NewProvider(ctx, cfg.Chain); ok {
			providers[cfg.Chain] = chainProvider
		}
	}
	return providers
}

// NewAggregatorFromEnv builds an aggregator with one provider per catalog
// chain
func NewAggregatorFromEnv(ctx context.Context) *Aggregator {
	aggregator := NewAggregator()
	for chain, chainProvider := range NewAllProviders(ctx) {
		if err := aggregator.RegisterProvider(chain, chainProvider); err != nil {
			logger.For(ctx).WithError(err).Errorf("could not register provider for %s", chain)
		}
	}
	return aggregator
}

// rpcURLFor picks the provider's ledger endpoint once, at construction:
// deployments fronted by a first-party node opt in with USE_INTERNAL_RPC and
// the per-chain INTERNAL_RPC_URL, everything else uses the public endpoint.
func rpcURLFor(ctx context.Context, chain persist.Chain) string {
	if env.GetBool(ctx, "USE_INTERNAL_RPC") {
		if internal := env.GetString(ctx, internalRPCEnvKey(chain)); internal != "" {
			return internal
		}
	}
	return env.GetString(ctx, rpcEnvKey(chain))
}

func rpcEnvKey(chain persist.Chain) string {
	return fmt.Sprintf("RPC_URL_%s", strings.ToUpper(chain.String()))
}

func internalRPCEnvKey(chain persist.Chain) string {
	return fmt.Sprintf("INTERNAL_RPC_URL_%s", strings.ToUpper(chain.String()))
}

func alchemyEnvKey(chain persist.Chain) string {
	return fmt.Sprintf("ALCHEMY_API_URL_%s", strings.ToUpper(chain.String()))
}

// scanContracts reads the chain's direct-scan contract allow-list, a comma
// separated address list
func scanContracts(ctx context.Context, chain persist.Chain) []persist.Address {
	raw := env.GetString(ctx, fmt.Sprintf("SCAN_CONTRACTS_%s", strings.ToUpper(chain.String())))
	if raw == "" {
		return nil
	}

	contracts := []persist.Address{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			contracts = append(contracts, persist.Address(part).Normalized(chain))
		}
	}
	return contracts
}

// tokenCache connects to the shared redis token cache, or returns nil when
// redis is not configured or unreachable. A missing cache just removes the
// first fallback layer.
func tokenCache(ctx context.Context) *redis.Cache {
	if env.GetString(ctx, "REDIS_URL") == "" {
		return nil
	}
	cache, err := redis.NewCache(ctx, redis.TokenCache)
	if err != nil {
		logger.For(ctx).WithError(err).Warn("redis unreachable, running without token cache")
		return nil
	}
	return cache
}
