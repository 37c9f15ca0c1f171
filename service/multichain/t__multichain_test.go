package multichain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
)

func setupTest(t *testing.T) *assert.Assertions {
	return assert.New(t)
}

// stubProvider is an in-memory ChainProvider with scriptable failures
type stubProvider struct {
	chain     persist.Chain
	items     []common.NFTItem
	fail      bool
	connected bool
}

func (s *stubProvider) GetNFTs(ctx context.Context, owner persist.Address) ([]common.NFTItem, error) {
	if s.fail {
		return nil, fmt.Errorf("chain %s is down", s.chain)
	}
	return s.items, nil
}

func (s *stubProvider) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	for _, item := range s.items {
		if item.ContractAddress == contract && item.TokenID == tokenID {
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubProvider) GetCollections(ctx context.Context, owner persist.Address) ([]common.NFTCollection, error) {
	if s.fail {
		return nil, fmt.Errorf("chain %s is down", s.chain)
	}
	return common.GroupIntoCollections(s.items), nil
}

func (s *stubProvider) SearchNFTs(ctx context.Context, query string, limit int) ([]common.NFTItem, error) {
	if s.fail {
		return nil, fmt.Errorf("chain %s is down", s.chain)
	}
	return s.items, nil
}

func (s *stubProvider) GetTrendingNFTs(ctx context.Context, limit int) ([]common.NFTItem, error) {
	return s.items, nil
}

func (s *stubProvider) UpdateConfig(partial common.ProviderConfig) {
	s.connected = partial.RPCURL != "" || len(partial.APIKeys) > 0
}

func (s *stubProvider) IsConnected() bool { return s.connected }

func (s *stubProvider) TestConnection(ctx context.Context) common.ConnectionStatus {
	return common.ConnectionStatus{Connected: s.connected}
}

func stubItems(chain persist.Chain, contract persist.Address, count int) []common.NFTItem {
	items := make([]common.NFTItem, count)
	for i := range items {
		tokenID := persist.TokenID(fmt.Sprintf("%d", i+1))
		items[i] = common.NFTItem{
			ID:              common.NewItemID(chain, contract, tokenID),
			TokenID:         tokenID,
			Name:            fmt.Sprintf("Item #%s", tokenID),
			ContractAddress: contract,
			TokenStandard:   persist.TokenTypeERC721,
			Blockchain:      chain,
		}
	}
	return items
}

func newTestAggregator(t *testing.T, providers map[persist.Chain]common.ChainProvider) *Aggregator {
	aggregator := NewAggregator()
	for chain, provider := range providers {
		if err := aggregator.RegisterProvider(chain, provider); err != nil {
			t.Fatal(err)
		}
	}
	return aggregator
}

func TestToggleChainRoundTrip(t *testing.T) {
	assert := setupTest(t)

	aggregator := NewAggregator()
	before := aggregator.GetEnabledChains()

	assert.NoError(aggregator.ToggleChain(persist.ChainSolana, true))
	assert.True(aggregator.IsChainEnabled(persist.ChainSolana))

	// enabling twice is a no-op
	assert.NoError(aggregator.ToggleChain(persist.ChainSolana, true))

	assert.NoError(aggregator.ToggleChain(persist.ChainSolana, false))
	assert.Equal(before, aggregator.GetEnabledChains())
}

func TestToggleChainUnknown(t *testing.T) {
	assert := setupTest(t)

	err := NewAggregator().ToggleChain(persist.Chain(999), true)
	assert.ErrorAs(err, &ErrChainNotSupported{})
}

func TestGetAllNFTsIsolatesFailingChain(t *testing.T) {
	assert := setupTest(t)

	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH:     &stubProvider{chain: persist.ChainETH, items: stubItems(persist.ChainETH, "0xaaa", 3)},
		persist.ChainPolygon: &stubProvider{chain: persist.ChainPolygon, fail: true},
		persist.ChainBase:    &stubProvider{chain: persist.ChainBase, items: stubItems(persist.ChainBase, "0xbbb", 1)},
	})

	result := aggregator.GetAllNFTs(context.Background(), "0xowner")

	assert.Equal(4, result.TotalCount)
	assert.Len(result.NFTs, 4)
	assert.Len(result.Chains[persist.ChainETH], 3)
	assert.Len(result.Chains[persist.ChainBase], 1)

	// the failing chain still answers, with an empty list
	items, ok := result.Chains[persist.ChainPolygon]
	assert.True(ok)
	assert.Empty(items)
	assert.Equal([]persist.Chain{persist.ChainPolygon}, result.FailedChains)
}

func TestGetAllNFTsKeysEveryEnabledChain(t *testing.T) {
	assert := setupTest(t)

	// only one of the five default-enabled chains has a provider registered
	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH: &stubProvider{chain: persist.ChainETH, items: stubItems(persist.ChainETH, "0xaaa", 2)},
	})

	result := aggregator.GetAllNFTs(context.Background(), "0xowner")

	enabled := aggregator.GetEnabledChains()
	assert.Len(result.Chains, len(enabled))
	for _, chain := range enabled {
		_, ok := result.Chains[chain]
		assert.True(ok, "enabled chain %s missing from chains map", chain)
	}
	assert.Equal(2, result.TotalCount)
	assert.Empty(result.Chains[persist.ChainPolygon])
	assert.Empty(result.FailedChains)
}

func TestGetAllNFTsSkipsDisabledChains(t *testing.T) {
	assert := setupTest(t)

	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH:    &stubProvider{chain: persist.ChainETH, items: stubItems(persist.ChainETH, "0xaaa", 2)},
		persist.ChainSolana: &stubProvider{chain: persist.ChainSolana, items: stubItems(persist.ChainSolana, "So1ana", 5)},
	})

	// solana is not enabled by default
	result := aggregator.GetAllNFTs(context.Background(), "0xowner")
	assert.Equal(2, result.TotalCount)
	_, ok := result.Chains[persist.ChainSolana]
	assert.False(ok)

	assert.NoError(aggregator.ToggleChain(persist.ChainSolana, true))
	result = aggregator.GetAllNFTs(context.Background(), "0xowner")
	assert.Equal(7, result.TotalCount)
}

func TestGetAllCollections(t *testing.T) {
	assert := setupTest(t)

	items := stubItems(persist.ChainETH, "0xaaa", 2)
	items = append(items, stubItems(persist.ChainETH, "0xbbb", 1)...)

	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH: &stubProvider{chain: persist.ChainETH, items: items},
	})

	result := aggregator.GetAllCollections(context.Background(), "0xowner")
	assert.Equal(2, result.TotalCount)
	assert.Len(result.Collections, 2)
	assert.Len(result.Chains[persist.ChainETH], 2)
}

func TestInitializeProviders(t *testing.T) {
	assert := setupTest(t)

	eth := &stubProvider{chain: persist.ChainETH}
	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH: eth,
	})

	aggregator.InitializeProviders(context.Background(), map[persist.Chain]common.ProviderConfig{
		persist.ChainETH: {APIKeys: map[string]string{"alchemy": "key"}},
		// no provider registered for polygon, must be skipped without error
		persist.ChainPolygon: {RPCURL: "https://polygon.example"},
	})

	assert.True(eth.IsConnected())
}

func TestGetTrendingNFTsInterleavesChains(t *testing.T) {
	assert := setupTest(t)

	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH:     &stubProvider{chain: persist.ChainETH, items: stubItems(persist.ChainETH, "0xaaa", 3)},
		persist.ChainPolygon: &stubProvider{chain: persist.ChainPolygon, items: stubItems(persist.ChainPolygon, "0xbbb", 3)},
	})

	merged := aggregator.GetTrendingNFTs(context.Background(), 4)
	assert.Len(merged, 4)
	assert.Equal(persist.ChainETH, merged[0].Blockchain)
	assert.Equal(persist.ChainPolygon, merged[1].Blockchain)
	assert.Equal(persist.ChainETH, merged[2].Blockchain)
	assert.Equal(persist.ChainPolygon, merged[3].Blockchain)
}

func TestGetChainStatistics(t *testing.T) {
	assert := setupTest(t)

	items := stubItems(persist.ChainETH, "0xaaa", 2)
	items = append(items, stubItems(persist.ChainETH, "0xbbb", 1)...)

	aggregator := newTestAggregator(t, map[persist.Chain]common.ChainProvider{
		persist.ChainETH: &stubProvider{chain: persist.ChainETH, items: items, connected: true},
	})

	stats := aggregator.GetChainStatistics(context.Background(), "0xowner")

	// every catalog chain reports, registered or not
	assert.Len(stats, len(ChainCatalog))

	assert.Equal("ethereum", stats[persist.ChainETH].Name)
	assert.True(stats[persist.ChainETH].Enabled)
	assert.True(stats[persist.ChainETH].Connected)
	assert.Equal(3, stats[persist.ChainETH].ItemCount)
	assert.Equal(2, stats[persist.ChainETH].CollectionCount)

	// enabled but unregistered: disconnected defaults
	assert.Equal("polygon", stats[persist.ChainPolygon].Name)
	assert.True(stats[persist.ChainPolygon].Enabled)
	assert.False(stats[persist.ChainPolygon].Connected)
	assert.Zero(stats[persist.ChainPolygon].ItemCount)

	// disabled and unregistered
	assert.Equal("tezos", stats[persist.ChainTezos].Name)
	assert.False(stats[persist.ChainTezos].Enabled)
	assert.False(stats[persist.ChainTezos].Connected)
}

func TestRegisterProviderUnknownChain(t *testing.T) {
	assert := setupTest(t)

	err := NewAggregator().RegisterProvider(persist.Chain(5), &stubProvider{})
	assert.Error(err)
}

func TestCatalogEntry(t *testing.T) {
	assert := setupTest(t)

	cfg, ok := CatalogEntry(persist.ChainETH)
	assert.True(ok)
	assert.Equal("ethereum", cfg.Name)
	assert.Equal("ETH", cfg.NativeCurrency)

	_, ok = CatalogEntry(persist.Chain(2))
	assert.False(ok)
}
