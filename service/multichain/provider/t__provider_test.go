package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/multichain/demo"
	"github.com/omniwallet/nft-engine/service/persist"
)

func setupTest(t *testing.T) *assert.Assertions {
	return assert.New(t)
}

// stubSource is a scriptable Source with optional metadata, trending, and ping
// capabilities
type stubSource struct {
	name     string
	items    []common.NFTItem
	fail     bool
	failPing bool
	calls    int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error) {
	s.calls++
	if s.fail {
		return nil, fmt.Errorf("%s is down", s.name)
	}
	return s.items, nil
}

func (s *stubSource) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	if s.fail {
		return nil, fmt.Errorf("%s is down", s.name)
	}
	for _, item := range s.items {
		if item.ContractAddress == contract && item.TokenID == tokenID {
			return &item, nil
		}
	}
	return nil, nil
}

func (s *stubSource) GetTrendingNFTs(ctx context.Context, limit int) ([]common.NFTItem, error) {
	if s.fail {
		return nil, fmt.Errorf("%s is down", s.name)
	}
	if limit > 0 && limit < len(s.items) {
		return s.items[:limit], nil
	}
	return s.items, nil
}

func (s *stubSource) Ping(ctx context.Context) error {
	if s.failPing {
		return fmt.Errorf("%s is down", s.name)
	}
	return nil
}

func sourceItems(names ...string) []common.NFTItem {
	items := make([]common.NFTItem, len(names))
	for i, name := range names {
		tokenID := persist.TokenID(fmt.Sprintf("%d", i+1))
		items[i] = common.NFTItem{
			ID:              common.NewItemID(persist.ChainETH, "0xaaa", tokenID),
			TokenID:         tokenID,
			Name:            name,
			ContractAddress: "0xaaa",
			TokenStandard:   persist.TokenTypeERC721,
			Blockchain:      persist.ChainETH,
		}
	}
	return items
}

func TestGetNFTsUsesFirstHealthySource(t *testing.T) {
	assert := setupTest(t)

	primary := &stubSource{name: "primary", fail: true}
	secondary := &stubSource{name: "secondary", items: sourceItems("From Secondary")}

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{APIKeys: map[string]string{"secondary": "key"}}, Options{
		Sources: []Source{primary, secondary},
	})

	items, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.Len(items, 1)
	assert.Equal("From Secondary", items[0].Name)
	assert.Equal(1, primary.calls)
	assert.Equal(1, secondary.calls)
}

func TestGetNFTsStopsAtFirstSuccess(t *testing.T) {
	assert := setupTest(t)

	primary := &stubSource{name: "primary", items: sourceItems("From Primary")}
	secondary := &stubSource{name: "secondary", items: sourceItems("From Secondary")}

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{primary, secondary},
	})

	items, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.Equal("From Primary", items[0].Name)
	assert.Equal(0, secondary.calls)
}

func TestGetNFTsDegradesToEmptyInLiveMode(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "primary", fail: true}},
	})

	items, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.NotNil(items)
	assert.Empty(items)
}

func TestGetNFTsFallsBackToPlaceholderInDemoMode(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeDemo, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "primary", fail: true}},
		Demo:    demo.NewGenerator(persist.ChainETH, persist.TokenTypeERC721, "ETH"),
	})

	first, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.NotEmpty(first)

	// placeholder data is deterministic per owner
	second, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.Equal(first, second)

	other, err := p.GetNFTs(context.Background(), "0xOther")
	assert.NoError(err)
	assert.NotEqual(first, other)
}

func TestLiveModeNeverServesPlaceholder(t *testing.T) {
	assert := setupTest(t)

	// a generator wired into a live provider must stay unused
	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "primary", fail: true}},
		Demo:    demo.NewGenerator(persist.ChainETH, persist.TokenTypeERC721, "ETH"),
	})

	items, err := p.GetNFTs(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.Empty(items)
}

func TestGetNFTMetadataFallsThroughSources(t *testing.T) {
	assert := setupTest(t)

	known := sourceItems("Known Token")
	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{
			&stubSource{name: "primary", fail: true},
			&stubSource{name: "secondary", items: known},
		},
	})

	item, err := p.GetNFTMetadata(context.Background(), "0xaaa", "1")
	assert.NoError(err)
	assert.NotNil(item)
	assert.Equal("Known Token", item.Name)

	missing, err := p.GetNFTMetadata(context.Background(), "0xaaa", "404")
	assert.NoError(err)
	assert.Nil(missing)
}

func TestGetCollectionsGroupsItems(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "primary", items: sourceItems("Foo #1", "Foo #2")}},
	})

	collections, err := p.GetCollections(context.Background(), "0xOwner")
	assert.NoError(err)
	assert.Len(collections, 1)
	assert.Equal("Foo", collections[0].Name)
	assert.Len(collections[0].Items, 2)
}

func TestSearchNFTsDefaultFiltersTrending(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "primary", items: sourceItems("Cosmic Ape", "Pixel Garden", "Cosmic Relic")}},
	})

	items, err := p.SearchNFTs(context.Background(), "cosmic", 10)
	assert.NoError(err)
	assert.Len(items, 2)
	for _, item := range items {
		assert.Contains(item.Name, "Cosmic")
	}
}

func TestUpdateConfigMergesPartials(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{})
	assert.False(p.IsConnected())

	p.UpdateConfig(common.ProviderConfig{RPCURL: "https://rpc.example.com"})
	assert.True(p.IsConnected())
	assert.Equal("https://rpc.example.com", p.Config().RPCURL)

	p.UpdateConfig(common.ProviderConfig{APIKeys: map[string]string{"alchemy": "key-1"}})
	cfg := p.Config()
	// earlier settings survive a partial update
	assert.Equal("https://rpc.example.com", cfg.RPCURL)
	assert.Equal("key-1", cfg.APIKeys["alchemy"])

	p.UpdateConfig(common.ProviderConfig{APIKeys: map[string]string{"opensea": "key-2"}})
	cfg = p.Config()
	assert.Equal("key-1", cfg.APIKeys["alchemy"])
	assert.Equal("key-2", cfg.APIKeys["opensea"])
}

func TestDemoModeIsAlwaysConnected(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeDemo, common.ProviderConfig{}, Options{})
	assert.True(p.IsConnected())
}

func TestTestConnectionReportsWorkingSources(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{
			&stubSource{name: "healthy"},
			&stubSource{name: "broken", failPing: true},
		},
	})

	status := p.TestConnection(context.Background())
	assert.True(status.Connected)
	assert.Equal([]string{"healthy"}, status.WorkingSources)
}

func TestTestConnectionAllDown(t *testing.T) {
	assert := setupTest(t)

	p := New(persist.ChainETH, ModeLive, common.ProviderConfig{}, Options{
		Sources: []Source{&stubSource{name: "broken", failPing: true}},
	})

	status := p.TestConnection(context.Background())
	assert.False(status.Connected)
	assert.Empty(status.WorkingSources)
}
