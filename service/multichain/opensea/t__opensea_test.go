package opensea

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omniwallet/nft-engine/service/persist"
)

func setupTest(t *testing.T) *assert.Assertions {
	return assert.New(t)
}

const assetsPage = `{
	"assets": [
		{
			"token_id": "7",
			"name": "Squiggle #7",
			"description": "generative art",
			"image_url": "https://img.example.com/7.png",
			"traits": [{"trait_type": "Category", "value": "art"}],
			"asset_contract": {"address": "0xaaa", "schema_name": "ERC721"},
			"collection": {"name": "Squiggles", "slug": "squiggles"},
			"creator": {"address": "0xartist"},
			"owner": {"address": "0xcollector"},
			"permalink": "https://opensea.io/assets/0xaaa/7",
			"sell_orders": [
				{"current_price": "1500000000000000000", "payment_token_contract": {"symbol": "ETH", "decimals": 18}}
			]
		},
		{
			"token_id": "8",
			"name": "",
			"asset_contract": {"address": "0xaaa", "schema_name": "ERC721"},
			"collection": {"name": "Squiggles"},
			"sell_orders": [
				{"current_price": "0", "payment_token_contract": {"symbol": "ETH", "decimals": 18}}
			]
		}
	]
}`

func TestGetNFTsByOwner(t *testing.T) {
	assert := setupTest(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/assets", r.URL.Path)
		assert.Equal("secret", r.Header.Get("X-API-KEY"))
		w.Write([]byte(assetsPage))
	}))
	defer ts.Close()

	source := NewSource(persist.ChainETH, ts.URL, "secret", ts.Client())
	items, err := source.GetNFTsByOwner(context.Background(), "0xcollector", 0)

	assert.NoError(err)
	assert.Len(items, 2)

	listed := items[0]
	assert.Equal("Squiggle #7", listed.Name)
	assert.True(listed.IsListed)
	// wei is shifted into whole payment token units
	assert.Equal("1.5", listed.Price)
	assert.Equal("ETH", listed.Currency)
	assert.Equal("https://opensea.io/assets/0xaaa/7", listed.MarketplaceURL)
	assert.Equal(persist.Address("0xartist"), listed.Creator)

	// a zero price order is not a listing, and empty names borrow the collection
	unlisted := items[1]
	assert.False(unlisted.IsListed)
	assert.Empty(unlisted.Price)
	assert.Equal("Squiggles #8", unlisted.Name)
}

func TestGetTrendingNFTs(t *testing.T) {
	assert := setupTest(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("sale_date", r.URL.Query().Get("order_by"))
		w.Write([]byte(assetsPage))
	}))
	defer ts.Close()

	source := NewSource(persist.ChainETH, ts.URL, "", ts.Client())
	items, err := source.GetTrendingNFTs(context.Background(), 1)

	assert.NoError(err)
	assert.Len(items, 1)
}
