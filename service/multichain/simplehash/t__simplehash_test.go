package simplehash

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omniwallet/nft-engine/service/persist"
)

func setupTest(t *testing.T) *assert.Assertions {
	return assert.New(t)
}

func TestNewSourceRejectsUnindexedChains(t *testing.T) {
	assert := setupTest(t)

	_, err := NewSource(persist.ChainTezos, "key", nil)
	assert.Error(err)

	source, err := NewSource(persist.ChainSolana, "key", nil)
	assert.NoError(err)
	assert.Equal("simplehash", source.Name())
}

func TestNftToItem(t *testing.T) {
	assert := setupTest(t)

	source, err := NewSource(persist.ChainPolygon, "key", nil)
	assert.NoError(err)

	item := source.nftToItem("0xowner", simplehashNFT{
		ContractAddress: "0xAAA",
		TokenID:         "42",
		Name:            "",
		Description:     "polygon token",
		ImageURL:        "https://cdn.example.com/42.png",
		Contract:        simplehashContract{Type: "ERC1155", DeployedBy: "0xdeployer"},
		Collection:      simplehashCollection{Name: "Polys"},
		ExtraMetadata: simplehashExtraMetadata{
			Attributes: []persist.Attribute{{TraitType: "Category", Value: "gaming"}},
		},
	})

	assert.Equal("137_0xaaa_42", item.ID)
	// an empty name borrows the collection name
	assert.Equal("Polys #42", item.Name)
	assert.Equal(persist.TokenTypeERC1155, item.TokenStandard)
	assert.Equal(persist.ChainPolygon, item.Blockchain)
	assert.Equal(persist.Address("0xdeployer"), item.Creator)
	assert.Len(item.Attributes, 1)
}

func TestContractTypeToTokenType(t *testing.T) {
	assert := setupTest(t)

	assert.Equal(persist.TokenTypeERC721, contractTypeToTokenType("erc721", persist.ChainETH))
	assert.Equal(persist.TokenTypeERC1155, contractTypeToTokenType("ERC1155", persist.ChainETH))
	assert.Equal(persist.TokenTypeSPL, contractTypeToTokenType("NonFungible", persist.ChainSolana))
	// solana tokens default to SPL even when the type is unrecognized
	assert.Equal(persist.TokenTypeSPL, contractTypeToTokenType("", persist.ChainSolana))
	assert.Equal(persist.TokenTypeOther, contractTypeToTokenType("", persist.ChainETH))
}
