package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/omniwallet/nft-engine/service/persist"
)

// UnknownCollectionName is used when no token in a contract carries a usable name
const UnknownCollectionName = "Unknown Collection"

// NFTItem is the canonical, chain-agnostic unit every provider must produce.
// ID is derived deterministically so repeated fetches of the same token are
// idempotent and mergeable.
type NFTItem struct {
	ID              string              `json:"id"`
	TokenID         persist.TokenID     `json:"tokenId"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Image           string              `json:"image"`
	ImageURL        string              `json:"imageUrl"`
	Attributes      []persist.Attribute `json:"attributes"`
	ContractAddress persist.Address     `json:"contractAddress"`
	TokenStandard   persist.TokenType   `json:"tokenStandard"`
	Blockchain      persist.Chain       `json:"blockchain"`
	Owner           persist.Address     `json:"owner"`
	Creator         persist.Address     `json:"creator"`
	Price           string              `json:"price,omitempty"`
	Currency        string              `json:"currency,omitempty"`
	IsListed        bool                `json:"isListed"`
	MarketplaceURL  string              `json:"marketplaceUrl,omitempty"`
}

// NewItemID derives the canonical item id for a token
func NewItemID(chain persist.Chain, contract persist.Address, tokenID persist.TokenID) string {
	return fmt.Sprintf("%d_%s_%s", chain.ID(), contract.Normalized(chain), tokenID)
}

// PriceDecimal parses the item's declared price, reporting whether it is a
// strictly positive number. Facet and range computations only count items for
// which ok is true.
func (n NFTItem) PriceDecimal() (decimal.Decimal, bool) {
	if n.Price == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.Price)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// Category returns the item's Category attribute value, if any
func (n NFTItem) Category() string {
	for _, attr := range n.Attributes {
		if strings.EqualFold(attr.TraitType, "category") {
			return attr.ValueString()
		}
	}
	return ""
}

// NFTCollection is a set of items an address owns under one contract
type NFTCollection struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	ContractAddress persist.Address   `json:"contractAddress"`
	TokenStandard   persist.TokenType `json:"tokenStandard"`
	Blockchain      persist.Chain     `json:"blockchain"`
	Creator         persist.Address   `json:"creator"`
	Verified        bool              `json:"verified"`
	Items           []NFTItem         `json:"items"`
}

// ProviderConfig holds a provider's connection parameters. Zero values in an
// update are treated as "leave unchanged" so credentials can be rotated
// individually.
type ProviderConfig struct {
	RPCURL  string            `json:"rpcUrl"`
	APIKeys map[string]string `json:"apiKeys"`
}

// ConnectionStatus reports the outcome of probing a provider's data sources
type ConnectionStatus struct {
	Connected      bool     `json:"connected"`
	WorkingSources []string `json:"workingSources"`
}

// TokensOwnerFetcher supports fetching all of an owner's tokens on one chain
type TokensOwnerFetcher interface {
	// GetNFTs returns every item the address owns that the provider can see.
	// Total upstream failure yields an empty list, never an error the caller
	// must branch on.
	GetNFTs(ctx context.Context, owner persist.Address) ([]NFTItem, error)
}

// TokenMetadataFetcher supports fetching one token's canonical item
type TokenMetadataFetcher interface {
	// GetNFTMetadata returns nil when the token cannot be found
	GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*NFTItem, error)
}

// CollectionsFetcher supports fetching an owner's tokens grouped by contract
type CollectionsFetcher interface {
	GetCollections(ctx context.Context, owner persist.Address) ([]NFTCollection, error)
}

// TokensSearcher supports chain-local text search
type TokensSearcher interface {
	SearchNFTs(ctx context.Context, query string, limit int) ([]NFTItem, error)
}

// TrendingFetcher supports fetching a chain's trending tokens
type TrendingFetcher interface {
	GetTrendingNFTs(ctx context.Context, limit int) ([]NFTItem, error)
}

// Configurer supports hot-swapping connection parameters
type Configurer interface {
	UpdateConfig(partial ProviderConfig)
	IsConnected() bool
}

// ConnectionTester supports probing each configured data source
type ConnectionTester interface {
	TestConnection(ctx context.Context) ConnectionStatus
}

// ChainProvider is the full capability set a chain adapter exposes
type ChainProvider interface {
	TokensOwnerFetcher
	TokenMetadataFetcher
	CollectionsFetcher
	TokensSearcher
	TrendingFetcher
	Configurer
	ConnectionTester
}

type collectionKey struct {
	chain    persist.Chain
	contract persist.Address
}

// GroupIntoCollections groups items by (blockchain, contractAddress). Grouping
// keys are always qualified with the chain because two chains can reuse a
// contract address. The operation is idempotent: regrouping flattened output
// yields the same collections.
func GroupIntoCollections(items []NFTItem) []NFTCollection {
	grouped := map[collectionKey]*NFTCollection{}
	order := []collectionKey{}

	for _, item := range items {
		key := collectionKey{chain: item.Blockchain, contract: item.ContractAddress.Normalized(item.Blockchain)}
		coll, ok := grouped[key]
		if !ok {
			coll = &NFTCollection{
				ID:              fmt.Sprintf("%d_%s", item.Blockchain.ID(), key.contract),
				Name:            UnknownCollectionName,
				ContractAddress: item.ContractAddress,
				TokenStandard:   item.TokenStandard,
				Blockchain:      item.Blockchain,
				Creator:         item.Creator,
			}
			grouped[key] = coll
			order = append(order, key)
		}
		if coll.Name == UnknownCollectionName {
			if name := CollectionNameFromToken(item.Name); name != "" {
				coll.Name = name
			}
		}
		coll.Items = append(coll.Items, item)
	}

	collections := make([]NFTCollection, 0, len(order))
	for _, key := range order {
		collections = append(collections, *grouped[key])
	}
	return collections
}

// CollectionNameFromToken derives a collection name from a token name by
// stripping the trailing "#<id>" suffix, e.g. "Foo #12" -> "Foo"
func CollectionNameFromToken(tokenName string) string {
	name := strings.TrimSpace(tokenName)
	if idx := strings.LastIndex(name, "#"); idx >= 0 {
		suffix := strings.TrimSpace(name[idx+1:])
		if suffix != "" && isDigits(suffix) {
			name = strings.TrimSpace(name[:idx])
		}
	}
	return name
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
