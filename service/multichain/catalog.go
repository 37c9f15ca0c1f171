package multichain

import (
	"github.com/omniwallet/nft-engine/service/persist"
)

// ChainConfig describes one chain the engine knows how to serve
type ChainConfig struct {
	Chain            persist.Chain       `json:"chainId"`
	Name             string              `json:"name"`
	DisplayName      string              `json:"displayName"`
	NativeCurrency   string              `json:"nativeCurrency"`
	ExplorerURL      string              `json:"explorerUrl"`
	TokenStandards   []persist.TokenType `json:"tokenStandards"`
	EnabledByDefault bool                `json:"enabledByDefault"`
}

// ChainCatalog is the fixed set of chains the engine supports, in display
// order. Toggling only flips membership of the enabled set; the catalog itself
// never changes at runtime.
var ChainCatalog = []ChainConfig{
	{
		Chain:            persist.ChainETH,
		Name:             "ethereum",
		DisplayName:      "Ethereum",
		NativeCurrency:   "ETH",
		ExplorerURL:      "https://etherscan.io",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: true,
	},
	{
		Chain:            persist.ChainOptimism,
		Name:             "optimism",
		DisplayName:      "Optimism",
		NativeCurrency:   "ETH",
		ExplorerURL:      "https://optimistic.etherscan.io",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: true,
	},
	{
		Chain:            persist.ChainPolygon,
		Name:             "polygon",
		DisplayName:      "Polygon",
		NativeCurrency:   "MATIC",
		ExplorerURL:      "https://polygonscan.com",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: true,
	},
	{
		Chain:            persist.ChainArbitrum,
		Name:             "arbitrum",
		DisplayName:      "Arbitrum One",
		NativeCurrency:   "ETH",
		ExplorerURL:      "https://arbiscan.io",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: true,
	},
	{
		Chain:            persist.ChainBase,
		Name:             "base",
		DisplayName:      "Base",
		NativeCurrency:   "ETH",
		ExplorerURL:      "https://basescan.org",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: true,
	},
	{
		Chain:            persist.ChainZora,
		Name:             "zora",
		DisplayName:      "Zora",
		NativeCurrency:   "ETH",
		ExplorerURL:      "https://explorer.zora.energy",
		TokenStandards:   []persist.TokenType{persist.TokenTypeERC721, persist.TokenTypeERC1155},
		EnabledByDefault: false,
	},
	{
		Chain:            persist.ChainSolana,
		Name:             "solana",
		DisplayName:      "Solana",
		NativeCurrency:   "SOL",
		ExplorerURL:      "https://solscan.io",
		TokenStandards:   []persist.TokenType{persist.TokenTypeSPL},
		EnabledByDefault: false,
	},
	{
		Chain:            persist.ChainTezos,
		Name:             "tezos",
		DisplayName:      "Tezos",
		NativeCurrency:   "XTZ",
		ExplorerURL:      "https://tzkt.io",
		TokenStandards:   []persist.TokenType{persist.TokenTypeFA2},
		EnabledByDefault: false,
	},
}

// CatalogEntry looks up one chain's config in the catalog
func CatalogEntry(chain persist.Chain) (ChainConfig, bool) {
	for _, cfg := range ChainCatalog {
		if cfg.Chain == chain {
			return cfg, true
		}
	}
	return ChainConfig{}, false
}
