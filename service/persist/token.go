package persist

import (
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

// TokenType represents the standard a token was minted under
type TokenType string

const (
	// TokenTypeERC721 represents an ERC721 token
	TokenTypeERC721 TokenType = "ERC721"
	// TokenTypeERC1155 represents an ERC1155 token
	TokenTypeERC1155 TokenType = "ERC1155"
	// TokenTypeSPL represents a Solana SPL token
	TokenTypeSPL TokenType = "SPL"
	// TokenTypeFA2 represents a Tezos FA2 token
	TokenTypeFA2 TokenType = "FA2"
	// TokenTypeOther represents any standard the engine does not model explicitly
	TokenTypeOther TokenType = "other"
)

// URIType represents the type of a URI
type URIType string

const (
	// URITypeBase64JSON represents a base64 encoded JSON document
	URITypeBase64JSON URIType = "base64json"
	// URITypeIPFS represents an IPFS URI
	URITypeIPFS URIType = "ipfs"
	// URITypeHTTP represents an HTTP URI
	URITypeHTTP URIType = "http"
	// URITypeJSON represents an inline JSON document
	URITypeJSON URIType = "json"
	// URITypeNone represents no URI
	URITypeNone URIType = "none"
	// URITypeUnknown represents an unknown URI type
	URITypeUnknown URIType = "unknown"
)

// Chain is the chain id of a blockchain supported by the engine
type Chain int

const (
	// ChainETH represents the Ethereum mainnet
	ChainETH Chain = 1
	// ChainOptimism represents the Optimism mainnet
	ChainOptimism Chain = 10
	// ChainPolygon represents the Polygon mainnet
	ChainPolygon Chain = 137
	// ChainArbitrum represents the Arbitrum One mainnet
	ChainArbitrum Chain = 42161
	// ChainBase represents the Base mainnet
	ChainBase Chain = 8453
	// ChainZora represents the Zora network
	ChainZora Chain = 7777777
	// ChainSolana represents the Solana mainnet
	ChainSolana Chain = 101
	// ChainTezos represents the Tezos mainnet
	ChainTezos Chain = 1729
)

func (c Chain) String() string {
	switch c {
	case ChainETH:
		return "ethereum"
	case ChainOptimism:
		return "optimism"
	case ChainPolygon:
		return "polygon"
	case ChainArbitrum:
		return "arbitrum"
	case ChainBase:
		return "base"
	case ChainZora:
		return "zora"
	case ChainSolana:
		return "solana"
	case ChainTezos:
		return "tezos"
	default:
		return fmt.Sprintf("chain-%d", int(c))
	}
}

// ID returns the numeric chain id
func (c Chain) ID() int {
	return int(c)
}

// IsEVM reports whether the chain speaks the Ethereum JSON-RPC surface
func (c Chain) IsEVM() bool {
	switch c {
	case ChainETH, ChainOptimism, ChainPolygon, ChainArbitrum, ChainBase, ChainZora:
		return true
	default:
		return false
	}
}

// TokenID is a token's identifier within its contract, as a decimal string
type TokenID string

func (id TokenID) String() string {
	return string(id)
}

// BigInt returns the token ID as a big.Int, treating unparseable IDs as zero
func (id TokenID) BigInt() *big.Int {
	normalized := strings.TrimPrefix(string(id), "0x")
	base := 10
	if normalized != string(id) {
		base = 16
	}
	if i, ok := new(big.Int).SetString(normalized, base); ok {
		return i
	}
	return big.NewInt(0)
}

// TokenURI is the metadata URI a token points at
type TokenURI string

func (uri TokenURI) String() string {
	asString := string(uri)
	if strings.HasPrefix(asString, "http") || strings.HasPrefix(asString, "ipfs") {
		unescaped, err := url.QueryUnescape(asString)
		if err == nil && unescaped != asString {
			return unescaped
		}
	}
	return asString
}

// Type returns the type of the token URI
func (uri TokenURI) Type() URIType {
	asString := strings.TrimSpace(uri.String())
	switch {
	case strings.HasPrefix(asString, "data:application/json;base64,"):
		return URITypeBase64JSON
	case strings.HasPrefix(asString, "ipfs://"), strings.HasPrefix(asString, "ipfs/"), strings.HasPrefix(asString, "Qm"):
		return URITypeIPFS
	case strings.HasPrefix(asString, "http"):
		return URITypeHTTP
	case strings.HasPrefix(asString, "{"), strings.HasPrefix(asString, "data:application/json"):
		return URITypeJSON
	case asString == "":
		return URITypeNone
	default:
		return URITypeUnknown
	}
}

// Attribute is a single trait of a token's metadata
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// ValueString renders the attribute value as a string regardless of the JSON
// type the upstream encoded it with
func (a Attribute) ValueString() string {
	switch v := a.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
