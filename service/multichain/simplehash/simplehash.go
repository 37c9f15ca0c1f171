package simplehash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
	"github.com/omniwallet/nft-engine/util/retry"
)

const (
	baseURL  = "https://api.simplehash.com/api/v0"
	pageSize = 50
)

var chainToSimpleHashChain = map[persist.Chain]string{
	persist.ChainETH:      "ethereum",
	persist.ChainOptimism: "optimism",
	persist.ChainPolygon:  "polygon",
	persist.ChainArbitrum: "arbitrum",
	persist.ChainBase:     "base",
	persist.ChainZora:     "zora",
	persist.ChainSolana:   "solana",
}

type simplehashContract struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	DeployedBy string `json:"deployed_by"`
}

type simplehashCollection struct {
	CollectionID string `json:"collection_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image_url"`
	SpamScore    int    `json:"spam_score"`
}

type simplehashOwner struct {
	OwnerAddress string `json:"owner_address"`
	Quantity     int    `json:"quantity"`
}

type simplehashExtraMetadata struct {
	Attributes  []persist.Attribute `json:"attributes"`
	ImageOrigin string              `json:"image_original_url"`
}

type simplehashNFT struct {
	NftID           string                  `json:"nft_id"`
	Chain           string                  `json:"chain"`
	ContractAddress string                  `json:"contract_address"`
	TokenID         string                  `json:"token_id"`
	Name            string                  `json:"name"`
	Description     string                  `json:"description"`
	ImageURL        string                  `json:"image_url"`
	ExternalURL     string                  `json:"external_url"`
	Owners          []simplehashOwner       `json:"owners"`
	Contract        simplehashContract      `json:"contract"`
	Collection      simplehashCollection    `json:"collection"`
	ExtraMetadata   simplehashExtraMetadata `json:"extra_metadata"`
}

type getNftsResponse struct {
	NextCursor string          `json:"next_cursor"`
	NFTs       []simplehashNFT `json:"nfts"`
}

// Source retrieves tokens from the SimpleHash API. SimpleHash is the only
// configured source that also covers Solana, so the Solana provider is built
// entirely on it.
type Source struct {
	chain      persist.Chain
	apiKey     string
	httpClient *http.Client
}

// NewSource creates a SimpleHash source for one chain. The chain must be one
// SimpleHash indexes.
func NewSource(chain persist.Chain, apiKey string, httpClient *http.Client) (*Source, error) {
	if _, ok := chainToSimpleHashChain[chain]; !ok {
		return nil, fmt.Errorf("simplehash does not index chain %s", chain)
	}
	return &Source{chain: chain, apiKey: apiKey, httpClient: httpClient}, nil
}

func (s *Source) Name() string {
	return "simplehash"
}

// GetNFTsByOwner retrieves every token the address owns, following cursors
// until limit is reached
func (s *Source) GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error) {
	nfts := []simplehashNFT{}
	cursor := ""

	for {
		page, err := s.fetchOwnersPage(ctx, owner, cursor)
		if err != nil {
			return nil, err
		}
		nfts = append(nfts, page.NFTs...)

		if page.NextCursor == "" || (limit > 0 && len(nfts) >= limit) {
			break
		}
		cursor = page.NextCursor
	}

	if limit > 0 && len(nfts) > limit {
		nfts = nfts[:limit]
	}

	logger.For(ctx).Debugf("simplehash returned %d nfts for %s on %s", len(nfts), owner, s.chain)
	return util.MapWithoutError(nfts, func(n simplehashNFT) common.NFTItem { return s.nftToItem(owner, n) }), nil
}

// GetNFTMetadata retrieves one token, or nil when SimpleHash does not know it
func (s *Source) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	u := fmt.Sprintf("%s/nfts/%s/%s/%s", baseURL, chainToSimpleHashChain[s.chain], contract, tokenID)

	resp, err := s.do(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, util.BodyAsError(resp)
	}

	nft := simplehashNFT{}
	if err := json.NewDecoder(resp.Body).Decode(&nft); err != nil {
		return nil, err
	}
	if nft.ContractAddress == "" {
		return nil, nil
	}

	owner := persist.Address("")
	if len(nft.Owners) > 0 {
		owner = persist.Address(nft.Owners[0].OwnerAddress)
	}
	item := s.nftToItem(owner, nft)
	return &item, nil
}

// Ping probes the API with a minimal request
func (s *Source) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/nfts/owners?chains=%s&wallet_addresses=%s&limit=1",
		baseURL, chainToSimpleHashChain[s.chain], "0x0000000000000000000000000000000000000001")
	resp, err := s.do(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return util.ErrHTTP{Status: resp.StatusCode, URL: u}
	}
	return nil
}

func (s *Source) fetchOwnersPage(ctx context.Context, owner persist.Address, cursor string) (getNftsResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/nfts/owners", baseURL))
	if err != nil {
		return getNftsResponse{}, err
	}

	q := u.Query()
	q.Set("chains", chainToSimpleHashChain[s.chain])
	q.Set("wallet_addresses", owner.String())
	q.Set("limit", fmt.Sprintf("%d", pageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	resp, err := s.do(ctx, u.String())
	if err != nil {
		return getNftsResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return getNftsResponse{}, util.BodyAsError(resp)
	}

	page := getNftsResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return getNftsResponse{}, fmt.Errorf("failed to decode simplehash response: %w", err)
	}
	return page, nil
}

func (s *Source) do(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-KEY", s.apiKey)
	}
	return retry.RetryRequest(s.httpClient, req)
}

// nftToItem is the single place SimpleHash's response shape maps into the
// canonical item
func (s *Source) nftToItem(owner persist.Address, n simplehashNFT) common.NFTItem {
	contract := persist.Address(n.ContractAddress)
	tokenID := persist.TokenID(n.TokenID)

	name := n.Name
	if name == "" && n.Collection.Name != "" {
		name = fmt.Sprintf("%s #%s", n.Collection.Name, n.TokenID)
	}

	return common.NFTItem{
		ID:              common.NewItemID(s.chain, contract, tokenID),
		TokenID:         tokenID,
		Name:            name,
		Description:     n.Description,
		Image:           n.ImageURL,
		ImageURL:        n.ImageURL,
		Attributes:      n.ExtraMetadata.Attributes,
		ContractAddress: contract,
		TokenStandard:   contractTypeToTokenType(n.Contract.Type, s.chain),
		Blockchain:      s.chain,
		Owner:           owner,
		Creator:         persist.Address(n.Contract.DeployedBy),
	}
}

func contractTypeToTokenType(contractType string, chain persist.Chain) persist.TokenType {
	switch strings.ToUpper(contractType) {
	case "ERC721":
		return persist.TokenTypeERC721
	case "ERC1155":
		return persist.TokenTypeERC1155
	case "NONFUNGIBLE", "PROGRAMMABLENONFUNGIBLE":
		return persist.TokenTypeSPL
	default:
		if chain == persist.ChainSolana {
			return persist.TokenTypeSPL
		}
		return persist.TokenTypeOther
	}
}
