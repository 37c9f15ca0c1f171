package alchemy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
	"github.com/omniwallet/nft-engine/util/retry"
)

const pageSize = 100

// TokenID is Alchemy's hex token id representation
type TokenID string

func (t TokenID) String() string {
	return string(t)
}

// ToTokenID converts the hex representation into the canonical decimal form
func (t TokenID) ToTokenID() persist.TokenID {
	asString := strings.TrimPrefix(string(t), "0x")
	base := 16
	if asString == string(t) {
		base = 10
	}
	i, ok := new(big.Int).SetString(asString, base)
	if !ok {
		return ""
	}
	return persist.TokenID(i.Text(10))
}

type TokenURI struct {
	Gateway string `json:"gateway"`
	Raw     string `json:"raw"`
}

type Media struct {
	Raw     string `json:"raw"`
	Gateway string `json:"gateway"`
}

type Metadata struct {
	Image       string              `json:"image"`
	ExternalURL string              `json:"external_url"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Attributes  []persist.Attribute `json:"attributes"`
}

// UnmarshalJSON tolerates metadata being encoded as a plain string, which
// Alchemy does for tokens whose URI did not resolve to JSON
func (m *Metadata) UnmarshalJSON(data []byte) error {
	type Alias Metadata
	aux := Alias{}

	if err := json.Unmarshal(data, &aux); err != nil {
		asString := ""
		if err := json.Unmarshal(data, &asString); err != nil {
			return nil
		}
		return nil
	}

	*m = Metadata(aux)
	return nil
}

type ContractMetadata struct {
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	TokenType        string `json:"tokenType"`
	ContractDeployer string `json:"contractDeployer"`
}

type Contract struct {
	Address string `json:"address"`
}

type TokenIdentifiers struct {
	TokenID       TokenID          `json:"tokenId"`
	TokenMetadata ContractMetadata `json:"tokenMetadata"`
}

type Token struct {
	Contract         Contract         `json:"contract"`
	ID               TokenIdentifiers `json:"id"`
	Balance          string           `json:"balance"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	TokenURI         TokenURI         `json:"tokenUri"`
	Media            []Media          `json:"media"`
	Metadata         Metadata         `json:"metadata"`
	ContractMetadata ContractMetadata `json:"contractMetadata"`
}

type getNFTsResponse struct {
	OwnedNFTs  []Token `json:"ownedNfts"`
	PageKey    string  `json:"pageKey"`
	TotalCount int     `json:"totalCount"`
}

// Source retrieves tokens from the Alchemy NFT API for one chain
type Source struct {
	chain      persist.Chain
	apiURL     string
	httpClient *http.Client
}

// NewSource creates an Alchemy source. apiURL includes the API key path
// segment, e.g. https://eth-mainnet.g.alchemy.com/nft/v2/<key>.
func NewSource(chain persist.Chain, apiURL string, httpClient *http.Client) *Source {
	return &Source{chain: chain, apiURL: strings.TrimSuffix(apiURL, "/"), httpClient: httpClient}
}

func (s *Source) Name() string {
	return "alchemy"
}

// GetNFTsByOwner retrieves every token the address owns, following Alchemy's
// page keys until limit is reached
func (s *Source) GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error) {
	tokens := []Token{}
	pageKey := ""

	for {
		page, nextKey, err := s.fetchPage(ctx, owner, pageKey)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)

		if nextKey == "" || nextKey == pageKey || (limit > 0 && len(tokens) >= limit) {
			break
		}
		pageKey = nextKey
	}

	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}

	logger.For(ctx).Debugf("alchemy returned %d tokens for %s on %s", len(tokens), owner, s.chain)
	return util.MapWithoutError(tokens, func(t Token) common.NFTItem { return s.tokenToItem(owner, t) }), nil
}

// GetNFTMetadata retrieves one token's canonical item, or nil when Alchemy
// does not know the token
func (s *Source) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	u := fmt.Sprintf("%s/getNFTMetadata?contractAddress=%s&tokenId=%s", s.apiURL, contract, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := retry.RetryRequest(s.httpClient, req)
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

	token := Token{}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	if token.Contract.Address == "" {
		return nil, nil
	}

	item := s.tokenToItem("", token)
	return &item, nil
}

// Ping probes the API with a minimal request
func (s *Source) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/getNFTs?owner=%s&pageSize=1", s.apiURL, "0x0000000000000000000000000000000000000001")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return util.ErrHTTP{Status: resp.StatusCode, URL: u}
	}
	return nil
}

func (s *Source) fetchPage(ctx context.Context, owner persist.Address, pageKey string) ([]Token, string, error) {
	u, err := url.Parse(fmt.Sprintf("%s/getNFTs", s.apiURL))
	if err != nil {
		return nil, "", err
	}

	q := u.Query()
	q.Set("owner", owner.String())
	q.Set("withMetadata", "true")
	q.Set("pageSize", fmt.Sprintf("%d", pageSize))
	if s.chain == persist.ChainPolygon {
		q.Set("excludeFilters[]", "SPAM")
	}
	if pageKey != "" {
		q.Set("pageKey", pageKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := retry.RetryRequest(s.httpClient, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", util.BodyAsError(resp)
	}

	page := getNFTsResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("failed to decode alchemy response: %w", err)
	}

	return page.OwnedNFTs, page.PageKey, nil
}

// tokenToItem is the single place Alchemy's response shape maps into the
// canonical item. New Alchemy fields are absorbed here, never downstream.
func (s *Source) tokenToItem(owner persist.Address, t Token) common.NFTItem {
	contract := persist.Address(t.Contract.Address)
	tokenID := t.ID.TokenID.ToTokenID()

	name := t.Title
	if name == "" {
		name = t.Metadata.Name
	}
	description := t.Description
	if description == "" {
		description = t.Metadata.Description
	}

	imageURL := t.Metadata.Image
	if imageURL == "" && len(t.Media) > 0 {
		imageURL = t.Media[0].Gateway
	}

	return common.NFTItem{
		ID:              common.NewItemID(s.chain, contract, tokenID),
		TokenID:         tokenID,
		Name:            name,
		Description:     description,
		Image:           imageURL,
		ImageURL:        imageURL,
		Attributes:      t.Metadata.Attributes,
		ContractAddress: contract,
		TokenStandard:   tokenTypeFrom(t.ID.TokenMetadata.TokenType, t.ContractMetadata.TokenType),
		Blockchain:      s.chain,
		Owner:           owner,
		Creator:         persist.Address(t.ContractMetadata.ContractDeployer),
	}
}

func tokenTypeFrom(candidates ...string) persist.TokenType {
	for _, c := range candidates {
		switch strings.ToUpper(c) {
		case "ERC721":
			return persist.TokenTypeERC721
		case "ERC1155":
			return persist.TokenTypeERC1155
		}
	}
	return persist.TokenTypeOther
}
