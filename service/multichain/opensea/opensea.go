package opensea

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
	"github.com/omniwallet/nft-engine/util/retry"
)

const pageSize = 50

type Account struct {
	Address persist.Address `json:"address"`
}

type Contract struct {
	Address    persist.Address `json:"address"`
	SchemaName string          `json:"schema_name"`
	Symbol     string          `json:"symbol"`
}

type Collection struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type PaymentToken struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

type Order struct {
	CurrentPrice string       `json:"current_price"`
	PaymentToken PaymentToken `json:"payment_token_contract"`
}

type Asset struct {
	ID          int    `json:"id"`
	TokenID     string `json:"token_id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	ImageURL         string `json:"image_url"`
	ImageOriginalURL string `json:"image_original_url"`

	Traits []persist.Attribute `json:"traits"`

	Contract   Contract   `json:"asset_contract"`
	Collection Collection `json:"collection"`
	Creator    Account    `json:"creator"`
	Owner      Account    `json:"owner"`

	Permalink  string  `json:"permalink"`
	SellOrders []Order `json:"sell_orders"`
}

type Assets struct {
	Next   string  `json:"next"`
	Assets []Asset `json:"assets"`
}

// Source retrieves tokens and listing data from the OpenSea API
type Source struct {
	chain      persist.Chain
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewSource creates an OpenSea source for one chain
func NewSource(chain persist.Chain, apiURL, apiKey string, httpClient *http.Client) *Source {
	return &Source{chain: chain, apiURL: strings.TrimSuffix(apiURL, "/"), apiKey: apiKey, httpClient: httpClient}
}

func (s *Source) Name() string {
	return "opensea"
}

// GetNFTsByOwner retrieves every asset the address owns, following OpenSea's
// cursor until limit is reached
func (s *Source) GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error) {
	assets := []Asset{}
	cursor := ""

	for {
		page, err := s.fetchAssets(ctx, map[string]string{"owner": owner.String()}, cursor)
		if err != nil {
			return nil, err
		}
		assets = append(assets, page.Assets...)

		if page.Next == "" || (limit > 0 && len(assets) >= limit) {
			break
		}
		cursor = page.Next
	}

	if limit > 0 && len(assets) > limit {
		assets = assets[:limit]
	}

	logger.For(ctx).Debugf("opensea returned %d assets for %s", len(assets), owner)
	return util.MapWithoutError(assets, func(a Asset) common.NFTItem { return s.assetToItem(owner, a) }), nil
}

// GetNFTMetadata retrieves one asset, or nil when OpenSea does not know it
func (s *Source) GetNFTMetadata(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	u := fmt.Sprintf("%s/asset/%s/%s/", s.apiURL, contract, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

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

	asset := Asset{}
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, err
	}

	item := s.assetToItem(asset.Owner.Address, asset)
	return &item, nil
}

// GetTrendingNFTs returns recently sold assets as a trending proxy
func (s *Source) GetTrendingNFTs(ctx context.Context, limit int) ([]common.NFTItem, error) {
	page, err := s.fetchAssets(ctx, map[string]string{"order_by": "sale_date", "order_direction": "desc"}, "")
	if err != nil {
		return nil, err
	}

	assets := page.Assets
	if limit > 0 && len(assets) > limit {
		assets = assets[:limit]
	}
	return util.MapWithoutError(assets, func(a Asset) common.NFTItem { return s.assetToItem(a.Owner.Address, a) }), nil
}

// Ping probes the API with a minimal request
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.fetchAssets(ctx, map[string]string{"limit": "1"}, "")
	return err
}

func (s *Source) fetchAssets(ctx context.Context, params map[string]string, cursor string) (Assets, error) {
	u, err := url.Parse(fmt.Sprintf("%s/assets", s.apiURL))
	if err != nil {
		return Assets{}, err
	}

	q := u.Query()
	q.Set("limit", fmt.Sprintf("%d", pageSize))
	for k, v := range params {
		q.Set(k, v)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Assets{}, err
	}
	s.setHeaders(req)

	resp, err := retry.RetryRequest(s.httpClient, req)
	if err != nil {
		return Assets{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Assets{}, util.BodyAsError(resp)
	}

	assets := Assets{}
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		return Assets{}, fmt.Errorf("failed to decode opensea response: %w", err)
	}
	return assets, nil
}

func (s *Source) setHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("X-API-KEY", s.apiKey)
	}
}

// assetToItem is the single place OpenSea's response shape maps into the
// canonical item
func (s *Source) assetToItem(owner persist.Address, a Asset) common.NFTItem {
	tokenID := persist.TokenID(a.TokenID)

	item := common.NFTItem{
		ID:              common.NewItemID(s.chain, a.Contract.Address, tokenID),
		TokenID:         tokenID,
		Name:            a.Name,
		Description:     a.Description,
		Image:           a.ImageURL,
		ImageURL:        a.ImageURL,
		Attributes:      a.Traits,
		ContractAddress: a.Contract.Address,
		TokenStandard:   schemaToTokenType(a.Contract.SchemaName),
		Blockchain:      s.chain,
		Owner:           owner,
		Creator:         a.Creator.Address,
		MarketplaceURL:  a.Permalink,
	}

	if item.Name == "" && a.Collection.Name != "" {
		item.Name = fmt.Sprintf("%s #%s", a.Collection.Name, a.TokenID)
	}

	if len(a.SellOrders) > 0 {
		order := a.SellOrders[0]
		if wei, err := decimal.NewFromString(order.CurrentPrice); err == nil && wei.IsPositive() {
			item.Price = wei.Shift(-order.PaymentToken.Decimals).String()
			item.Currency = order.PaymentToken.Symbol
			item.IsListed = true
		}
	}

	return item
}

func schemaToTokenType(schema string) persist.TokenType {
	switch strings.ToUpper(schema) {
	case "ERC721", "CRYPTOPUNKS":
		return persist.TokenTypeERC721
	case "ERC1155":
		return persist.TokenTypeERC1155
	default:
		return persist.TokenTypeOther
	}
}
