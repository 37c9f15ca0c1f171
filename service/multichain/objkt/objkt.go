package objkt

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/shurcooL/graphql"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
	"github.com/omniwallet/nft-engine/util/retry"
)

const (
	maxPageSize   = 500
	objktEndpoint = "https://data.objkt.com/v3/graphql"
)

type inputArgs map[string]any

type attribute struct {
	Name  string
	Value string
}

type contract struct {
	Name            string
	Contract        persist.Address
	Description     string
	Creator_Address persist.Address
}

type token struct {
	Token_ID      string
	Name          string
	Description   string
	Display_URI   string
	Thumbnail_URI string
	Lowest_Ask    *int64
	Attributes    []struct {
		Attribute attribute
	}
	Fa contract
}

type tokenNode struct {
	Token token
}

type tokenHolder struct {
	Held_Tokens []tokenNode `graphql:"held_tokens(limit: $limit, offset: $offset, where: {quantity: {_gt: 0}})"`
}

type tokensByWalletQuery struct {
	Holder []tokenHolder `graphql:"holder(where: {address: {_eq: $ownerAddress}}, limit: 1)"`
}

type tokensByIdentifiersQuery struct {
	Token []token `graphql:"token(where: {fa: {type: {_eq: fa2}}, fa_contract: {_eq: $contractAddress}, token_id: {_eq: $tokenID}})"`
}

// Source retrieves FA2 tokens from the objkt.com indexer
type Source struct {
	gql *graphql.Client
}

// NewSource creates an objkt source. The objkt indexer needs no API key.
func NewSource(httpClient *http.Client) *Source {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Source{gql: graphql.NewClient(objktEndpoint, httpClient)}
}

func (s *Source) Name() string {
	return "objkt"
}

// GetNFTsByOwner retrieves every FA2 token the address holds, paging through
// the indexer until limit is reached
func (s *Source) GetNFTsByOwner(ctx context.Context, owner persist.Address, limit int) ([]common.NFTItem, error) {
	pageSize := maxPageSize
	if limit > 0 && limit < pageSize {
		pageSize = limit
	}

	nodes := []tokenNode{}
	for offset := 0; ; offset += pageSize {
		q := tokensByWalletQuery{}
		err := retry.RetryQuery(ctx, s.gql, &q, inputArgs{
			"ownerAddress": graphql.String(owner),
			"limit":        graphql.Int(pageSize),
			"offset":       graphql.Int(offset),
		})
		if err != nil {
			return nil, err
		}

		if len(q.Holder) == 0 {
			break
		}

		page := q.Holder[0].Held_Tokens
		nodes = append(nodes, page...)

		if len(page) < pageSize || (limit > 0 && len(nodes) >= limit) {
			break
		}
	}

	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}

	logger.For(ctx).Debugf("objkt returned %d tokens for %s", len(nodes), owner)
	return util.MapWithoutError(nodes, func(n tokenNode) common.NFTItem { return tokenToItem(owner, n.Token) }), nil
}

// GetNFTMetadata retrieves one token, or nil when objkt does not know it
func (s *Source) GetNFTMetadata(ctx context.Context, contractAddr persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	q := tokensByIdentifiersQuery{}
	err := retry.RetryQuery(ctx, s.gql, &q, inputArgs{
		"contractAddress": graphql.String(contractAddr),
		"tokenID":         graphql.String(tokenID),
	})
	if err != nil {
		return nil, err
	}
	if len(q.Token) == 0 {
		return nil, nil
	}

	item := tokenToItem("", q.Token[0])
	return &item, nil
}

// Ping probes the indexer with a one-row query
func (s *Source) Ping(ctx context.Context) error {
	q := tokensByWalletQuery{}
	return retry.RetryQuery(ctx, s.gql, &q, inputArgs{
		"ownerAddress": graphql.String("tz1burnburnburnburnburnburnburjAYjjX"),
		"limit":        graphql.Int(1),
		"offset":       graphql.Int(0),
	})
}

// tokenToItem is the single place objkt's response shape maps into the
// canonical item
func tokenToItem(owner persist.Address, t token) common.NFTItem {
	tokenID := persist.TokenID(t.Token_ID)

	image := t.Display_URI
	if image == "" {
		image = t.Thumbnail_URI
	}

	attrs := util.MapWithoutError(t.Attributes, func(a struct{ Attribute attribute }) persist.Attribute {
		return persist.Attribute{TraitType: a.Attribute.Name, Value: a.Attribute.Value}
	})

	item := common.NFTItem{
		ID:              common.NewItemID(persist.ChainTezos, t.Fa.Contract, tokenID),
		TokenID:         tokenID,
		Name:            t.Name,
		Description:     t.Description,
		Image:           image,
		ImageURL:        image,
		Attributes:      attrs,
		ContractAddress: t.Fa.Contract,
		TokenStandard:   persist.TokenTypeFA2,
		Blockchain:      persist.ChainTezos,
		Owner:           owner,
		Creator:         t.Fa.Creator_Address,
	}

	// lowest_ask is denominated in mutez
	if t.Lowest_Ask != nil && *t.Lowest_Ask > 0 {
		item.Price = decimal.NewFromInt(*t.Lowest_Ask).Shift(-6).String()
		item.Currency = "XTZ"
		item.IsListed = true
	}

	return item
}
