package rpc

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/omniwallet/nft-engine/service/persist"
)

const defaultCallTimeout = 10 * time.Second

// transferTopic is the keccak hash of the ERC721 Transfer event signature
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var erc721ABI = mustParseABI(`[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"tokenOfOwnerByIndex","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"tokenURI","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`)

var erc1155ABI = mustParseABI(`[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"uri","type":"function","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"string"}]}
]`)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Client wraps an Ethereum JSON-RPC endpoint with the two capabilities the
// engine needs from a ledger: read-only view calls and event log fetches.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to an Ethereum-compatible JSON-RPC endpoint
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{eth: eth}, nil
}

// Close closes the underlying connection
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the current head block, used as a liveness probe
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}

// BalanceOf returns how many tokens of a contract an owner holds
func (c *Client) BalanceOf(ctx context.Context, contract, owner persist.Address) (*big.Int, error) {
	out, err := c.call(ctx, contract, erc721ABI, "balanceOf", ethcommon.HexToAddress(owner.String()))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenOfOwnerByIndex returns the owner's token id at the given enumeration
// index. Only contracts implementing ERC721Enumerable support this.
func (c *Client) TokenOfOwnerByIndex(ctx context.Context, contract, owner persist.Address, index int64) (*big.Int, error) {
	out, err := c.call(ctx, contract, erc721ABI, "tokenOfOwnerByIndex", ethcommon.HexToAddress(owner.String()), big.NewInt(index))
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenURI returns the metadata URI for an ERC721 token
func (c *Client) TokenURI(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (persist.TokenURI, error) {
	out, err := c.call(ctx, contract, erc721ABI, "tokenURI", tokenID.BigInt())
	if err != nil {
		return "", err
	}
	turi := out[0].(string)
	return persist.TokenURI(strings.ReplaceAll(turi, "\x00", "")), nil
}

// URI returns the metadata URI for an ERC1155 token
func (c *Client) URI(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (persist.TokenURI, error) {
	out, err := c.call(ctx, contract, erc1155ABI, "uri", tokenID.BigInt())
	if err != nil {
		return "", err
	}
	turi := out[0].(string)
	return persist.TokenURI(strings.ReplaceAll(turi, "\x00", "")), nil
}

// ContractName returns the contract's name, when it exposes one
func (c *Client) ContractName(ctx context.Context, contract persist.Address) (string, error) {
	out, err := c.call(ctx, contract, erc721ABI, "name")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// TokenIDsTransferredTo fetches Transfer logs with the owner as recipient and
// returns the distinct token ids seen, newest first, capped at limit. This is
// the enumeration path for contracts without ERC721Enumerable.
func (c *Client) TokenIDsTransferredTo(ctx context.Context, contract, owner persist.Address, limit int) ([]*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	ownerTopic := ethcommon.HexToHash(ethcommon.HexToAddress(owner.String()).Hex())
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []ethcommon.Address{ethcommon.HexToAddress(contract.String())},
		Topics: [][]ethcommon.Hash{
			{transferTopic},
			nil,
			{ownerTopic},
		},
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	ids := []*big.Int{}
	for i := len(logs) - 1; i >= 0 && len(ids) < limit; i-- {
		id, ok := tokenIDFromTransferLog(logs[i])
		if !ok || seen[id.String()] {
			continue
		}
		seen[id.String()] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func tokenIDFromTransferLog(l types.Log) (*big.Int, bool) {
	// ERC721 Transfer carries the token id as the third indexed topic
	if len(l.Topics) < 4 {
		return nil, false
	}
	return new(big.Int).SetBytes(l.Topics[3].Bytes()), true
}

func (c *Client) call(ctx context.Context, contract persist.Address, parsedABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	data, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	to := ethcommon.HexToAddress(contract.String())
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return parsedABI.Unpack(method, res)
}
