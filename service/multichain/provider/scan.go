package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/metadata"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/service/rpc"
)

const (
	// maxTokensPerContract caps how deep a direct scan enumerates one contract.
	// Ledger reads are the slowest layer, so the scan trades completeness for
	// bounded latency.
	maxTokensPerContract = 10
	scanWorkers          = 4
)

// ledgerReader is the slice of the rpc client the scan path reads through
type ledgerReader interface {
	BalanceOf(ctx context.Context, contract, owner persist.Address) (*big.Int, error)
	TokenOfOwnerByIndex(ctx context.Context, contract, owner persist.Address, index int64) (*big.Int, error)
	TokenIDsTransferredTo(ctx context.Context, contract, owner persist.Address, limit int) ([]*big.Int, error)
	ContractName(ctx context.Context, contract persist.Address) (string, error)
	TokenURI(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (persist.TokenURI, error)
	URI(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (persist.TokenURI, error)
}

// Scanner enumerates an owner's tokens straight from an EVM ledger. It only
// looks at an allow-list of contracts because scanning a whole chain without an
// index is not feasible.
type Scanner struct {
	chain     persist.Chain
	contracts []persist.Address
	resolver  *metadata.Resolver

	mu     sync.Mutex
	rpcURL string
	client *rpc.Client
}

// NewScanner creates a scanner over the given contract allow-list. The RPC
// connection is dialed lazily so a bad URL surfaces as a failed scan, not a
// failed startup.
func NewScanner(chain persist.Chain, rpcURL string, contracts []persist.Address, resolver *metadata.Resolver) *Scanner {
	return &Scanner{chain: chain, rpcURL: rpcURL, contracts: contracts, resolver: resolver}
}

// SetRPCURL swaps the scanner's endpoint. The current connection is dropped
// and the next scan dials the new URL.
func (s *Scanner) SetRPCURL(rawURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rawURL == s.rpcURL {
		return
	}
	s.rpcURL = rawURL
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// Ping verifies the endpoint answers a head block query
func (s *Scanner) Ping(ctx context.Context) error {
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	_, err = client.BlockNumber(ctx)
	return err
}

// ScanOwner enumerates the owner's tokens across the allow-listed contracts.
// Contracts are scanned concurrently and a failing contract is skipped rather
// than failing the scan. ok is false only when the ledger itself is
// unreachable.
func (s *Scanner) ScanOwner(ctx context.Context, owner persist.Address) ([]common.NFTItem, bool) {
	client, err := s.connect(ctx)
	if err != nil {
		logger.For(ctx).WithError(err).Warnf("could not dial rpc for %s", s.chain)
		return nil, false
	}

	wp := workerpool.New(scanWorkers)
	mu := sync.Mutex{}
	items := []common.NFTItem{}

	for _, contract := range s.contracts {
		contract := contract
		wp.Submit(func() {
			found, err := s.scanContract(ctx, client, contract, owner)
			if err != nil {
				logger.For(ctx).WithError(err).Warnf("skipping contract %s during scan", contract)
				return
			}
			mu.Lock()
			items = append(items, found...)
			mu.Unlock()
		})
	}
	wp.StopWait()

	return items, true
}

// TokenItem reads one token's metadata straight from the ledger
func (s *Scanner) TokenItem(ctx context.Context, contract persist.Address, tokenID persist.TokenID) (*common.NFTItem, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	uri, standard, err := tokenURIFor(ctx, client, contract, tokenID)
	if err != nil {
		return nil, err
	}

	name, _ := client.ContractName(ctx, contract)
	item := s.buildItem(ctx, contract, tokenID, "", name, standard, uri)
	return &item, nil
}

func (s *Scanner) connect(ctx context.Context) (*rpc.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.rpcURL == "" {
		return nil, fmt.Errorf("no rpc url configured for %s", s.chain)
	}

	client, err := rpc.Dial(ctx, s.rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s rpc", s.chain)
	}
	s.client = client
	return client, nil
}

func (s *Scanner) scanContract(ctx context.Context, client ledgerReader, contract, owner persist.Address) ([]common.NFTItem, error) {
	balance, err := client.BalanceOf(ctx, contract, owner)
	if err != nil {
		return nil, errors.Wrapf(err, "reading balance of %s", contract)
	}
	if balance.Sign() == 0 {
		return nil, nil
	}

	// compare as big.Int before converting; a balance beyond int64 must clamp,
	// not truncate
	count := maxTokensPerContract
	if balance.Cmp(big.NewInt(maxTokensPerContract)) < 0 {
		count = int(balance.Int64())
	}

	ids, err := s.enumerate(ctx, client, contract, owner, count)
	if err != nil {
		return nil, err
	}

	name, err := client.ContractName(ctx, contract)
	if err != nil {
		name = ""
	}

	items := make([]common.NFTItem, 0, len(ids))
	for _, id := range ids {
		tokenID := persist.TokenID(id.Text(10))
		uri, standard, err := tokenURIFor(ctx, client, contract, tokenID)
		if err != nil {
			logger.For(ctx).WithError(err).Debugf("no uri for %s/%s", contract, tokenID)
		}
		items = append(items, s.buildItem(ctx, contract, tokenID, owner, name, standard, uri))
	}
	return items, nil
}

// enumerate prefers ERC721Enumerable and falls back to replaying Transfer logs
// for contracts that do not implement it. Once enumeration has started, a
// failing index is skipped rather than aborting the contract.
func (s *Scanner) enumerate(ctx context.Context, client ledgerReader, contract, owner persist.Address, count int) ([]*big.Int, error) {
	ids := make([]*big.Int, 0, count)
	for i := 0; i < count; i++ {
		id, err := client.TokenOfOwnerByIndex(ctx, contract, owner, int64(i))
		if err != nil {
			if i == 0 {
				return client.TokenIDsTransferredTo(ctx, contract, owner, count)
			}
			logger.For(ctx).WithError(err).Debugf("skipping token index %d on %s", i, contract)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// tokenURIFor tries the ERC721 accessor first and the ERC1155 one second,
// reporting which standard answered
func tokenURIFor(ctx context.Context, client ledgerReader, contract persist.Address, tokenID persist.TokenID) (persist.TokenURI, persist.TokenType, error) {
	if uri, err := client.TokenURI(ctx, contract, tokenID); err == nil {
		return uri, persist.TokenTypeERC721, nil
	}
	uri, err := client.URI(ctx, contract, tokenID)
	if err != nil {
		return "", persist.TokenTypeERC721, err
	}
	return uri, persist.TokenTypeERC1155, nil
}

func (s *Scanner) buildItem(ctx context.Context, contract persist.Address, tokenID persist.TokenID, owner persist.Address, contractName string, standard persist.TokenType, uri persist.TokenURI) common.NFTItem {
	fallbackName := fmt.Sprintf("#%s", tokenID)
	if contractName != "" {
		fallbackName = fmt.Sprintf("%s #%s", contractName, tokenID)
	}

	md := metadata.Metadata{Name: fallbackName}
	if s.resolver != nil {
		md = s.resolver.Resolve(ctx, uri, fallbackName)
	}

	return common.NFTItem{
		ID:              common.NewItemID(s.chain, contract, tokenID),
		TokenID:         tokenID,
		Name:            md.Name,
		Description:     md.Description,
		Image:           md.Image,
		ImageURL:        md.Image,
		Attributes:      md.Attributes,
		ContractAddress: contract,
		TokenStandard:   standard,
		Blockchain:      s.chain,
		Owner:           owner,
	}
}
