package multichain

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
)

const (
	// searchPerChainLimit bounds how many candidates each chain contributes
	// before filtering and pagination
	searchPerChainLimit = 100

	defaultSearchLimit = 20
	maxSearchLimit     = 100

	// defaults applied when an item carries no listing details of its own
	defaultCategory = "general"
	defaultCurrency = "ETH"
	defaultSeller   = "unknown"
)

// Sort orders accepted by Search
const (
	SortPriceAsc    = "price_asc"
	SortPriceDesc   = "price_desc"
	SortCreatedDesc = "created_desc"
)

// SearchQuery describes one cross-chain search. Zero values mean "no
// constraint": empty Chains searches every enabled chain, empty price bounds
// skip price filtering.
type SearchQuery struct {
	Query    string          `json:"query"`
	Chains   []persist.Chain `json:"chains,omitempty"`
	Category string          `json:"category,omitempty"`
	MinPrice string          `json:"minPrice,omitempty"`
	MaxPrice string          `json:"maxPrice,omitempty"`
	SortBy   string          `json:"sortBy,omitempty"`
	Offset   int             `json:"offset"`
	Limit    int             `json:"limit"`
}

// Listing is the marketplace-facing view of an item. Every field is populated:
// items missing listing details get the documented defaults.
type Listing struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"imageUrl"`
	Price           string          `json:"price"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Blockchain      persist.Chain   `json:"blockchain"`
	ContractAddress persist.Address `json:"contractAddress"`
	TokenID         persist.TokenID `json:"tokenId"`
	Seller          string          `json:"seller"`
	IsListed        bool            `json:"isListed"`
	MarketplaceURL  string          `json:"marketplaceUrl,omitempty"`
}

// PriceRange is the [min, max] span of positive prices in a result set. A set
// with no priced items reports {0, 0}.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// FacetEntry is one filter option with its match count
type FacetEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Facets are value counts over the full filtered result set, not just the
// returned page
type Facets struct {
	Categories  []FacetEntry `json:"categories"`
	Blockchains []FacetEntry `json:"blockchains"`
}

// SearchResult is one page of listings plus aggregates over the whole match
// set
type SearchResult struct {
	Listings   []Listing  `json:"listings"`
	TotalCount int        `json:"totalCount"`
	HasMore    bool       `json:"hasMore"`
	Facets     Facets     `json:"facets"`
	PriceRange PriceRange `json:"priceRange"`
}

// Search runs a text query across the requested chains and shapes the merged
// matches into a paged, faceted marketplace result
func (a *Aggregator) Search(ctx context.Context, query SearchQuery) SearchResult {
	if query.Limit <= 0 {
		query.Limit = defaultSearchLimit
	}
	if query.Limit > maxSearchLimit {
		query.Limit = maxSearchLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	listings := a.collectListings(ctx, query)
	listings = filterListings(listings, query)
	sortListings(listings, query.SortBy)

	result := SearchResult{
		TotalCount: len(listings),
		Facets:     computeFacets(listings),
		PriceRange: computePriceRange(listings),
	}
	result.Listings = paginate(listings, query.Offset, query.Limit)
	result.HasMore = query.Offset+len(result.Listings) < result.TotalCount
	return result
}

func (a *Aggregator) collectListings(ctx context.Context, query SearchQuery) []Listing {
	chains := query.Chains
	if len(chains) == 0 {
		chains = a.GetEnabledChains()
	}

	listings := []Listing{}
	mu := sync.Mutex{}
	wg := conc.WaitGroup{}

	for _, chain := range chains {
		chain := chain
		if !a.IsChainEnabled(chain) {
			continue
		}
		provider, ok := a.Provider(chain)
		if !ok {
			continue
		}

		wg.Go(func() {
			chainCtx, cancel := context.WithTimeout(ctx, a.chainTimeout)
			defer cancel()

			items, err := provider.SearchNFTs(chainCtx, query.Query, searchPerChainLimit)
			if err != nil {
				logger.For(ctx).WithError(err).Warnf("chain %s failed search", chain)
				return
			}

			mu.Lock()
			for _, item := range items {
				listings = append(listings, ToListing(item))
			}
			mu.Unlock()
		})
	}
	wg.Wait()

	return listings
}

// ToListing maps an item into its marketplace view, applying defaults for
// missing listing details
func ToListing(item common.NFTItem) Listing {
	category := item.Category()
	if category == "" {
		category = defaultCategory
	}
	currency := item.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	seller := item.Owner.String()
	if seller == "" {
		seller = defaultSeller
	}

	return Listing{
		ID:              item.ID,
		Name:            item.Name,
		Description:     item.Description,
		ImageURL:        item.ImageURL,
		Price:           item.Price,
		Currency:        currency,
		Category:        category,
		Blockchain:      item.Blockchain,
		ContractAddress: item.ContractAddress,
		TokenID:         item.TokenID,
		Seller:          seller,
		IsListed:        item.IsListed,
		MarketplaceURL:  item.MarketplaceURL,
	}
}

func (l Listing) priceDecimal() (decimal.Decimal, bool) {
	if l.Price == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(l.Price)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func filterListings(listings []Listing, query SearchQuery) []Listing {
	minPrice, hasMin := parsePriceBound(query.MinPrice)
	maxPrice, hasMax := parsePriceBound(query.MaxPrice)

	filtered := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if query.Category != "" && l.Category != query.Category {
			continue
		}
		if hasMin || hasMax {
			// price bounds only match items that actually carry a price
			price, ok := l.priceDecimal()
			if !ok {
				continue
			}
			if hasMin && price.LessThan(minPrice) {
				continue
			}
			if hasMax && price.GreaterThan(maxPrice) {
				continue
			}
		}
		filtered = append(filtered, l)
	}
	return filtered
}

func parsePriceBound(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// sortListings orders the full match set before pagination. Unpriced listings
// sort after priced ones for both price orders.
func sortListings(listings []Listing, sortBy string) {
	switch sortBy {
	case SortPriceAsc:
		sort.SliceStable(listings, func(i, j int) bool {
			pi, iok := listings[i].priceDecimal()
			pj, jok := listings[j].priceDecimal()
			if iok != jok {
				return iok
			}
			if !iok {
				return false
			}
			return pi.LessThan(pj)
		})
	case SortPriceDesc:
		sort.SliceStable(listings, func(i, j int) bool {
			pi, iok := listings[i].priceDecimal()
			pj, jok := listings[j].priceDecimal()
			if iok != jok {
				return iok
			}
			if !iok {
				return false
			}
			return pi.GreaterThan(pj)
		})
	case SortCreatedDesc:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].TokenID.BigInt().Cmp(listings[j].TokenID.BigInt()) > 0
		})
	}
}

func computeFacets(listings []Listing) Facets {
	categoryCounts := map[string]int{}
	chainCounts := map[persist.Chain]int{}
	for _, l := range listings {
		categoryCounts[l.Category]++
		chainCounts[l.Blockchain]++
	}

	facets := Facets{Categories: []FacetEntry{}, Blockchains: []FacetEntry{}}

	categories := make([]string, 0, len(categoryCounts))
	for category := range categoryCounts {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		facets.Categories = append(facets.Categories, FacetEntry{ID: category, Name: category, Count: categoryCounts[category]})
	}

	for _, cfg := range ChainCatalog {
		if count := chainCounts[cfg.Chain]; count > 0 {
			facets.Blockchains = append(facets.Blockchains, FacetEntry{ID: cfg.Name, Name: cfg.DisplayName, Count: count})
		}
	}
	return facets
}

func computePriceRange(listings []Listing) PriceRange {
	r := PriceRange{}
	seen := false
	for _, l := range listings {
		price, ok := l.priceDecimal()
		if !ok {
			continue
		}
		if !seen {
			r.Min, r.Max = price, price
			seen = true
			continue
		}
		if price.LessThan(r.Min) {
			r.Min = price
		}
		if price.GreaterThan(r.Max) {
			r.Max = price
		}
	}
	return r
}

func paginate(listings []Listing, offset, limit int) []Listing {
	if offset >= len(listings) {
		return []Listing{}
	}
	end := offset + limit
	if end > len(listings) {
		end = len(listings)
	}
	return listings[offset:end]
}
