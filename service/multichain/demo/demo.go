package demo

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
)

// Generator produces deterministic placeholder items for development and demo
// configurations. The same (chain, address) pair always yields the same items,
// so UI snapshots and tests are stable. Generators are only ever wired into a
// provider whose mode is demo; live providers never see this package.
type Generator struct {
	chain    persist.Chain
	standard persist.TokenType
	currency string
}

// NewGenerator returns a generator for one chain
func NewGenerator(chain persist.Chain, standard persist.TokenType, currency string) *Generator {
	return &Generator{chain: chain, standard: standard, currency: currency}
}

var adjectives = []string{"Cosmic", "Pixel", "Golden", "Silent", "Electric", "Frozen", "Wandering", "Radiant"}
var subjects = []string{"Ape", "Voyager", "Garden", "Circuit", "Relic", "Totem", "Mirage", "Beacon"}
var categories = []string{"art", "collectibles", "gaming", "photography"}

// ItemsForOwner returns between 2 and 5 placeholder items owned by the address
func (g *Generator) ItemsForOwner(owner persist.Address) []common.NFTItem {
	rng := g.rngFor("owner", owner.String())
	count := 2 + rng.Intn(4)

	items := make([]common.NFTItem, 0, count)
	contract := randHexAddress(rng)
	series := adjectives[rng.Intn(len(adjectives))] + " " + subjects[rng.Intn(len(subjects))]

	for i := 0; i < count; i++ {
		tokenID := persist.TokenID(fmt.Sprintf("%d", rng.Intn(9000)+1))
		listed := rng.Intn(3) == 0
		item := common.NFTItem{
			ID:              common.NewItemID(g.chain, contract, tokenID),
			TokenID:         tokenID,
			Name:            fmt.Sprintf("%s #%s", series, tokenID),
			Description:     fmt.Sprintf("Placeholder token from the %s series", series),
			Attributes: []persist.Attribute{
				{TraitType: "Category", Value: categories[rng.Intn(len(categories))]},
				{TraitType: "Edition", Value: float64(i + 1)},
			},
			ContractAddress: contract,
			TokenStandard:   g.standard,
			Blockchain:      g.chain,
			Owner:           owner,
			Creator:         randHexAddress(rng),
			IsListed:        listed,
		}
		if listed {
			item.Price = fmt.Sprintf("%d.%02d", rng.Intn(10)+1, rng.Intn(100))
			item.Currency = g.currency
		}
		items = append(items, item)
	}
	return items
}

// TrendingItems returns a deterministic trending set for the chain
func (g *Generator) TrendingItems(limit int) []common.NFTItem {
	rng := g.rngFor("trending", "")
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	items := make([]common.NFTItem, 0, limit)
	for i := 0; i < limit; i++ {
		contract := randHexAddress(rng)
		tokenID := persist.TokenID(fmt.Sprintf("%d", i+1))
		series := adjectives[rng.Intn(len(adjectives))] + " " + subjects[rng.Intn(len(subjects))]
		items = append(items, common.NFTItem{
			ID:              common.NewItemID(g.chain, contract, tokenID),
			TokenID:         tokenID,
			Name:            fmt.Sprintf("%s #%s", series, tokenID),
			Attributes:      []persist.Attribute{{TraitType: "Category", Value: categories[rng.Intn(len(categories))]}},
			ContractAddress: contract,
			TokenStandard:   g.standard,
			Blockchain:      g.chain,
			Owner:           randHexAddress(rng),
			Creator:         randHexAddress(rng),
			Price:           fmt.Sprintf("%d.%d", rng.Intn(20)+1, rng.Intn(10)),
			Currency:        g.currency,
			IsListed:        true,
		})
	}
	return items
}

func (g *Generator) rngFor(kind, key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(fmt.Sprintf("%d|%s|%s", g.chain.ID(), kind, key)))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

const hexChars = "0123456789abcdef"

func randHexAddress(rng *rand.Rand) persist.Address {
	b := make([]byte, 40)
	for i := range b {
		b[i] = hexChars[rng.Intn(len(hexChars))]
	}
	return persist.Address("0x" + string(b))
}
