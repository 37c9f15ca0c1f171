package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/omniwallet/nft-engine/service/multichain"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
)

func getAllNFTs(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := persist.Address(c.Param("address"))
		if owner == "" {
			util.ErrResponse(c, http.StatusBadRequest, fmt.Errorf("address is required"))
			return
		}
		c.JSON(http.StatusOK, aggregator.GetAllNFTs(c.Request.Context(), owner))
	}
}

func getAllCollections(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := persist.Address(c.Param("address"))
		if owner == "" {
			util.ErrResponse(c, http.StatusBadRequest, fmt.Errorf("address is required"))
			return
		}
		c.JSON(http.StatusOK, aggregator.GetAllCollections(c.Request.Context(), owner))
	}
}

func getNFTMetadata(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		chain, err := parseChain(c.Param("chain"))
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		contract := persist.Address(c.Param("contract"))
		tokenID := persist.TokenID(c.Param("tokenID"))

		item, err := aggregator.GetNFTMetadata(c.Request.Context(), chain, contract, tokenID)
		if err != nil {
			util.ErrResponse(c, http.StatusInternalServerError, err)
			return
		}
		if item == nil {
			util.ErrResponse(c, http.StatusNotFound, fmt.Errorf("token %s/%s not found on %s", contract, tokenID, chain))
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func getTrendingNFTs(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				util.ErrResponse(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
				return
			}
			limit = parsed
		}
		c.JSON(http.StatusOK, gin.H{"nfts": aggregator.GetTrendingNFTs(c.Request.Context(), limit)})
	}
}

func searchNFTs(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := multichain.SearchQuery{}
		if err := c.ShouldBindJSON(&query); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, aggregator.Search(c.Request.Context(), query))
	}
}

// parseChain accepts either a numeric chain id or a catalog chain name
func parseChain(raw string) (persist.Chain, error) {
	if id, err := strconv.Atoi(raw); err == nil {
		chain := persist.Chain(id)
		if _, ok := multichain.CatalogEntry(chain); ok {
			return chain, nil
		}
		return 0, multichain.ErrChainNotSupported{Chain: chain}
	}

	for _, cfg := range multichain.ChainCatalog {
		if cfg.Name == raw {
			return cfg.Chain, nil
		}
	}
	return 0, fmt.Errorf("unknown chain %q", raw)
}
