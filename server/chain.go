package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/omniwallet/nft-engine/service/multichain"
	"github.com/omniwallet/nft-engine/service/multichain/common"
	"github.com/omniwallet/nft-engine/service/persist"
	"github.com/omniwallet/nft-engine/util"
)

type chainListResponse struct {
	Chains  []multichain.ChainConfig `json:"chains"`
	Enabled []persist.Chain          `json:"enabled"`
}

type toggleChainInput struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func getChains(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, chainListResponse{
			Chains:  aggregator.GetSupportedChains(),
			Enabled: aggregator.GetEnabledChains(),
		})
	}
}

func getChainStatus(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"statuses": aggregator.TestConnections(c.Request.Context())})
	}
}

func getChainStatistics(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := persist.Address(c.Param("address"))
		if owner == "" {
			util.ErrResponse(c, http.StatusBadRequest, fmt.Errorf("address is required"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"stats": aggregator.GetChainStatistics(c.Request.Context(), owner)})
	}
}

func toggleChain(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		chain, err := parseChain(c.Param("chain"))
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		input := toggleChainInput{}
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if err := aggregator.ToggleChain(chain, *input.Enabled); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}

func updateChainConfig(aggregator *multichain.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		chain, err := parseChain(c.Param("chain"))
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		partial := common.ProviderConfig{}
		if err := c.ShouldBindJSON(&partial); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		if err := aggregator.UpdateChainConfig(chain, partial); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		c.JSON(http.StatusOK, util.SuccessResponse{Success: true})
	}
}
