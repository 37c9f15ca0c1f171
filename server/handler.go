package server

import (
	"github.com/gin-gonic/gin"

	"github.com/omniwallet/nft-engine/service/multichain"
	"github.com/omniwallet/nft-engine/util"
)

func handlersInit(router *gin.Engine, aggregator *multichain.Aggregator) *gin.Engine {
	router.GET("/health", util.HealthCheckHandler())

	api := router.Group("/api/v1")

	nfts := api.Group("/nfts")
	nfts.GET("/owner/:address", getAllNFTs(aggregator))
	nfts.GET("/token/:chain/:contract/:tokenID", getNFTMetadata(aggregator))
	nfts.GET("/trending", getTrendingNFTs(aggregator))
	nfts.POST("/search", searchNFTs(aggregator))

	collections := api.Group("/collections")
	collections.GET("/owner/:address", getAllCollections(aggregator))

	chains := api.Group("/chains")
	chains.GET("", getChains(aggregator))
	chains.GET("/status", getChainStatus(aggregator))
	chains.GET("/stats/:address", getChainStatistics(aggregator))
	chains.POST("/:chain/toggle", toggleChain(aggregator))
	chains.PUT("/:chain/config", updateChainConfig(aggregator))

	return router
}
