package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/omniwallet/nft-engine/service/logger"
	"github.com/omniwallet/nft-engine/service/multichain"
)

// Init initializes the server
func Init() {
	setDefaults()

	logger.SetLoggerOptions(func(l *logrus.Logger) {
		l.SetFormatter(&logrus.JSONFormatter{})
	})

	router := CoreInit(context.Background())

	http.Handle("/", router)
}

// CoreInit initializes core server functionality. This is abstracted
// so the test server can also utilize it
func CoreInit(ctx context.Context) *gin.Engine {
	logger.For(ctx).Info("initializing server...")

	if viper.GetString("ENV") != "production" {
		gin.SetMode(gin.DebugMode)
		logrus.SetLevel(logrus.DebugLevel)
	}

	router := gin.Default()
	router.Use(handleCORS(), ginContextToContext(), errLogger())

	aggregator := multichain.NewAggregatorFromEnv(ctx)

	return handlersInit(router, aggregator)
}

// Run starts the server on the configured port
func Run() {
	Init()
	port := viper.GetInt("PORT")
	logger.For(nil).Infof("listening on :%d", port)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), nil); err != nil {
		logger.For(nil).WithError(err).Fatal("server stopped")
	}
}

func setDefaults() {
	viper.SetDefault("ENV", "local")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("CHAIN_PROVIDER_MODE", "live")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_PASS", "")
	viper.SetDefault("IPFS_GATEWAY_URL", "https://ipfs.io")
	viper.SetDefault("IPFS_API_URL", "")
	viper.SetDefault("OPENSEA_API_URL", "https://api.opensea.io/api/v1")
	viper.SetDefault("OPENSEA_API_KEY", "")
	viper.SetDefault("SIMPLEHASH_API_KEY", "")
	viper.SetDefault("ALCHEMY_API_URL_ETHEREUM", "")
	viper.SetDefault("ALCHEMY_API_URL_OPTIMISM", "")
	viper.SetDefault("ALCHEMY_API_URL_POLYGON", "")
	viper.SetDefault("ALCHEMY_API_URL_ARBITRUM", "")
	viper.SetDefault("ALCHEMY_API_URL_BASE", "")
	viper.SetDefault("ALCHEMY_API_URL_ZORA", "")
	viper.SetDefault("USE_INTERNAL_RPC", false)
	viper.SetDefault("INTERNAL_RPC_URL_ETHEREUM", "")
	viper.SetDefault("INTERNAL_RPC_URL_OPTIMISM", "")
	viper.SetDefault("INTERNAL_RPC_URL_POLYGON", "")
	viper.SetDefault("INTERNAL_RPC_URL_ARBITRUM", "")
	viper.SetDefault("INTERNAL_RPC_URL_BASE", "")
	viper.SetDefault("INTERNAL_RPC_URL_ZORA", "")
	viper.SetDefault("RPC_URL_ETHEREUM", "")
	viper.SetDefault("RPC_URL_OPTIMISM", "")
	viper.SetDefault("RPC_URL_POLYGON", "")
	viper.SetDefault("RPC_URL_ARBITRUM", "")
	viper.SetDefault("RPC_URL_BASE", "")
	viper.SetDefault("RPC_URL_ZORA", "")
	viper.SetDefault("SCAN_CONTRACTS_ETHEREUM", "")
	viper.SetDefault("SCAN_CONTRACTS_OPTIMISM", "")
	viper.SetDefault("SCAN_CONTRACTS_POLYGON", "")
	viper.SetDefault("SCAN_CONTRACTS_ARBITRUM", "")
	viper.SetDefault("SCAN_CONTRACTS_BASE", "")
	viper.SetDefault("SCAN_CONTRACTS_ZORA", "")

	viper.AutomaticEnv()
}
