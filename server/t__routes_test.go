package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/omniwallet/nft-engine/service/multichain"
)

func setupTest(t *testing.T) (*assert.Assertions, *gin.Engine) {
	setDefaults()
	viper.Set("CHAIN_PROVIDER_MODE", "demo")
	gin.SetMode(gin.TestMode)

	return assert.New(t), CoreInit(context.Background())
}

func TestHealthRoute(t *testing.T) {
	assert, router := setupTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(http.StatusOK, w.Code)
}

func TestGetChainsRoute(t *testing.T) {
	assert, router := setupTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil))

	assert.Equal(http.StatusOK, w.Code)

	resp := chainListResponse{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(resp.Chains, 8)
	assert.Len(resp.Enabled, 5)
}

func TestGetAllNFTsRoute(t *testing.T) {
	assert, router := setupTest(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nfts/owner/0xowner", nil))

	assert.Equal(http.StatusOK, w.Code)

	result := multichain.AggregatedNFTs{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &result))
	// demo mode always has data for every enabled chain
	assert.Len(result.Chains, 5)
	assert.Greater(result.TotalCount, 0)
}

func TestToggleChainRoute(t *testing.T) {
	assert, router := setupTest(t)

	body, _ := json.Marshal(gin.H{"enabled": true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/solana/toggle", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(http.StatusOK, w.Code)
}

func TestToggleUnknownChainRoute(t *testing.T) {
	assert, router := setupTest(t)

	body, _ := json.Marshal(gin.H{"enabled": true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/999/toggle", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestSearchRoute(t *testing.T) {
	assert, router := setupTest(t)

	body, _ := json.Marshal(multichain.SearchQuery{Query: "cosmic", Limit: 5})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/nfts/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(http.StatusOK, w.Code)

	result := multichain.SearchResult{}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(len(result.Listings), min(result.TotalCount, 5))
}
