package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenURIType(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(URITypeBase64JSON, TokenURI("data:application/json;base64,eyJ9").Type())
	assert.Equal(URITypeIPFS, TokenURI("ipfs://QmXyz/metadata.json").Type())
	assert.Equal(URITypeIPFS, TokenURI("QmXyzabcdef").Type())
	assert.Equal(URITypeHTTP, TokenURI("https://example.com/1.json").Type())
	assert.Equal(URITypeJSON, TokenURI(`{"name":"inline"}`).Type())
	assert.Equal(URITypeNone, TokenURI("").Type())
	assert.Equal(URITypeUnknown, TokenURI("ar://tx-id").Type())
}

func TestTokenIDBigInt(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("1234", TokenID("1234").BigInt().Text(10))
	assert.Equal("255", TokenID("0xff").BigInt().Text(10))
	assert.Equal("0", TokenID("not-a-number").BigInt().Text(10))
}

func TestAddressNormalized(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(Address("0xabcdef"), Address("0xABCdef").Normalized(ChainETH))
	// non-EVM addresses are case sensitive and must not be lowered
	assert.Equal(Address("KT1AbC"), Address("KT1AbC").Normalized(ChainTezos))
	assert.Equal(Address("SoLAddr"), Address("SoLAddr").Normalized(ChainSolana))
}

func TestChainIsEVM(t *testing.T) {
	assert := assert.New(t)

	for _, chain := range []Chain{ChainETH, ChainOptimism, ChainPolygon, ChainArbitrum, ChainBase, ChainZora} {
		assert.True(chain.IsEVM(), chain.String())
	}
	assert.False(ChainSolana.IsEVM())
	assert.False(ChainTezos.IsEVM())
}

func TestAttributeValueString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("blue", Attribute{Value: "blue"}.ValueString())
	assert.Equal("3", Attribute{Value: float64(3)}.ValueString())
	assert.Equal("3.5", Attribute{Value: 3.5}.ValueString())
	assert.Equal("", Attribute{}.ValueString())
}
