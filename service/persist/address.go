package persist

import "strings"

// Address is an on-chain account or contract address. EVM addresses are
// normalized to lower case so they can be used as map keys; other chains'
// addresses are case sensitive and kept as-is.
type Address string

func (a Address) String() string {
	return string(a)
}

// Normalized returns the address in its canonical comparison form for the
// given chain
func (a Address) Normalized(chain Chain) Address {
	if chain.IsEVM() {
		return Address(strings.ToLower(string(a)))
	}
	return a
}
