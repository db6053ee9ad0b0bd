package defs

// BSVNetwork selects the chain the derived addresses and the custody wallet belong to.
type BSVNetwork string

// Supported networks.
const (
	NetworkMainnet BSVNetwork = "main"
	NetworkTestnet BSVNetwork = "test"
)

// ParseNetworkStr parses a string into a BSVNetwork (case-insensitive).
func ParseNetworkStr(network string) (BSVNetwork, error) {
	return parseEnumCaseInsensitive(network, NetworkMainnet, NetworkTestnet)
}

// IsMainnet reports whether addresses should be encoded for mainnet.
func (n BSVNetwork) IsMainnet() bool {
	return n != NetworkTestnet
}
