package model

import "strings"

type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
)

func (c Chain) String() string {
	return string(c)
}

// Network is the protocol segment used in item URNs and in linked-item
// mappings ("mainnet", "matic", ...).
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkSepolia Network = "sepolia"
	NetworkMatic   Network = "matic"
	NetworkAmoy    Network = "amoy"
)

// KnownNetworks lists every network an RPC endpoint can be configured for.
var KnownNetworks = []Network{NetworkMainnet, NetworkSepolia, NetworkMatic, NetworkAmoy}

func (n Network) String() string {
	return string(n)
}

// Chain returns the chain the network belongs to.
func (n Network) Chain() Chain {
	switch n {
	case NetworkMatic, NetworkAmoy:
		return ChainPolygon
	default:
		return ChainEthereum
	}
}

// ParseNetwork accepts the URN protocol names plus the common chain aliases.
func ParseNetwork(raw string) (Network, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mainnet", "ethereum":
		return NetworkMainnet, true
	case "sepolia":
		return NetworkSepolia, true
	case "matic", "polygon":
		return NetworkMatic, true
	case "amoy":
		return NetworkAmoy, true
	}
	return "", false
}
