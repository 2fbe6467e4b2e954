// Package domain contains the core domain types for the wallet context.
package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// NativeCurrency describes a chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name" mapstructure:"name"`
	Symbol   string `json:"symbol" mapstructure:"symbol"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals"`
}

// NetworkDescriptor is the static metadata for a supported chain.
type NetworkDescriptor struct {
	ChainID          uint64         `mapstructure:"chain_id"`
	Name             string         `mapstructure:"name"`
	RPCURL           string         `mapstructure:"rpc_url"`
	BlockExplorerURL string         `mapstructure:"block_explorer_url"`
	NativeCurrency   NativeCurrency `mapstructure:"native_currency"`
}

// HexChainID renders the chain id the way wallet RPC methods expect it.
func (n NetworkDescriptor) HexChainID() string {
	return FormatChainID(n.ChainID)
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
}

// AddChainParams builds the wallet_addEthereumChain payload for this network.
func (n NetworkDescriptor) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:           n.HexChainID(),
		ChainName:         n.Name,
		RPCURLs:           []string{n.RPCURL},
		BlockExplorerURLs: []string{n.BlockExplorerURL},
		NativeCurrency:    n.NativeCurrency,
	}
}

// SwitchChainParams is the wallet_switchEthereumChain parameter object.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// FormatChainID renders a chain id as 0x-prefixed lower-case hex.
func FormatChainID(chainID uint64) string {
	return "0x" + strconv.FormatUint(chainID, 16)
}

// ParseChainID parses a chainChanged payload. Both hex and decimal forms are accepted.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// NetworkRegistry is an immutable chain-id keyed set of networks.
type NetworkRegistry struct {
	byID    map[uint64]NetworkDescriptor
	ordered []NetworkDescriptor
}

// NewNetworkRegistry builds a registry. Duplicate chain ids are rejected.
func NewNetworkRegistry(networks ...NetworkDescriptor) (*NetworkRegistry, error) {
	r := &NetworkRegistry{
		byID: make(map[uint64]NetworkDescriptor, len(networks)),
	}

	for _, n := range networks {
		if n.ChainID == 0 {
			return nil, fmt.Errorf("network %q: chain id is required", n.Name)
		}
		if _, exists := r.byID[n.ChainID]; exists {
			return nil, fmt.Errorf("network %d registered twice", n.ChainID)
		}
		r.byID[n.ChainID] = n
		r.ordered = append(r.ordered, n)
	}

	sort.Slice(r.ordered, func(i, j int) bool {
		return r.ordered[i].ChainID < r.ordered[j].ChainID
	})

	return r, nil
}

// DefaultRegistry returns the registry of DefaultNetworks.
func DefaultRegistry() *NetworkRegistry {
	r, err := NewNetworkRegistry(DefaultNetworks()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the descriptor for a chain id.
func (r *NetworkRegistry) Lookup(chainID uint64) (NetworkDescriptor, bool) {
	n, ok := r.byID[chainID]
	return n, ok
}

// All returns every network ordered by chain id.
func (r *NetworkRegistry) All() []NetworkDescriptor {
	out := make([]NetworkDescriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of networks.
func (r *NetworkRegistry) Len() int {
	return len(r.ordered)
}

// Well-known chain ids.
const (
	ChainEthereum   uint64 = 1
	ChainBSC        uint64 = 56
	ChainBSCTestnet uint64 = 97
	ChainSepolia    uint64 = 11155111
)

// DefaultNetworks returns the networks the launchpad supports out of the box.
func DefaultNetworks() []NetworkDescriptor {
	eth := NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18}

	return []NetworkDescriptor{
		{
			ChainID:          ChainEthereum,
			Name:             "Ethereum Mainnet",
			RPCURL:           "https://mainnet.infura.io/v3/YOUR_INFURA_KEY",
			BlockExplorerURL: "https://etherscan.io",
			NativeCurrency:   eth,
		},
		{
			ChainID:          ChainBSC,
			Name:             "BSC Mainnet",
			RPCURL:           "https://bsc-dataseed1.binance.org",
			BlockExplorerURL: "https://bscscan.com",
			NativeCurrency:   NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		},
		{
			ChainID:          ChainBSCTestnet,
			Name:             "BSC Testnet",
			RPCURL:           "https://data-seed-prebsc-1-s1.binance.org:8545",
			BlockExplorerURL: "https://testnet.bscscan.com",
			NativeCurrency:   NativeCurrency{Name: "BNB", Symbol: "tBNB", Decimals: 18},
		},
		{
			ChainID:          ChainSepolia,
			Name:             "Sepolia Testnet",
			RPCURL:           "https://sepolia.infura.io/v3/YOUR_INFURA_KEY",
			BlockExplorerURL: "https://sepolia.etherscan.io",
			NativeCurrency:   eth,
		},
	}
}
