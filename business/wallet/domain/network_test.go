package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, 4, r.Len())

	bsc, ok := r.Lookup(ChainBSC)
	require.True(t, ok)
	assert.Equal(t, "BSC Mainnet", bsc.Name)
	assert.Equal(t, "BNB", bsc.NativeCurrency.Symbol)

	_, ok = r.Lookup(999999)
	assert.False(t, ok)

	all := r.All()
	ids := make([]uint64, len(all))
	for i, n := range all {
		ids[i] = n.ChainID
	}
	assert.Equal(t, []uint64{1, 56, 97, 11155111}, ids)
}

func TestNewNetworkRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewNetworkRegistry(
		NetworkDescriptor{ChainID: 1, Name: "a"},
		NetworkDescriptor{ChainID: 1, Name: "b"},
	)
	require.Error(t, err)

	_, err = NewNetworkRegistry(NetworkDescriptor{Name: "no id"})
	require.Error(t, err)
}

func TestNetworkDescriptor_AddChainParams(t *testing.T) {
	n, _ := DefaultRegistry().Lookup(ChainBSCTestnet)

	raw, err := json.Marshal(n.AddChainParams())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"chainId": "0x61",
		"chainName": "BSC Testnet",
		"rpcUrls": ["https://data-seed-prebsc-1-s1.binance.org:8545"],
		"blockExplorerUrls": ["https://testnet.bscscan.com"],
		"nativeCurrency": {"name": "BNB", "symbol": "tBNB", "decimals": 18}
	}`, string(raw))
}

func TestChainIDHex(t *testing.T) {
	assert.Equal(t, "0xaa36a7", FormatChainID(ChainSepolia))

	tests := map[string]uint64{
		"0x38":     56,
		"0X1":      1,
		"97":       97,
		" 0xaa36a7": 11155111,
	}
	for in, want := range tests {
		got, err := ParseChainID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseChainID("0xzz")
	assert.Error(t, err)
}
