package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState is the coordinator state machine position.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// ConnectionSnapshot is the complete wallet state at a point in time.
// Connected is true iff Address, Provider and Signer are all set.
type ConnectionSnapshot struct {
	Connected      bool
	Address        *common.Address
	BalanceDisplay string // formatted to 4 decimals, empty when unknown
	ChainID        uint64 // 0 when unknown
	Provider       Requester
	Signer         *Signer

	// Version increases with every publish.
	Version uint64
}

// Disconnected returns the empty snapshot.
func Disconnected() ConnectionSnapshot {
	return ConnectionSnapshot{}
}

// NewConnectedSnapshot builds a fully populated snapshot.
func NewConnectedSnapshot(address common.Address, balance string, chainID uint64, provider Requester, signer *Signer) ConnectionSnapshot {
	addr := address
	return ConnectionSnapshot{
		Connected:      true,
		Address:        &addr,
		BalanceDisplay: balance,
		ChainID:        chainID,
		Provider:       provider,
		Signer:         signer,
	}
}

// Consistent reports whether the snapshot satisfies the connected invariant
// and, when disconnected, carries no leftover fields.
func (s ConnectionSnapshot) Consistent() bool {
	full := s.Address != nil && s.Provider != nil && s.Signer != nil
	if s.Connected {
		return full
	}
	return s.Address == nil && s.Provider == nil && s.Signer == nil &&
		s.BalanceDisplay == "" && s.ChainID == 0
}

// AddressHex returns the checksummed address or "".
func (s ConnectionSnapshot) AddressHex() string {
	if s.Address == nil {
		return ""
	}
	return s.Address.Hex()
}

// ShortAddress renders 0x1234...abcd, or "" when disconnected.
func (s ConnectionSnapshot) ShortAddress() string {
	hex := s.AddressHex()
	if len(hex) < 10 {
		return hex
	}
	return hex[:6] + "..." + hex[len(hex)-4:]
}

// WithChain returns a copy pointing at a different chain and balance.
func (s ConnectionSnapshot) WithChain(chainID uint64, balance string) ConnectionSnapshot {
	s.ChainID = chainID
	s.BalanceDisplay = balance
	return s
}
