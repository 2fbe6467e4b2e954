// Package app contains application services and port definitions for the wallet context.
package app

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// Provider is the wallet provider the coordinator talks to: EIP-1193 style
// requests plus the accountsChanged / chainChanged event emitters.
type Provider interface {
	domain.Requester

	// OnAccountsChanged registers a listener and returns its removal func.
	OnAccountsChanged(fn func(accounts []common.Address)) (remove func())

	// OnChainChanged registers a listener for the hex chain id payload.
	OnChainChanged(fn func(chainID string)) (remove func())
}

// SessionStore persists the "previously connected" hint between runs.
// It never holds addresses or balances.
type SessionStore interface {
	WasConnected() (bool, error)
	SetConnected(connected bool) error
}
