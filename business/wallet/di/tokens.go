// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/fd1az/launchpad-wallet/business/wallet/app"
	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Coordinator = di.NewToken[*app.Coordinator]("wallet.Coordinator")
	Registry    = di.NewToken[*domain.NetworkRegistry]("wallet.Registry")
)

// Private dependency tokens - internal to wallet module
var (
	Store        = di.NewToken[*app.Store]("wallet:store")
	Provider     = di.NewToken[app.Provider]("wallet:provider")
	SessionStore = di.NewToken[app.SessionStore]("wallet:sessionStore")
)

// Helper functions for type-safe access
func GetCoordinator(c di.ServiceRegistry) *app.Coordinator {
	return di.GetToken(c, Coordinator)
}

func GetRegistry(c di.ServiceRegistry) *domain.NetworkRegistry {
	return di.GetToken(c, Registry)
}

func GetStore(c di.ServiceRegistry) *app.Store {
	return di.GetToken(c, Store)
}

// GetProvider returns nil when no wallet provider is configured.
func GetProvider(c di.ServiceRegistry) app.Provider {
	p, _ := c.Get(Provider.Name()).(app.Provider)
	return p
}

func GetSessionStore(c di.ServiceRegistry) app.SessionStore {
	return di.GetToken(c, SessionStore)
}
