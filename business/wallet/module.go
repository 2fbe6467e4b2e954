// Package wallet implements the wallet connection bounded context.
package wallet

import (
	"context"

	"github.com/fd1az/launchpad-wallet/business/wallet/app"
	walletDI "github.com/fd1az/launchpad-wallet/business/wallet/di"
	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/business/wallet/infra/jsonrpc"
	"github.com/fd1az/launchpad-wallet/business/wallet/infra/session"
	"github.com/fd1az/launchpad-wallet/internal/config"
	"github.com/fd1az/launchpad-wallet/internal/di"
	"github.com/fd1az/launchpad-wallet/internal/logger"
	"github.com/fd1az/launchpad-wallet/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Registry (public)
	di.RegisterToken(c, walletDI.Registry, func(sr di.ServiceRegistry) *domain.NetworkRegistry {
		cfg := sr.Get("config").(*config.Config)

		registry, err := cfg.Wallet.Registry()
		if err != nil {
			panic("failed to build network registry: " + err.Error())
		}
		return registry
	})

	// Register SessionStore (private)
	di.RegisterToken(c, walletDI.SessionStore, func(sr di.ServiceRegistry) app.SessionStore {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Wallet.SessionPath == "" {
			return session.NewMemoryStore()
		}

		store, err := session.OpenBoltStore(cfg.Wallet.SessionPath)
		if err != nil {
			log.Warn(context.Background(), "session store unavailable, using memory", "path", cfg.Wallet.SessionPath, "error", err)
			return session.NewMemoryStore()
		}
		return store
	})

	// Register Provider (private). Resolves to nil when no endpoint is configured.
	di.RegisterToken(c, walletDI.Provider, func(sr di.ServiceRegistry) app.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Wallet.ProviderURL == "" {
			return nil
		}

		rpcCfg := jsonrpc.DefaultConfig(cfg.Wallet.ProviderURL)
		rpcCfg.PollInterval = cfg.Wallet.PollInterval
		rpcCfg.RequestsPerMinute = cfg.Wallet.RequestsPerMinute
		rpcCfg.RequestTimeout = cfg.Wallet.ConnectTimeout

		provider, err := jsonrpc.Dial(context.Background(), rpcCfg, log)
		if err != nil {
			log.Error(context.Background(), "wallet provider unavailable", "url", cfg.Wallet.ProviderURL, "error", err)
			return nil
		}
		return provider
	})

	// Register Store (private)
	di.RegisterToken(c, walletDI.Store, func(sr di.ServiceRegistry) *app.Store {
		return app.NewStore()
	})

	// Register Coordinator (public)
	di.RegisterToken(c, walletDI.Coordinator, func(sr di.ServiceRegistry) *app.Coordinator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		coordCfg := app.CoordinatorConfig{
			ConnectTimeout: cfg.Wallet.ConnectTimeout,
			EventDebounce:  cfg.Wallet.EventDebounce,
		}

		coord, err := app.NewCoordinator(
			walletDI.GetProvider(sr),
			walletDI.GetSessionStore(sr),
			walletDI.GetRegistry(sr),
			walletDI.GetStore(sr),
			coordCfg,
			log,
		)
		if err != nil {
			panic("failed to create coordinator: " + err.Error())
		}
		return coord
	})

	return nil
}

// Startup attaches the coordinator to the provider and restores the previous
// session in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	services := mono.Services()

	coord := walletDI.GetCoordinator(services)
	provider := walletDI.GetProvider(services)
	sessionStore := walletDI.GetSessionStore(services)

	// Closers run in reverse: coordinator, then provider, then session store.
	if closer, ok := sessionStore.(interface{ Close() error }); ok {
		mono.AddCloser("wallet.session", closer.Close)
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		mono.AddCloser("wallet.provider", closer.Close)
	}

	if err := coord.Start(ctx); err != nil {
		return err
	}
	mono.AddCloser("wallet.coordinator", coord.Close)

	if watcher, ok := provider.(interface{ Start(context.Context) }); ok {
		watcher.Start(ctx)
	}

	go func() {
		if _, err := coord.Restore(ctx); err != nil {
			log.Warn(ctx, "previous session not restored", "error", err)
		}
	}()

	log.Info(ctx, "wallet module started",
		"provider", provider != nil,
		"networks", coord.Registry().Len(),
	)
	return nil
}
