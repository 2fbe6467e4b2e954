// Package main is the entry point for the launchpad wallet daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/launchpad-wallet/business/wallet"
	"github.com/fd1az/launchpad-wallet/business/wallet/app"
	walletDI "github.com/fd1az/launchpad-wallet/business/wallet/di"
	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/internal/apm"
	"github.com/fd1az/launchpad-wallet/internal/config"
	"github.com/fd1az/launchpad-wallet/internal/health"
	"github.com/fd1az/launchpad-wallet/internal/logger"
	"github.com/fd1az/launchpad-wallet/internal/metrics"
	"github.com/fd1az/launchpad-wallet/internal/monolith"
	"github.com/fd1az/launchpad-wallet/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	connect := flag.Bool("connect", false, "Connect the wallet at startup (CLI mode)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("walletd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode, *connect); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode, connect bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = tuiMode

	// In TUI mode logs would corrupt the screen.
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting launchpad wallet",
		"version", version,
		"environment", cfg.App.Environment,
	)

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown", "error", err)
		}
	}()

	modules := []monolith.Module{
		&wallet.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	if cfg.Health.Enabled {
		healthServer := startHealth(ctx, cfg, mono, log)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			healthServer.Stop(stopCtx)
		}()
	}

	coord := walletDI.GetCoordinator(mono.Services())
	if !coord.HasProvider() {
		log.Warn(ctx, "no wallet provider configured", "hint", "set WALLET_PROVIDER_URL")
	}

	if tuiMode {
		return runTUI(ctx, coord)
	}
	return runCLI(ctx, coord, connect, log)
}

// setupTelemetry installs tracing and metrics. The returned func flushes
// and stops both.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	tel := cfg.Telemetry

	traceProvider, err := apm.NewTraceProvider(ctx, apm.Options{
		Enabled:     tel.Enabled,
		ServiceName: tel.ServiceName,
		Exporter:    apm.Exporter(tel.TraceExporter),
		Endpoint:    tel.OTLPEndpoint,
		Headers:     tel.OTLPHeaders,
		Protocol:    tel.OTLPProtocol,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	if !tel.Enabled {
		return func() { traceProvider.Stop() }, nil
	}

	opts := []metrics.OptionFn{
		metrics.WithServiceName(tel.ServiceName),
		metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
	}
	if tel.TraceExporter == string(apm.OTLPExporter) && tel.OTLPProtocol == "grpc" {
		headers, err := apm.ParseHeaders(tel.OTLPHeaders)
		if err != nil {
			return nil, fmt.Errorf("failed to parse otlp headers: %w", err)
		}
		insecure := strings.HasPrefix(tel.OTLPEndpoint, "http://")
		opts = append(opts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(tel.OTLPEndpoint, headers, insecure)))
	}

	meterProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer, err := metrics.ServePrometheusMetrics(log, metrics.WithPort(tel.PrometheusPort))
	if err != nil {
		log.Warn(ctx, "prometheus endpoint unavailable", "port", tel.PrometheusPort, "error", err)
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if promServer != nil {
			promServer.Stop(stopCtx)
		}
		if err := meterProvider.Shutdown(stopCtx); err != nil {
			log.Warn(stopCtx, "metrics shutdown", "error", err)
		}
		if err := traceProvider.Stop(); err != nil {
			log.Warn(stopCtx, "tracing shutdown", "error", err)
		}
	}, nil
}

func startHealth(ctx context.Context, cfg *config.Config, mono monolith.Monolith, log logger.LoggerInterface) *health.Server {
	services := mono.Services()
	coord := walletDI.GetCoordinator(services)

	var pinger health.Pinger
	if p, ok := walletDI.GetProvider(services).(health.Pinger); ok {
		pinger = p
	}

	server := health.NewServer(cfg.Health.Port, version, log)
	server.RegisterCheck("wallet_provider", health.PingCheck(pinger, "no provider configured"))
	server.RegisterCheck("wallet_state", health.StateCheck(func() string {
		return string(coord.State())
	}))
	server.RegisterCheck("wallet_session", health.StoreCheck(
		walletDI.GetSessionStore(services).WasConnected, "was_connected"))

	if err := server.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	return server
}

func runCLI(ctx context.Context, coord *app.Coordinator, connect bool, log logger.LoggerInterface) error {
	binding := app.NewBinding(coord, func(snap domain.ConnectionSnapshot) {
		log.Info(ctx, "wallet snapshot",
			"version", snap.Version,
			"connected", snap.Connected,
			"address", snap.AddressHex(),
			"chain_id", snap.ChainID,
			"balance", snap.BalanceDisplay,
		)
	})
	binding.Mount()
	defer binding.Unmount()

	if connect {
		if _, err := binding.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error(ctx, "connect failed", "error", err)
		}
	}

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, coord *app.Coordinator) error {
	// Send blocks until the program runs; the model drops stale versions,
	// so deliveries may arrive out of order.
	binding := app.NewBinding(coord, func(snap domain.ConnectionSnapshot) {
		go ui.Send(ui.SnapshotMsg{Snapshot: snap})
	})

	p := tea.NewProgram(ui.New(ctx, binding), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	binding.Mount()
	defer binding.Unmount()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
