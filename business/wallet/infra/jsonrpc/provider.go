// Package jsonrpc implements the wallet provider port over a JSON-RPC
// wallet endpoint.
package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/launchpad-wallet/internal/apperror"
	"github.com/fd1az/launchpad-wallet/internal/circuitbreaker"
	"github.com/fd1az/launchpad-wallet/internal/httpclient"
	"github.com/fd1az/launchpad-wallet/internal/logger"
	"github.com/fd1az/launchpad-wallet/internal/ratelimit"
)

const tracerName = "github.com/fd1az/launchpad-wallet/business/wallet/infra/jsonrpc"

// Config holds configuration for the JSON-RPC provider.
type Config struct {
	URL               string
	PollInterval      time.Duration // event watcher period
	RequestsPerMinute int           // 0 disables rate limiting
	RequestTimeout    time.Duration // HTTP client timeout
	BreakerFailures   uint32        // consecutive failures that open the breaker
	BreakerTimeout    time.Duration // open-state duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		PollInterval:      2 * time.Second,
		RequestsPerMinute: 600,
		RequestTimeout:    2 * time.Minute, // interactive prompts wait on the user
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
	}
}

// readOnly lists the non-interactive methods guarded by the circuit breaker.
// Interactive methods wait on the user and must never be short-circuited.
var readOnly = map[string]bool{
	"eth_accounts":    true,
	"eth_chainId":     true,
	"eth_getBalance":  true,
	"eth_blockNumber": true,
}

// Provider talks to a wallet over JSON-RPC and polls it for account and
// chain changes, which it reports like EIP-1193 events.
type Provider struct {
	config  Config
	logger  logger.LoggerInterface
	client  *rpc.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[json.RawMessage]
	tracer  trace.Tracer

	listenersMu       sync.Mutex
	nextListenerID    int
	accountsListeners map[int]func([]common.Address)
	chainListeners    map[int]func(string)

	// watcher state, owned by the poll goroutine
	lastAccounts []common.Address
	lastChain    string
	seenAccounts bool
	seenChain    bool

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// Dial creates a provider for the endpoint. HTTP endpoints use an
// instrumented client; ws and ipc endpoints are dialed directly.
func Dial(ctx context.Context, cfg Config, log logger.LoggerInterface) (*Provider, error) {
	httpClient, err := httpclient.New(
		httpclient.WithProviderName("wallet-provider"),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	client, err := rpc.DialOptions(ctx, cfg.URL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, apperror.New(apperror.CodeProviderError,
			apperror.WithMessage("Wallet provider unreachable: "+err.Error()),
			apperror.WithContext("dial "+cfg.URL),
			apperror.WithCause(err))
	}

	return NewProvider(client, cfg, log), nil
}

// NewProvider wraps an existing rpc client.
func NewProvider(client *rpc.Client, cfg Config, log logger.LoggerInterface) *Provider {
	defaults := DefaultConfig(cfg.URL)
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaults.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = defaults.BreakerTimeout
	}

	limiter := ratelimit.Unlimited()
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimit.New(cfg.RequestsPerMinute)
	}

	p := &Provider{
		config:            cfg,
		logger:            log,
		client:            client,
		limiter:           limiter,
		tracer:            otel.Tracer(tracerName),
		accountsListeners: make(map[int]func([]common.Address)),
		chainListeners:    make(map[int]func(string)),
		done:              make(chan struct{}),
	}
	p.initCircuitBreaker()

	return p
}

// initCircuitBreaker guards read-only queries. JSON-RPC error responses
// prove the endpoint is up, so only transport failures count against it.
func (p *Provider) initCircuitBreaker() {
	cbCfg := circuitbreaker.DefaultConfig("wallet-provider")
	cbCfg.FailureThreshold = p.config.BreakerFailures
	cbCfg.Timeout = p.config.BreakerTimeout
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		p.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	cbCfg.IsSuccessful = func(err error) bool {
		if err == nil || errors.Is(err, context.Canceled) {
			return true
		}
		var rpcErr rpc.Error
		return errors.As(err, &rpcErr)
	}
	p.breaker = circuitbreaker.New[json.RawMessage](cbCfg)
}

// Request sends one JSON-RPC call. Provider error codes are preserved on the
// returned error.
func (p *Provider) Request(ctx context.Context, result any, method string, params ...any) error {
	ctx, span := p.tracer.Start(ctx, "wallet.provider.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", method)),
	)
	defer span.End()

	err := p.request(ctx, result, method, params...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (p *Provider) request(ctx context.Context, result any, method string, params ...any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	if !readOnly[method] {
		return p.client.CallContext(ctx, result, method, params...)
	}

	raw, err := p.breaker.Execute(func() (json.RawMessage, error) {
		var raw json.RawMessage
		err := p.client.CallContext(ctx, &raw, method, params...)
		return raw, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperror.New(apperror.CodeCircuitOpen,
			apperror.WithContext(method),
			apperror.WithCause(err))
	}
	if err != nil {
		return err
	}

	if result == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, result)
}

// Ping checks the endpoint answers eth_chainId.
func (p *Provider) Ping(ctx context.Context) error {
	var chainID string
	return p.Request(ctx, &chainID, "eth_chainId")
}

// BreakerState reports the read-path circuit breaker state.
func (p *Provider) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// OnAccountsChanged registers an accountsChanged listener.
func (p *Provider) OnAccountsChanged(fn func([]common.Address)) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	id := p.nextListenerID
	p.nextListenerID++
	p.accountsListeners[id] = fn

	return func() {
		p.listenersMu.Lock()
		delete(p.accountsListeners, id)
		p.listenersMu.Unlock()
	}
}

// OnChainChanged registers a chainChanged listener.
func (p *Provider) OnChainChanged(fn func(string)) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	id := p.nextListenerID
	p.nextListenerID++
	p.chainListeners[id] = fn

	return func() {
		p.listenersMu.Lock()
		delete(p.chainListeners, id)
		p.listenersMu.Unlock()
	}
}

// Start launches the event watcher.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.watch(ctx)
	})
}

// Close stops the watcher and closes the rpc client.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
		p.client.Close()
	})
	return nil
}

func (p *Provider) watch(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll compares the wallet's accounts and chain with the last seen values
// and emits events for whatever changed. The first successful read of each
// value only records it.
func (p *Provider) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, max(p.config.PollInterval, 5*time.Second))
	defer cancel()

	var accounts []common.Address
	accountsErr := p.request(ctx, &accounts, "eth_accounts")
	if accountsErr != nil {
		p.logger.Debug(ctx, "account poll failed", "error", accountsErr)
	}

	var chainID string
	chainErr := p.request(ctx, &chainID, "eth_chainId")
	if chainErr != nil {
		p.logger.Debug(ctx, "chain poll failed", "error", chainErr)
	}

	if accountsErr == nil {
		changed := p.seenAccounts && !slices.Equal(accounts, p.lastAccounts)
		p.lastAccounts = accounts
		p.seenAccounts = true
		if changed {
			p.logger.Debug(ctx, "accountsChanged", "accounts", len(accounts))
			p.emitAccounts(accounts)
		}
	}

	if chainErr == nil {
		changed := p.seenChain && chainID != p.lastChain
		p.lastChain = chainID
		p.seenChain = true
		if changed {
			p.logger.Debug(ctx, "chainChanged", "chain_id", chainID)
			p.emitChain(chainID)
		}
	}
}

func (p *Provider) emitAccounts(accounts []common.Address) {
	p.listenersMu.Lock()
	listeners := make([]func([]common.Address), 0, len(p.accountsListeners))
	for _, fn := range p.accountsListeners {
		listeners = append(listeners, fn)
	}
	p.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(accounts))
	}
}

func (p *Provider) emitChain(chainID string) {
	p.listenersMu.Lock()
	listeners := make([]func(string), 0, len(p.chainListeners))
	for _, fn := range p.chainListeners {
		listeners = append(listeners, fn)
	}
	p.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(chainID)
	}
}
