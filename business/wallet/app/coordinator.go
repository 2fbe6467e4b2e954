package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/internal/apperror"
	"github.com/fd1az/launchpad-wallet/internal/debounce"
	"github.com/fd1az/launchpad-wallet/internal/logger"
)

const (
	tracerName = "github.com/fd1az/launchpad-wallet/business/wallet/app"
	meterName  = "github.com/fd1az/launchpad-wallet/business/wallet/app"
)

// CoordinatorConfig holds timing settings for the coordinator.
type CoordinatorConfig struct {
	ConnectTimeout time.Duration // bound on one connection attempt
	EventDebounce  time.Duration // quiet window for provider events
}

// DefaultCoordinatorConfig returns sensible defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		ConnectTimeout: 2 * time.Minute, // long enough for a human to answer the prompt
		EventDebounce:  time.Second,
	}
}

type connectMode string

const (
	modeInteractive connectMode = "interactive"
	modeSilent      connectMode = "silent"
)

// attempt is one in-flight connection attempt shared by every waiting caller.
type attempt struct {
	id          string
	interactive atomic.Bool // a silent attempt is upgraded when an interactive caller joins
}

func (a *attempt) mode() connectMode {
	if a.interactive.Load() {
		return modeInteractive
	}
	return modeSilent
}

// coordinatorMetrics holds OTEL metric instruments.
type coordinatorMetrics struct {
	connectAttempts  metric.Int64Counter
	connectFailures  metric.Int64Counter
	connectionState  metric.Int64Gauge
	providerRequests metric.Int64Counter
	storePublishes   metric.Int64Counter
}

// Coordinator is the only writer of the Store. It runs at most one
// connection attempt at a time; callers arriving while one is in flight
// wait for its outcome instead of starting another.
type Coordinator struct {
	provider Provider
	session  SessionStore
	registry *domain.NetworkRegistry
	store    *Store
	config   CoordinatorConfig
	logger   logger.LoggerInterface

	mu       sync.Mutex
	state    domain.ConnectionState
	inflight *attempt
	pending  pendingQueue

	accountsDebounce *debounce.Debouncer
	chainDebounce    *debounce.Debouncer

	listenersMu sync.Mutex
	removers    []func()
	started     bool

	tracer  trace.Tracer
	metrics *coordinatorMetrics
}

// NewCoordinator creates the connection coordinator. A nil provider means no
// wallet was detected; Connect then fails with NO_PROVIDER.
func NewCoordinator(
	provider Provider,
	session SessionStore,
	registry *domain.NetworkRegistry,
	store *Store,
	cfg CoordinatorConfig,
	log logger.LoggerInterface,
) (*Coordinator, error) {
	defaults := DefaultCoordinatorConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.EventDebounce <= 0 {
		cfg.EventDebounce = defaults.EventDebounce
	}
	if session == nil {
		session = nopSession{}
	}
	if registry == nil {
		registry = domain.DefaultRegistry()
	}
	if store == nil {
		store = NewStore()
	}

	c := &Coordinator{
		provider:         provider,
		session:          session,
		registry:         registry,
		store:            store,
		config:           cfg,
		logger:           log,
		state:            domain.StateDisconnected,
		accountsDebounce: debounce.New(cfg.EventDebounce),
		chainDebounce:    debounce.New(cfg.EventDebounce),
		tracer:           otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

// initMetrics initializes OTEL metric instruments.
func (c *Coordinator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &coordinatorMetrics{}

	c.metrics.connectAttempts, err = meter.Int64Counter(
		"wallet_connect_attempts_total",
		metric.WithDescription("Connection attempts started"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	c.metrics.connectFailures, err = meter.Int64Counter(
		"wallet_connect_failures_total",
		metric.WithDescription("Connection attempts that failed, by error kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	c.metrics.connectionState, err = meter.Int64Gauge(
		"wallet_connection_state",
		metric.WithDescription("Wallet connection state (0=disconnected, 1=connecting, 2=connected)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	c.metrics.providerRequests, err = meter.Int64Counter(
		"wallet_provider_requests_total",
		metric.WithDescription("Requests sent to the wallet provider"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	c.metrics.storePublishes, err = meter.Int64Counter(
		"wallet_store_publishes_total",
		metric.WithDescription("Snapshots published to the connection store"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Store returns the store the coordinator writes to.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Registry returns the network registry.
func (c *Coordinator) Registry() *domain.NetworkRegistry {
	return c.registry
}

// HasProvider reports whether a wallet provider is available.
func (c *Coordinator) HasProvider() bool {
	return c.provider != nil
}

// State returns the current state machine position.
func (c *Coordinator) State() domain.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect establishes a connection, prompting the user only when no account
// is already authorized. When already connected it returns the current
// snapshot without calling the provider.
//
// If ctx ends first the caller gets ctx.Err(), but the attempt keeps running
// and its outcome is still published.
func (c *Coordinator) Connect(ctx context.Context) (domain.ConnectionSnapshot, error) {
	return c.connect(ctx, modeInteractive)
}

// Reconnect is the non-interactive variant used to restore a previous
// session. It never prompts; when no account is authorized it settles
// disconnected with a nil error and clears the session flag.
func (c *Coordinator) Reconnect(ctx context.Context) (domain.ConnectionSnapshot, error) {
	return c.connect(ctx, modeSilent)
}

// Restore runs Reconnect if the previous run left the session flag set.
func (c *Coordinator) Restore(ctx context.Context) (domain.ConnectionSnapshot, error) {
	was, err := c.session.WasConnected()
	if err != nil {
		c.logger.Warn(ctx, "session flag unreadable, skipping restore", "error", err)
		return c.store.Snapshot(), nil
	}
	if !was || c.provider == nil {
		return c.store.Snapshot(), nil
	}

	c.logger.Info(ctx, "restoring previous wallet session")
	return c.Reconnect(ctx)
}

func (c *Coordinator) connect(ctx context.Context, mode connectMode) (domain.ConnectionSnapshot, error) {
	if c.provider == nil {
		err := apperror.New(apperror.CodeNoProvider, apperror.WithContext("connect"))
		c.metrics.connectFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(err.Code))))
		c.logger.Warn(ctx, "connect requested without a wallet provider")
		return domain.Disconnected(), err
	}

	c.mu.Lock()
	if c.state == domain.StateConnected {
		snap := c.store.Snapshot()
		c.mu.Unlock()
		return snap, nil
	}

	w := c.pending.enqueue()
	if c.inflight == nil {
		a := &attempt{id: uuid.NewString()}
		a.interactive.Store(mode == modeInteractive)
		c.inflight = a
		c.state = domain.StateConnecting
		c.mu.Unlock()

		c.metrics.connectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(mode))))
		c.recordState(ctx, domain.StateConnecting)
		c.logger.Info(ctx, "connection attempt started", "attempt_id", a.id, "mode", mode)

		go c.run(context.WithoutCancel(ctx), a)
	} else {
		if mode == modeInteractive {
			c.inflight.interactive.Store(true)
		}
		id, waiting := c.inflight.id, c.pending.len()
		c.mu.Unlock()

		c.logger.Debug(ctx, "joined in-flight connection attempt", "attempt_id", id, "waiting", waiting)
	}

	select {
	case o := <-w.done:
		return o.snapshot, o.err
	case <-ctx.Done():
		return domain.Disconnected(), ctx.Err()
	}
}

func (c *Coordinator) run(ctx context.Context, a *attempt) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "wallet.connect",
		trace.WithAttributes(attribute.String("attempt_id", a.id)),
	)
	defer span.End()

	snap, err := c.establish(ctx, a)
	span.SetAttributes(attribute.String("mode", string(a.mode())))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("connected", snap.Connected))
	}

	c.settle(ctx, a, snap, err)
}

// establish performs the provider round trips of one attempt.
func (c *Coordinator) establish(ctx context.Context, a *attempt) (domain.ConnectionSnapshot, error) {
	accounts, err := c.accounts(ctx, methodAccounts)
	if err != nil {
		c.logger.Warn(ctx, "eth_accounts failed, falling back to prompt", "attempt_id", a.id, "error", err)
	}

	if len(accounts) == 0 {
		if !a.interactive.Load() {
			c.logger.Info(ctx, "no authorized accounts, session not restored", "attempt_id", a.id)
			return domain.Disconnected(), nil
		}

		accounts, err = c.accounts(ctx, methodRequestAccounts)
		if err != nil {
			return domain.Disconnected(), domain.NormalizeProviderError(err, "request accounts")
		}
	}

	if len(accounts) == 0 {
		return domain.Disconnected(), apperror.New(apperror.CodeProviderError,
			apperror.WithMessage("No accounts available. Unlock your wallet and try again."),
			apperror.WithContext("request accounts"))
	}

	address := accounts[0]

	chainID, err := c.chainID(ctx)
	if err != nil {
		return domain.Disconnected(), domain.NormalizeProviderError(err, "query chain id")
	}

	wei, err := c.balance(ctx, address)
	if err != nil {
		return domain.Disconnected(), domain.NormalizeProviderError(err, "query balance")
	}

	balance := domain.FormatBalanceOn(c.registry, chainID, wei)
	signer := domain.NewSigner(address, c.provider)

	return domain.NewConnectedSnapshot(address, balance, chainID, c.provider, signer), nil
}

// settle ends the attempt: it publishes the outcome, updates the session
// flag and resolves every waiting caller in arrival order.
func (c *Coordinator) settle(ctx context.Context, a *attempt, snap domain.ConnectionSnapshot, err error) {
	if err != nil || !snap.Connected {
		snap = domain.Disconnected()
	}

	c.mu.Lock()
	c.inflight = nil
	if snap.Connected {
		c.state = domain.StateConnected
	} else {
		c.state = domain.StateDisconnected
	}
	state := c.state
	waiters := c.pending.drain()
	snap = c.store.stage(snap)
	c.mu.Unlock()

	c.recordState(ctx, state)
	c.flush(ctx)
	c.persist(ctx, snap.Connected)

	if err != nil {
		c.logFailure(ctx, a, err)
	} else if snap.Connected {
		c.logger.Info(ctx, "wallet connected",
			"attempt_id", a.id,
			"address", snap.AddressHex(),
			"chain_id", snap.ChainID,
			"balance", snap.BalanceDisplay,
			"waiters", len(waiters),
		)
	}

	settleAll(waiters, outcome{snapshot: snap, err: err})
}

func (c *Coordinator) logFailure(ctx context.Context, a *attempt, err error) {
	kind := apperror.GetCode(err)
	c.metrics.connectFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))

	switch kind {
	case apperror.CodeUserRejected:
		c.logger.Info(ctx, "connection request declined by user", "attempt_id", a.id)
	case apperror.CodeRequestPending:
		c.logger.Warn(ctx, "wallet already has a pending request", "attempt_id", a.id, "error", err)
	default:
		c.logger.Error(ctx, "connection attempt failed", "attempt_id", a.id, "kind", kind, "error", err)
	}
}

// Disconnect publishes the empty snapshot and clears the session flag. It
// never calls the provider and cannot fail. An attempt already in flight is
// not cancelled; it settles normally.
func (c *Coordinator) Disconnect() {
	ctx := context.Background()

	c.mu.Lock()
	if c.inflight == nil {
		c.state = domain.StateDisconnected
	}
	state := c.state
	c.store.stage(domain.Disconnected())
	c.mu.Unlock()

	c.recordState(ctx, state)
	c.flush(ctx)
	c.persist(ctx, false)

	c.logger.Info(ctx, "wallet disconnected", "state", state)
}

// SwitchNetwork asks the wallet to change its active chain, adding the chain
// first when the wallet does not know it. Unknown ids are logged and ignored.
// The store is updated only by the resulting chainChanged event.
func (c *Coordinator) SwitchNetwork(ctx context.Context, chainID uint64) error {
	network, ok := c.registry.Lookup(chainID)
	if !ok {
		c.logger.Warn(ctx, "switch to unsupported network ignored", "chain_id", chainID)
		return nil
	}

	if c.provider == nil {
		return apperror.New(apperror.CodeNoProvider, apperror.WithContext("switch network"))
	}

	ctx, span := c.tracer.Start(ctx, "wallet.switch_network",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(chainID)),
			attribute.String("network", network.Name),
		),
	)
	defer span.End()

	err := c.request(ctx, nil, methodSwitchChain, domain.SwitchChainParams{ChainID: network.HexChainID()})
	if err == nil {
		c.logger.Info(ctx, "network switch requested", "chain_id", chainID, "network", network.Name)
		return nil
	}

	if !domain.IsUnrecognizedChain(err) {
		err = domain.NormalizeProviderError(err, "switch network")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn(ctx, "network switch failed", "chain_id", chainID, "error", err)
		return err
	}

	c.logger.Info(ctx, "wallet does not know network, adding it", "chain_id", chainID, "network", network.Name)
	span.AddEvent("add_chain")

	if err := c.request(ctx, nil, methodAddChain, network.AddChainParams()); err != nil {
		err = domain.NormalizeProviderError(err, "add network")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn(ctx, "adding network failed", "chain_id", chainID, "error", err)
		return err
	}

	return nil
}

// HandleAccountsChanged schedules handling of an accountsChanged event.
// Bursts inside the debounce window collapse into one pass with the latest list.
func (c *Coordinator) HandleAccountsChanged(accounts []common.Address) {
	accounts = slices.Clone(accounts)
	c.accountsDebounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		defer cancel()
		c.applyAccountsChanged(ctx, accounts)
	})
}

// HandleChainChanged schedules handling of a chainChanged event.
func (c *Coordinator) HandleChainChanged(chainID string) {
	c.chainDebounce.Trigger(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		defer cancel()
		c.applyChainChanged(ctx, chainID)
	})
}

func (c *Coordinator) applyAccountsChanged(ctx context.Context, accounts []common.Address) {
	if len(accounts) == 0 {
		c.mu.Lock()
		idle := c.state == domain.StateDisconnected && c.inflight == nil
		c.mu.Unlock()

		if idle {
			return
		}
		c.logger.Info(ctx, "wallet reported no accounts")
		c.Disconnect()
		return
	}

	current, ok := c.connectedSnapshot()
	if !ok {
		return
	}

	primary := accounts[0]
	if current.Address != nil && *current.Address == primary {
		return
	}

	balance := c.balanceDisplay(ctx, primary, current.ChainID)
	next := domain.NewConnectedSnapshot(primary, balance, current.ChainID, c.provider, domain.NewSigner(primary, c.provider))

	if c.commitIfCurrent(ctx, current.Version, next) {
		c.logger.Info(ctx, "active account changed", "from", current.AddressHex(), "to", primary.Hex())
	}
}

func (c *Coordinator) applyChainChanged(ctx context.Context, payload string) {
	current, ok := c.connectedSnapshot()
	if !ok {
		return
	}

	chainID, err := c.chainID(ctx)
	if err != nil {
		parsed, perr := domain.ParseChainID(payload)
		if perr != nil {
			c.logger.Warn(ctx, "chain change ignored, chain id unavailable", "payload", payload, "error", err)
			return
		}
		chainID = parsed
	}

	balance := c.balanceDisplay(ctx, *current.Address, chainID)
	next := current.WithChain(chainID, balance)

	if c.commitIfCurrent(ctx, current.Version, next) {
		c.logger.Info(ctx, "active network changed", "from", current.ChainID, "to", chainID)
	}
}

// connectedSnapshot returns the store snapshot if the coordinator is connected.
func (c *Coordinator) connectedSnapshot() (domain.ConnectionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateConnected {
		return domain.ConnectionSnapshot{}, false
	}
	snap := c.store.Snapshot()
	return snap, snap.Connected && snap.Address != nil
}

// commitIfCurrent publishes next unless the store moved past version while
// the provider was being queried.
func (c *Coordinator) commitIfCurrent(ctx context.Context, version uint64, next domain.ConnectionSnapshot) bool {
	c.mu.Lock()
	if c.state != domain.StateConnected || c.store.Snapshot().Version != version {
		c.mu.Unlock()
		c.logger.Debug(ctx, "event result superseded, dropped", "version", version)
		return false
	}
	c.store.stage(next)
	c.mu.Unlock()

	c.flush(ctx)
	return true
}

func (c *Coordinator) flush(ctx context.Context) {
	c.metrics.storePublishes.Add(ctx, 1)
	c.store.flush()
}

func (c *Coordinator) persist(ctx context.Context, connected bool) {
	if err := c.session.SetConnected(connected); err != nil {
		c.logger.Warn(ctx, "session flag not saved", "connected", connected, "error", err)
	}
}

func (c *Coordinator) recordState(ctx context.Context, state domain.ConnectionState) {
	var v int64
	switch state {
	case domain.StateConnecting:
		v = 1
	case domain.StateConnected:
		v = 2
	}
	c.metrics.connectionState.Record(ctx, v)
}

// Start attaches the coordinator to the provider's change events.
func (c *Coordinator) Start(ctx context.Context) error {
	if c.provider == nil {
		c.logger.Warn(ctx, "no wallet provider configured, events disabled")
		return nil
	}

	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	if c.started {
		return nil
	}
	c.started = true

	c.removers = append(c.removers,
		c.provider.OnAccountsChanged(c.HandleAccountsChanged),
		c.provider.OnChainChanged(c.HandleChainChanged),
	)

	c.logger.Debug(ctx, "provider listeners attached")
	return nil
}

// Close detaches provider listeners and drops pending event handling.
func (c *Coordinator) Close() error {
	c.listenersMu.Lock()
	removers := c.removers
	c.removers = nil
	c.started = false
	c.listenersMu.Unlock()

	for _, remove := range removers {
		remove()
	}

	c.accountsDebounce.Stop()
	c.chainDebounce.Stop()
	return nil
}

// nopSession is used when no session store is configured.
type nopSession struct{}

func (nopSession) WasConnected() (bool, error) { return false, nil }
func (nopSession) SetConnected(bool) error     { return nil }
