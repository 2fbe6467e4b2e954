package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
	"github.com/fd1az/launchpad-wallet/internal/apperror"
)

const testDebounce = 40 * time.Millisecond

func newTestCoordinator(t *testing.T, provider Provider, session SessionStore) *Coordinator {
	t.Helper()

	cfg := CoordinatorConfig{
		ConnectTimeout: 5 * time.Second,
		EventDebounce:  testDebounce,
	}
	c, err := NewCoordinator(provider, session, domain.DefaultRegistry(), NewStore(), cfg, &mockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitForWaiters(t *testing.T, c *Coordinator, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.pending.len() == n
	}, time.Second, 5*time.Millisecond)
}

func TestConnect_Success(t *testing.T) {
	provider := newFakeProvider()
	session := &fakeSession{}
	c := newTestCoordinator(t, provider, session)

	snap, err := c.Connect(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Connected)
	assert.True(t, snap.Consistent())
	assert.Equal(t, common.HexToAddress(testAccount), *snap.Address)
	assert.Equal(t, uint64(1), snap.ChainID)
	assert.Equal(t, "1.0000", snap.BalanceDisplay)
	assert.Equal(t, common.HexToAddress(testAccount), snap.Signer.Address())

	assert.Equal(t, domain.StateConnected, c.State())
	assert.Equal(t, snap, c.Store().Snapshot())
	assert.True(t, session.get())

	// Already authorized: no prompt.
	assert.Equal(t, 1, provider.count(methodAccounts))
	assert.Equal(t, 0, provider.count(methodRequestAccounts))
}

func TestConnect_PromptsWhenNotAuthorized(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	c := newTestCoordinator(t, provider, nil)

	snap, err := c.Connect(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Connected)
	assert.Equal(t, 1, provider.count(methodAccounts))
	assert.Equal(t, 1, provider.count(methodRequestAccounts))
}

func TestConnect_AlreadyConnectedIsNoOp(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	first, err := c.Connect(context.Background())
	require.NoError(t, err)

	calls := provider.total()
	publishes := c.Store().PublishCount()

	second, err := c.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, provider.total(), "no provider request while connected")
	assert.Equal(t, publishes, c.Store().PublishCount())
}

func TestConnect_SingleFlight(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	gate := provider.block()
	c := newTestCoordinator(t, provider, nil)

	const callers = 3
	var wg sync.WaitGroup
	snaps := make([]domain.ConnectionSnapshot, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i], errs[i] = c.Connect(context.Background())
		}()
	}

	waitForWaiters(t, c, callers)
	require.Eventually(t, func() bool {
		return provider.count(methodRequestAccounts) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StateConnecting, c.State())

	close(gate)
	wg.Wait()

	assert.Equal(t, 1, provider.count(methodRequestAccounts))
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, snaps[0], snaps[i])
	}
	assert.True(t, snaps[0].Connected)
}

func TestConnect_SingleFlightRejection(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	provider.fail(methodRequestAccounts, &domain.RPCError{Code: domain.ProviderCodeUserRejected, Message: "User rejected the request."})
	gate := provider.block()
	c := newTestCoordinator(t, provider, nil)

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Connect(context.Background())
		}()
	}

	waitForWaiters(t, c, callers)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, provider.count(methodRequestAccounts))
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrUserRejected)
		assert.Same(t, errs[0], err, "every caller receives the same settlement")
	}
}

func TestConnect_Failures(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		err      error
		wantCode apperror.Code
	}{
		{
			name:     "user_rejected",
			method:   methodRequestAccounts,
			err:      &domain.RPCError{Code: domain.ProviderCodeUserRejected, Message: "User rejected the request."},
			wantCode: apperror.CodeUserRejected,
		},
		{
			name:     "request_pending",
			method:   methodRequestAccounts,
			err:      &domain.RPCError{Code: domain.ProviderCodeRequestPending, Message: "Request of type 'wallet_requestPermissions' already pending"},
			wantCode: apperror.CodeRequestPending,
		},
		{
			name:     "chain_id_failure",
			method:   methodChainID,
			err:      errors.New("connection refused"),
			wantCode: apperror.CodeProviderError,
		},
		{
			name:     "balance_failure",
			method:   methodGetBalance,
			err:      &domain.RPCError{Code: -32603, Message: "internal error"},
			wantCode: apperror.CodeProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.set(methodAccounts, []string{})
			provider.fail(tt.method, tt.err)
			session := &fakeSession{connected: true}
			c := newTestCoordinator(t, provider, session)

			snap, err := c.Connect(context.Background())
			require.Error(t, err)

			assert.Equal(t, tt.wantCode, apperror.GetCode(err))
			assert.False(t, snap.Connected)
			assert.Equal(t, domain.StateDisconnected, c.State())

			stored := c.Store().Snapshot()
			assert.False(t, stored.Connected)
			assert.True(t, stored.Consistent(), "no partial state after failure")
			assert.False(t, session.get())
		})
	}
}

func TestConnect_NoAccountsReturned(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	provider.set(methodRequestAccounts, []string{})
	c := newTestCoordinator(t, provider, nil)

	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, domain.StateDisconnected, c.State())
}

func TestConnect_NoProvider(t *testing.T) {
	c := newTestCoordinator(t, nil, nil)

	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoProvider)
	assert.Equal(t, domain.StateDisconnected, c.State())
	assert.Equal(t, uint64(0), c.Store().PublishCount())
	assert.False(t, c.HasProvider())
}

func TestConnect_CallerCancelDoesNotAbortAttempt(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	gate := provider.block()
	c := newTestCoordinator(t, provider, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Connect(ctx)
		done <- err
	}()

	waitForWaiters(t, c, 1)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(gate)
	require.Eventually(t, func() bool {
		return c.Store().Snapshot().Connected
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StateConnected, c.State())
}

func TestReconnect_NoAuthorizedAccounts(t *testing.T) {
	provider := newFakeProvider()
	provider.set(methodAccounts, []string{})
	session := &fakeSession{connected: true}
	c := newTestCoordinator(t, provider, session)

	snap, err := c.Restore(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.Connected)
	assert.Equal(t, 0, provider.count(methodRequestAccounts), "silent reconnect never prompts")
	assert.False(t, session.get(), "stale flag is cleared")
	assert.Equal(t, domain.StateDisconnected, c.State())
}

func TestRestore(t *testing.T) {
	t.Run("flag_set", func(t *testing.T) {
		provider := newFakeProvider()
		c := newTestCoordinator(t, provider, &fakeSession{connected: true})

		snap, err := c.Restore(context.Background())
		require.NoError(t, err)
		assert.True(t, snap.Connected)
	})

	t.Run("flag_clear", func(t *testing.T) {
		provider := newFakeProvider()
		c := newTestCoordinator(t, provider, &fakeSession{})

		snap, err := c.Restore(context.Background())
		require.NoError(t, err)
		assert.False(t, snap.Connected)
		assert.Equal(t, 0, provider.total())
	})

	t.Run("flag_unreadable", func(t *testing.T) {
		provider := newFakeProvider()
		c := newTestCoordinator(t, provider, &fakeSession{connected: true, err: errors.New("disk gone")})

		snap, err := c.Restore(context.Background())
		require.NoError(t, err)
		assert.False(t, snap.Connected)
		assert.Equal(t, 0, provider.total())
	})
}

func TestDisconnect(t *testing.T) {
	provider := newFakeProvider()
	session := &fakeSession{}
	c := newTestCoordinator(t, provider, session)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	calls := provider.total()

	c.Disconnect()

	snap := c.Store().Snapshot()
	assert.False(t, snap.Connected)
	assert.True(t, snap.Consistent())
	assert.Equal(t, domain.StateDisconnected, c.State())
	assert.False(t, session.get())
	assert.Equal(t, calls, provider.total(), "disconnect never calls the provider")

	// Connecting again starts a fresh attempt.
	_, err = c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, provider.count(methodAccounts))
}

func TestSwitchNetwork(t *testing.T) {
	t.Run("unknown_network", func(t *testing.T) {
		provider := newFakeProvider()
		c := newTestCoordinator(t, provider, nil)
		_, err := c.Connect(context.Background())
		require.NoError(t, err)

		calls := provider.total()
		before := c.Store().Snapshot()

		require.NoError(t, c.SwitchNetwork(context.Background(), 999999))

		assert.Equal(t, calls, provider.total())
		assert.Equal(t, before, c.Store().Snapshot())
	})

	t.Run("known_network", func(t *testing.T) {
		provider := newFakeProvider()
		c := newTestCoordinator(t, provider, nil)
		publishes := c.Store().PublishCount()

		require.NoError(t, c.SwitchNetwork(context.Background(), domain.ChainBSC))

		assert.Equal(t, 1, provider.count(methodSwitchChain))
		assert.Equal(t, 0, provider.count(methodAddChain))
		assert.Equal(t, []any{domain.SwitchChainParams{ChainID: "0x38"}}, provider.lastParams(methodSwitchChain))
		assert.Equal(t, publishes, c.Store().PublishCount(), "switch never publishes directly")
	})

	t.Run("unrecognized_chain_is_added", func(t *testing.T) {
		provider := newFakeProvider()
		provider.fail(methodSwitchChain, &domain.RPCError{Code: domain.ProviderCodeUnrecognizedChain, Message: "Unrecognized chain ID"})
		c := newTestCoordinator(t, provider, nil)

		require.NoError(t, c.SwitchNetwork(context.Background(), domain.ChainBSCTestnet))

		network, _ := c.Registry().Lookup(domain.ChainBSCTestnet)
		assert.Equal(t, 1, provider.count(methodAddChain))
		assert.Equal(t, []any{network.AddChainParams()}, provider.lastParams(methodAddChain))
	})

	t.Run("rejected", func(t *testing.T) {
		provider := newFakeProvider()
		provider.fail(methodSwitchChain, &domain.RPCError{Code: domain.ProviderCodeUserRejected, Message: "User rejected the request."})
		c := newTestCoordinator(t, provider, nil)

		err := c.SwitchNetwork(context.Background(), domain.ChainSepolia)
		assert.ErrorIs(t, err, domain.ErrUserRejected)
		assert.Equal(t, 0, provider.count(methodAddChain))
	})
}

func TestAccountsChanged_EmptyDisconnects(t *testing.T) {
	provider := newFakeProvider()
	session := &fakeSession{}
	c := newTestCoordinator(t, provider, session)
	require.NoError(t, c.Start(context.Background()))

	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	c.HandleAccountsChanged(nil)

	require.Eventually(t, func() bool {
		return !c.Store().Snapshot().Connected
	}, 10*testDebounce, 5*time.Millisecond)
	assert.Equal(t, domain.StateDisconnected, c.State())
	assert.False(t, session.get())
}

func TestAccountsChanged_NewPrimary(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	before, err := c.Connect(context.Background())
	require.NoError(t, err)

	provider.set(methodGetBalance, "0x1bc16d674ec80000") // 2 ether
	c.HandleAccountsChanged([]common.Address{common.HexToAddress(otherAccount)})

	require.Eventually(t, func() bool {
		return c.Store().Snapshot().Version > before.Version
	}, 10*testDebounce, 5*time.Millisecond)

	snap := c.Store().Snapshot()
	assert.Equal(t, common.HexToAddress(otherAccount), *snap.Address)
	assert.Equal(t, common.HexToAddress(otherAccount), snap.Signer.Address())
	assert.Equal(t, "2.0000", snap.BalanceDisplay)
	assert.Equal(t, before.ChainID, snap.ChainID)
	assert.True(t, snap.Consistent())
}

func TestAccountsChanged_SamePrimaryIgnored(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)
	publishes := c.Store().PublishCount()

	c.HandleAccountsChanged([]common.Address{common.HexToAddress(testAccount)})
	c.accountsDebounce.Flush()

	assert.Equal(t, publishes, c.Store().PublishCount())
}

func TestChainChanged_DebounceCollapse(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)
	require.NoError(t, c.Start(context.Background()))

	before, err := c.Connect(context.Background())
	require.NoError(t, err)
	publishes := c.Store().PublishCount()
	chainQueries := provider.count(methodChainID)

	provider.set(methodChainID, "0x38")
	provider.set(methodGetBalance, "0x0")
	for range 5 {
		provider.emitChainChanged("0x38")
	}

	require.Eventually(t, func() bool {
		return c.Store().PublishCount() == publishes+1
	}, 10*testDebounce, 5*time.Millisecond)

	// Nothing else fires after the window.
	time.Sleep(3 * testDebounce)
	assert.Equal(t, publishes+1, c.Store().PublishCount())
	assert.Equal(t, chainQueries+1, provider.count(methodChainID))

	snap := c.Store().Snapshot()
	assert.Equal(t, uint64(domain.ChainBSC), snap.ChainID)
	assert.Equal(t, "0.0000", snap.BalanceDisplay)
	assert.Equal(t, *before.Address, *snap.Address)
}

func TestChainChanged_FallsBackToPayload(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	provider.fail(methodChainID, errors.New("timeout"))
	c.HandleChainChanged("0xaa36a7")
	c.chainDebounce.Flush()

	assert.Equal(t, uint64(domain.ChainSepolia), c.Store().Snapshot().ChainID)
}

func TestChainChanged_IgnoredWhenDisconnected(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	c.HandleChainChanged("0x38")
	c.chainDebounce.Flush()

	assert.Equal(t, uint64(0), c.Store().PublishCount())
	assert.Equal(t, 0, provider.total())
}

func TestStartClose(t *testing.T) {
	provider := newFakeProvider()
	c := newTestCoordinator(t, provider, nil)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 2, provider.listenerCount())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, provider.listenerCount())
}
