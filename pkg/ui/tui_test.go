package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

type fakeWallet struct {
	snapshot   domain.ConnectionSnapshot
	registry   *domain.NetworkRegistry
	connecting bool

	connectErr  error
	connects    int
	disconnects int
	switchedTo  []uint64
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{registry: domain.DefaultRegistry()}
}

func (w *fakeWallet) Snapshot() domain.ConnectionSnapshot { return w.snapshot }
func (w *fakeWallet) IsConnecting() bool                   { return w.connecting }

func (w *fakeWallet) Network() (domain.NetworkDescriptor, bool) {
	if !w.snapshot.Connected {
		return domain.NetworkDescriptor{}, false
	}
	return w.registry.Lookup(w.snapshot.ChainID)
}

func (w *fakeWallet) Networks() []domain.NetworkDescriptor { return w.registry.All() }

func (w *fakeWallet) Connect(context.Context) (domain.ConnectionSnapshot, error) {
	w.connects++
	return w.snapshot, w.connectErr
}

func (w *fakeWallet) Disconnect() { w.disconnects++ }

func (w *fakeWallet) SwitchNetwork(_ context.Context, chainID uint64) error {
	w.switchedTo = append(w.switchedTo, chainID)
	return nil
}

func connected(version uint64, chainID uint64) domain.ConnectionSnapshot {
	snap := domain.NewConnectedSnapshot(
		common.HexToAddress("0x1234567890AbcdEF1234567890aBcdef12345678"),
		"1.0000", chainID, nil, nil)
	snap.Version = version
	return snap
}

func press(m tea.Model, k string) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func TestModel_ConnectKeyRunsConnect(t *testing.T) {
	w := newFakeWallet()
	m := New(context.Background(), w)

	next, cmd := press(m, "c")
	require.NotNil(t, cmd)
	assert.Contains(t, next.View(), "Connecting")

	msg := cmd()
	assert.Equal(t, ActionMsg{Action: "connect"}, msg)
	assert.Equal(t, 1, w.connects)

	next, _ = next.Update(msg)
	assert.Contains(t, next.View(), "Disconnected")
}

func TestModel_ConnectIgnoredWhileBusyOrConnected(t *testing.T) {
	w := newFakeWallet()
	m := New(context.Background(), w)

	next, cmd := press(m, "c")
	require.NotNil(t, cmd)
	_, cmd = press(next, "c")
	assert.Nil(t, cmd)

	w.snapshot = connected(1, domain.ChainEthereum)
	_, cmd = press(New(context.Background(), w), "c")
	assert.Nil(t, cmd)
}

func TestModel_RejectedConnectShowsWarning(t *testing.T) {
	w := newFakeWallet()
	w.connectErr = domain.NormalizeProviderError(&domain.RPCError{Code: 4001, Message: "denied"}, "connect")
	m := New(context.Background(), w)

	next, cmd := press(m, "c")
	next, _ = next.Update(cmd())

	model := next.(Model)
	require.Len(t, model.errors, 1)
	assert.True(t, model.errors[0].Warning)
	assert.Contains(t, model.View(), "ERRORS")
}

func TestModel_SnapshotRendersAccount(t *testing.T) {
	w := newFakeWallet()
	m := New(context.Background(), w)

	w.snapshot = connected(2, domain.ChainBSC)
	next, _ := m.Update(SnapshotMsg{Snapshot: w.snapshot})

	view := next.View()
	assert.Contains(t, view, "Connected")
	assert.Contains(t, view, "0x1234...5678")
	assert.Contains(t, view, "BSC Mainnet")
	assert.Contains(t, view, "1.0000 BNB")
}

func TestModel_IgnoresOlderSnapshot(t *testing.T) {
	w := newFakeWallet()
	m := New(context.Background(), w)

	next, _ := m.Update(SnapshotMsg{Snapshot: connected(3, domain.ChainEthereum)})
	next, _ = next.Update(SnapshotMsg{Snapshot: domain.ConnectionSnapshot{Version: 2}})

	assert.True(t, next.(Model).snapshot.Connected)
	assert.Equal(t, uint64(3), next.(Model).snapshot.Version)
}

func TestModel_NumberKeySwitchesNetwork(t *testing.T) {
	w := newFakeWallet()
	w.snapshot = connected(1, domain.ChainEthereum)
	m := New(context.Background(), w)

	_, cmd := press(m, "2")
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: "switch"}, cmd())
	assert.Equal(t, []uint64{domain.ChainBSC}, w.switchedTo)

	_, cmd = press(m, "9")
	assert.Nil(t, cmd)
}

func TestModel_DisconnectOnlyWhenConnected(t *testing.T) {
	w := newFakeWallet()
	m := New(context.Background(), w)

	_, cmd := press(m, "d")
	assert.Nil(t, cmd)

	w.snapshot = connected(1, domain.ChainEthereum)
	_, cmd = press(New(context.Background(), w), "d")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, w.disconnects)
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), newFakeWallet())

	next, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, next.View(), "Goodbye")
}
