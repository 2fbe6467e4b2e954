package app

import (
	"context"
	"sync"

	"github.com/fd1az/launchpad-wallet/business/wallet/domain"
)

// Binding connects one consumer (a view, a CLI printer) to the store. It
// keeps the latest snapshot for the consumer and forwards actions to the
// coordinator.
type Binding struct {
	coord    *Coordinator
	onChange func(domain.ConnectionSnapshot)

	mu          sync.Mutex
	snapshot    domain.ConnectionSnapshot
	unsubscribe func()
	mounted     bool
}

// NewBinding creates an unmounted binding. onChange may be nil.
func NewBinding(coord *Coordinator, onChange func(domain.ConnectionSnapshot)) *Binding {
	return &Binding{
		coord:    coord,
		onChange: onChange,
	}
}

// Mount reads the current snapshot and subscribes to updates.
func (b *Binding) Mount() {
	b.mu.Lock()
	if b.mounted {
		b.mu.Unlock()
		return
	}
	b.mounted = true
	b.mu.Unlock()

	// Subscribe before reading so no publish falls between the two.
	unsubscribe := b.coord.Store().Subscribe(b.update)
	b.update(b.coord.Store().Snapshot())

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
}

// Unmount stops updates. No onChange call starts after it returns.
func (b *Binding) Unmount() {
	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mounted = false
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Binding) update(snap domain.ConnectionSnapshot) {
	b.mu.Lock()
	// The initial read can race a publish delivered through the subscription.
	if snap.Version < b.snapshot.Version {
		b.mu.Unlock()
		return
	}
	b.snapshot = snap
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(snap)
	}
}

// Snapshot returns the last snapshot the binding saw.
func (b *Binding) Snapshot() domain.ConnectionSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot
}

// IsConnected reports whether the last snapshot is connected.
func (b *Binding) IsConnected() bool {
	return b.Snapshot().Connected
}

// IsConnecting reports whether a connection attempt is in flight.
func (b *Binding) IsConnecting() bool {
	return b.coord.State() == domain.StateConnecting
}

// ShortAddress renders the account as 0x1234...abcd.
func (b *Binding) ShortAddress() string {
	return b.Snapshot().ShortAddress()
}

// Network returns the registry entry for the snapshot's chain.
func (b *Binding) Network() (domain.NetworkDescriptor, bool) {
	snap := b.Snapshot()
	if !snap.Connected {
		return domain.NetworkDescriptor{}, false
	}
	return b.coord.Registry().Lookup(snap.ChainID)
}

// Networks lists the switchable networks.
func (b *Binding) Networks() []domain.NetworkDescriptor {
	return b.coord.Registry().All()
}

// Connect forwards to Coordinator.Connect.
func (b *Binding) Connect(ctx context.Context) (domain.ConnectionSnapshot, error) {
	return b.coord.Connect(ctx)
}

// Disconnect forwards to Coordinator.Disconnect.
func (b *Binding) Disconnect() {
	b.coord.Disconnect()
}

// SwitchNetwork forwards to Coordinator.SwitchNetwork.
func (b *Binding) SwitchNetwork(ctx context.Context, chainID uint64) error {
	return b.coord.SwitchNetwork(ctx, chainID)
}
