package app

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

// fakeProvider answers provider requests from canned JSON values and counts
// calls per method. When gate is set, eth_requestAccounts blocks until it is
// closed, which lets tests pile up concurrent callers.
type fakeProvider struct {
	mu        sync.Mutex
	calls     map[string]int
	responses map[string]any
	errs      map[string]error
	params    map[string][]any
	gate      chan struct{}

	nextID            int
	accountsListeners map[int]func([]common.Address)
	chainListeners    map[int]func(string)
}

const (
	testAccount  = "0x1234567890AbcdEF1234567890aBcdef12345678"
	otherAccount = "0xaBcDeF0123456789aBcDeF0123456789AbCdEf01"
	oneEther     = "0xde0b6b3a7640000"
)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls: make(map[string]int),
		responses: map[string]any{
			methodAccounts:        []string{testAccount},
			methodRequestAccounts: []string{testAccount},
			methodChainID:         "0x1",
			methodGetBalance:      oneEther,
		},
		errs:              make(map[string]error),
		params:            make(map[string][]any),
		accountsListeners: make(map[int]func([]common.Address)),
		chainListeners:    make(map[int]func(string)),
	}
}

func (f *fakeProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	f.mu.Lock()
	f.calls[method]++
	f.params[method] = params
	gate := f.gate
	f.mu.Unlock()

	if method == methodRequestAccounts && gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	resp, err := f.responses[method], f.errs[method]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if result == nil || resp == nil {
		return nil
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func (f *fakeProvider) OnAccountsChanged(fn func([]common.Address)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.accountsListeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.accountsListeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) OnChainChanged(fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.chainListeners[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.chainListeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) emitChainChanged(chainID string) {
	f.mu.Lock()
	listeners := make([]func(string), 0, len(f.chainListeners))
	for _, fn := range f.chainListeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(chainID)
	}
}

func (f *fakeProvider) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.accountsListeners) + len(f.chainListeners)
}

func (f *fakeProvider) set(method string, resp any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = resp
}

func (f *fakeProvider) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = err
}

func (f *fakeProvider) block() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeProvider) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeProvider) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeProvider) lastParams(method string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[method]
}

// fakeSession is an in-memory SessionStore.
type fakeSession struct {
	mu        sync.Mutex
	connected bool
	writes    int
	err       error
}

func (s *fakeSession) WasConnected() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, s.err
}

func (s *fakeSession) SetConnected(connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.connected = connected
	return nil
}

func (s *fakeSession) get() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
