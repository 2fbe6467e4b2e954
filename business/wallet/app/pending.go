package app

import "github.com/fd1az/launchpad-wallet/business/wallet/domain"

// outcome is the settlement of one connection attempt.
type outcome struct {
	snapshot domain.ConnectionSnapshot
	err      error
}

// waiter is a caller blocked on the in-flight attempt.
type waiter struct {
	done chan outcome
}

// pendingQueue holds callers awaiting the in-flight attempt, in arrival
// order. It is guarded by the coordinator's mutex.
type pendingQueue struct {
	waiters []*waiter
}

func (q *pendingQueue) enqueue() *waiter {
	w := &waiter{done: make(chan outcome, 1)}
	q.waiters = append(q.waiters, w)
	return w
}

// drain empties the queue and returns its entries in FIFO order.
func (q *pendingQueue) drain() []*waiter {
	ws := q.waiters
	q.waiters = nil
	return ws
}

func (q *pendingQueue) len() int {
	return len(q.waiters)
}

// settleAll resolves every waiter exactly once, first-come first-served.
// The channels are buffered so callers that stopped waiting never block it.
func settleAll(ws []*waiter, o outcome) {
	for _, w := range ws {
		w.done <- o
	}
}
