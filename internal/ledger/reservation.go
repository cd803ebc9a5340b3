package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const refundTimeout = 10 * time.Second

// Reservation is a consumed credit that is refunded unless Commit is called.
// It turns "consume before work, refund on failure" into an explicit pair of
// state transitions: Reserve moves to CreditReserved, and exactly one of
// Commit or Release leaves it.
type Reservation struct {
	ledger    Ledger
	userID    string
	remaining int

	mu        sync.Mutex
	settled   bool
	refundErr error
}

// Reserve consumes one credit for userID.
func Reserve(ctx context.Context, l Ledger, userID string) (*Reservation, error) {
	remaining, err := l.Consume(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Reservation{ledger: l, userID: userID, remaining: remaining}, nil
}

// Remaining is the balance reported by the consume call.
func (r *Reservation) Remaining() int {
	return r.remaining
}

// Commit keeps the credit. Later Release calls are no-ops.
func (r *Reservation) Commit() {
	r.mu.Lock()
	r.settled = true
	r.mu.Unlock()
}

// Release refunds the credit unless the reservation was already committed or
// released. The refund runs on a context detached from ctx's cancellation so
// an aborted request still gives the credit back.
func (r *Reservation) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled {
		return r.refundErr
	}
	r.settled = true

	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()
	if err := r.ledger.Refund(refundCtx, r.userID); err != nil {
		r.refundErr = fmt.Errorf("ledger: refund credit: %w", err)
	}
	return r.refundErr
}
