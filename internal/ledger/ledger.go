// Package ledger debits and credits the per-user credit balance. Atomicity is
// provided by the system of record; callers never read-modify-write balances.
package ledger

import (
	"context"
)

// Ledger is the atomic credit contract. Consume must decrement by exactly one
// only when the balance is at least one and report the new balance; any other
// outcome is domain.ErrInsufficientCredits. Refund adds exactly one credit.
type Ledger interface {
	Consume(ctx context.Context, userID string) (int, error)
	Refund(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int, error)
}

// Granter tops up balances. It is an operator action, not part of the
// request path.
type Granter interface {
	Grant(ctx context.Context, userID string, amount int) (int, error)
}
