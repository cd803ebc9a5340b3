package ledger

import (
	"context"
	"errors"
	"sync"

	"tryon/internal/domain"
)

// Memory keeps balances in process. It honours the same atomic contract as
// the Postgres ledger and backs tests and LEDGER_DRIVER=memory.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int

	consumes int
	refunds  int
}

// NewMemory returns a ledger seeded with the given balances.
func NewMemory(seed map[string]int) *Memory {
	balances := make(map[string]int, len(seed))
	for id, v := range seed {
		balances[id] = v
	}
	return &Memory{balances: balances}
}

func (m *Memory) Consume(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[userID] < domain.CreditsPerGeneration {
		return 0, domain.ErrInsufficientCredits
	}
	m.balances[userID] -= domain.CreditsPerGeneration
	m.consumes++
	return m.balances[userID], nil
}

func (m *Memory) Refund(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += domain.CreditsPerGeneration
	m.refunds++
	return nil
}

func (m *Memory) Balance(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[userID], nil
}

func (m *Memory) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, errors.New("ledger: grant amount must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += amount
	return m.balances[userID], nil
}

// Counts reports how many successful consume and refund calls were made.
func (m *Memory) Counts() (consumes, refunds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumes, m.refunds
}

var (
	_ Ledger  = (*Memory)(nil)
	_ Granter = (*Memory)(nil)
)
