package ledger

import (
	"context"
	"errors"
	"fmt"

	"tryon/internal/domain"
	"tryon/internal/infra"
	"tryon/internal/sqlinline"
)

// Postgres calls the credit stored functions installed by the migrations.
// Each function is a single UPDATE guarded by the balance check, so
// concurrent calls for one user serialise on the row lock.
type Postgres struct {
	sql infra.SQLExecutor
}

func NewPostgres(sql infra.SQLExecutor) *Postgres {
	return &Postgres{sql: sql}
}

// Consume maps every failure, including an unreachable ledger, to
// domain.ErrInsufficientCredits while keeping the cause in the chain.
func (p *Postgres) Consume(ctx context.Context, userID string) (int, error) {
	var remaining *int
	if err := p.sql.QueryRow(ctx, sqlinline.QConsumeCredit, userID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInsufficientCredits, err)
	}
	if remaining == nil {
		return 0, domain.ErrInsufficientCredits
	}
	return *remaining, nil
}

func (p *Postgres) Refund(ctx context.Context, userID string) error {
	if _, err := p.sql.Exec(ctx, sqlinline.QRefundCredit, userID); err != nil {
		return fmt.Errorf("ledger: refund: %w", err)
	}
	return nil
}

func (p *Postgres) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := p.sql.QueryRow(ctx, sqlinline.QGetCreditBalance, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ledger: balance: %w", err)
	}
	return balance, nil
}

func (p *Postgres) Grant(ctx context.Context, userID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, errors.New("ledger: grant amount must be positive")
	}
	var balance int
	if err := p.sql.QueryRow(ctx, sqlinline.QGrantCredits, userID, amount).Scan(&balance); err != nil {
		return 0, fmt.Errorf("ledger: grant: %w", err)
	}
	return balance, nil
}

var (
	_ Ledger  = (*Postgres)(nil)
	_ Granter = (*Postgres)(nil)
)
