package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tryon/internal/domain"
	"tryon/internal/sqlinline"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d dest, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case **int:
			if r.values[i] == nil {
				*ptr = nil
				continue
			}
			v := r.values[i].(int)
			*ptr = &v
		case *int:
			*ptr = r.values[i].(int)
		default:
			return fmt.Errorf("scan: unsupported dest %T", d)
		}
	}
	return nil
}

type stubExecutor struct {
	row      stubRow
	execErr  error
	queries  []string
	lastArgs []any
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return pgconn.NewCommandTag("SELECT 1"), s.execErr
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestPostgresConsumeReturnsRemaining(t *testing.T) {
	exec := &stubExecutor{row: stubRow{values: []any{4}}}
	remaining, err := NewPostgres(exec).Consume(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Consume error: %v", err)
	}
	if remaining != 4 {
		t.Fatalf("remaining = %d, want 4", remaining)
	}
	if exec.queries[0] != sqlinline.QConsumeCredit {
		t.Fatalf("unexpected query %q", exec.queries[0])
	}
	if exec.lastArgs[0] != "user-1" {
		t.Fatalf("args = %#v", exec.lastArgs)
	}
}

func TestPostgresConsumeNullMeansInsufficient(t *testing.T) {
	exec := &stubExecutor{row: stubRow{values: []any{nil}}}
	_, err := NewPostgres(exec).Consume(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
}

func TestPostgresConsumeStoreErrorMeansInsufficient(t *testing.T) {
	cause := errors.New("connection refused")
	exec := &stubExecutor{row: stubRow{err: cause}}
	_, err := NewPostgres(exec).Consume(context.Background(), "user-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause dropped from chain: %v", err)
	}
}

func TestPostgresRefundAndBalance(t *testing.T) {
	exec := &stubExecutor{row: stubRow{values: []any{7}}}
	p := NewPostgres(exec)

	if err := p.Refund(context.Background(), "user-1"); err != nil {
		t.Fatalf("Refund error: %v", err)
	}
	balance, err := p.Balance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 7 {
		t.Fatalf("balance = %d", balance)
	}
	if exec.queries[0] != sqlinline.QRefundCredit || exec.queries[1] != sqlinline.QGetCreditBalance {
		t.Fatalf("unexpected queries %#v", exec.queries)
	}

	exec.execErr = errors.New("boom")
	if err := p.Refund(context.Background(), "user-1"); err == nil {
		t.Fatalf("expected refund error")
	}
}

func TestPostgresGrantRejectsNonPositive(t *testing.T) {
	exec := &stubExecutor{row: stubRow{values: []any{10}}}
	p := NewPostgres(exec)
	if _, err := p.Grant(context.Background(), "user-1", -1); err == nil {
		t.Fatalf("expected error for negative grant")
	}
	if len(exec.queries) != 0 {
		t.Fatalf("grant should not hit the database")
	}
	balance, err := p.Grant(context.Background(), "user-1", 5)
	if err != nil || balance != 10 {
		t.Fatalf("Grant = %d, %v", balance, err)
	}
	if exec.lastArgs[1] != 5 {
		t.Fatalf("amount not forwarded: %#v", exec.lastArgs)
	}
}
