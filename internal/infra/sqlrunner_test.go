package infra

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

type recordingPool struct {
	lastSQL  string
	lastArgs []any
	rowErr   error
}

func (p *recordingPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.lastSQL, p.lastArgs = sql, args
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (p *recordingPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.lastSQL, p.lastArgs = sql, args
	return errorRow{err: p.rowErr}
}

func (p *recordingPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.lastSQL, p.lastArgs = sql, args
	return nil, errors.New("not implemented")
}

const markedQuery = `--sql 0b9b3c2e-8f6e-4b61-9d0a-52d2f1b7a111
select 1;
`

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker(markedQuery)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "0b9b3c2e-8f6e-4b61-9d0a-52d2f1b7a111" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("body = %q", body)
	}

	if _, _, err := extractMarker("select 1;"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("expected ErrSQLMarker, got %v", err)
	}
	if _, _, err := extractMarker("   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestSQLRunnerStripsMarker(t *testing.T) {
	pool := &recordingPool{}
	runner := &SQLRunner{Pool: pool, Logger: zerolog.Nop()}

	if _, err := runner.Exec(context.Background(), markedQuery, "a", 1); err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if strings.Contains(pool.lastSQL, "--sql") {
		t.Fatalf("marker forwarded to pool: %q", pool.lastSQL)
	}
	if len(pool.lastArgs) != 2 {
		t.Fatalf("args not forwarded: %#v", pool.lastArgs)
	}
}

func TestSQLRunnerRejectsUnmarkedQueries(t *testing.T) {
	pool := &recordingPool{}
	runner := &SQLRunner{Pool: pool, Logger: zerolog.Nop()}

	if _, err := runner.Exec(context.Background(), "delete from generations"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Exec error = %v, want ErrSQLMarker", err)
	}
	var n int
	if err := runner.QueryRow(context.Background(), "select 1").Scan(&n); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("QueryRow error = %v, want ErrSQLMarker", err)
	}
	if _, err := runner.Query(context.Background(), "select 1"); !errors.Is(err, ErrSQLMarker) {
		t.Fatalf("Query error = %v, want ErrSQLMarker", err)
	}
	if pool.lastSQL != "" {
		t.Fatalf("unmarked query reached the pool: %q", pool.lastSQL)
	}
}

func TestSQLRunnerPassesNoRowsThrough(t *testing.T) {
	pool := &recordingPool{rowErr: pgx.ErrNoRows}
	runner := &SQLRunner{Pool: pool, Logger: zerolog.Nop()}
	var n int
	err := runner.QueryRow(context.Background(), markedQuery).Scan(&n)
	if !IsNoRows(err) {
		t.Fatalf("expected no rows, got %v", err)
	}
}
