// Package pgxstub provides in-memory pgx rows and a recording SQL executor
// for tests of code written against infra.SQLExecutor.
package pgxstub

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Row scans a fixed set of values into its destinations. A nil Row.Values
// with a nil Err behaves like an empty result.
type Row struct {
	Values []any
	Err    error
}

func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Values == nil {
		return pgx.ErrNoRows
	}
	return assign(r.Values, dest)
}

// Rows iterates a slice of value tuples.
type Rows struct {
	Data    [][]any
	IterErr error

	idx    int
	closed bool
}

func (r *Rows) Next() bool {
	if r.closed || r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.Data) {
		return fmt.Errorf("pgxstub: scan without current row")
	}
	return assign(r.Data[r.idx-1], dest)
}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return r.IterErr }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) Values() ([]any, error) {
	return nil, fmt.Errorf("pgxstub: values not supported")
}
func (r *Rows) RawValues() [][]byte { return nil }
func (r *Rows) Conn() *pgx.Conn     { return nil }

// Call is one recorded statement.
type Call struct {
	Query string
	Args  []any
}

// Executor records every call and answers from the configured handlers.
type Executor struct {
	mu    sync.Mutex
	calls []Call

	ExecErr error
	RowFor  func(query string, args []any) Row
	RowsFor func(query string, args []any) (*Rows, error)
}

func (e *Executor) record(query string, args []any) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Query: query, Args: args})
	e.mu.Unlock()
}

// Calls returns the statements seen so far.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *Executor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	e.record(query, args)
	if e.ExecErr != nil {
		return pgconn.CommandTag{}, e.ExecErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (e *Executor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	e.record(query, args)
	if e.RowFor == nil {
		return Row{}
	}
	return e.RowFor(query, args)
}

func (e *Executor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	e.record(query, args)
	if e.RowsFor == nil {
		return &Rows{}, nil
	}
	rows, err := e.RowsFor(query, args)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// assign copies values into pointer destinations of the same underlying
// type; a nil value zeroes the destination.
func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("pgxstub: %d values for %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("pgxstub: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case elem.Kind() == reflect.Pointer && v.Type().AssignableTo(elem.Type().Elem()):
			ptr := reflect.New(elem.Type().Elem())
			ptr.Elem().Set(v)
			elem.Set(ptr)
		case v.Type().ConvertibleTo(elem.Type()) && v.Kind() != reflect.String && elem.Kind() != reflect.String:
			elem.Set(v.Convert(elem.Type()))
		default:
			return fmt.Errorf("pgxstub: cannot scan %T into %s", values[i], elem.Type())
		}
	}
	return nil
}
