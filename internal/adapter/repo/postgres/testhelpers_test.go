package postgres

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow satisfies pgx.Row by copying scripted values into the scan targets.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) || r.vals[i] == nil {
			continue
		}
		dv := reflect.ValueOf(d).Elem()
		dv.Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

// fakeRows satisfies pgx.Rows over a fixed set of scripted rows.
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.idx++; return r.idx <= len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error {
	return fakeRow{vals: r.rows[r.idx-1]}.Scan(dest...)
}
func (r *fakeRows) Values() ([]any, error)  { return r.rows[r.idx-1], nil }
func (r *fakeRows) RawValues() [][]byte     { return nil }
func (r *fakeRows) Conn() *pgx.Conn         { return nil }

// call captures one pool invocation for assertions.
type call struct {
	sql  string
	args []any
}

// fakePool scripts QueryRow/Query/Exec responses in FIFO order.
type fakePool struct {
	calls    []call
	rowQueue []fakeRow
	rows     *fakeRows
	execTag  pgconn.CommandTag
	execErr  error
}

func (p *fakePool) nextRow() fakeRow {
	if len(p.rowQueue) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	r := p.rowQueue[0]
	p.rowQueue = p.rowQueue[1:]
	return r
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.calls = append(p.calls, call{sql: sql, args: args})
	return p.execTag, p.execErr
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.calls = append(p.calls, call{sql: sql, args: args})
	return p.nextRow()
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.calls = append(p.calls, call{sql: sql, args: args})
	if p.rows == nil {
		return &fakeRows{}, nil
	}
	return p.rows, nil
}
