// Package store is the data-access layer over the layer configuration schema.
// Every mutating operation runs in one transaction; a failed statement or a
// deferred constraint raised at COMMIT aborts all of it.
package store

import (
	"context"
	"fmt"

	"MapLayerStore/internal/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool and *pgx.Conn.
type DB interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ChangeHook is told which portals a committed transaction touched.
type ChangeHook func(ctx context.Context, portalCodes []string)

type Store struct {
	db       DB
	onChange []ChangeHook
}

func New(db DB) *Store {
	return &Store{db: db}
}

// OnChange registers a hook run after every successful mutation.
func (s *Store) OnChange(h ChangeHook) {
	s.onChange = append(s.onChange, h)
}

// Write runs fn inside one transaction and notifies change hooks on commit.
func (s *Store) Write(ctx context.Context, fn func(w *Writer) error) error {
	w := &Writer{touched: map[string]bool{}}
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		w.q = tx
		return fn(w)
	})
	if err != nil {
		return classify(err)
	}
	if len(w.touched) > 0 {
		codes := make([]string, 0, len(w.touched))
		for c := range w.touched {
			codes = append(codes, c)
		}
		for _, h := range s.onChange {
			h(ctx, codes)
		}
	}
	return nil
}

// Writer exposes the mutating operations to a caller-controlled transaction.
type Writer struct {
	q       querier
	touched map[string]bool
}

func (w *Writer) touch(portalCode string) {
	w.touched[portalCode] = true
}

func exec(ctx context.Context, q querier, b squirrel.Sqlizer) (int64, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql: %w", err)
	}
	logger.Debug("sql_exec", map[string]any{"sql": sql, "args": len(args)})
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func query(ctx context.Context, q querier, b squirrel.Sqlizer) (pgx.Rows, error) {
	sql, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql: %w", err)
	}
	logger.Debug("sql_query", map[string]any{"sql": sql, "args": len(args)})
	return q.Query(ctx, sql, args...)
}

// queryRow defers a builder error to Scan, the way pgx reports its own.
func queryRow(ctx context.Context, q querier, b squirrel.Sqlizer) pgx.Row {
	sql, args, err := b.ToSql()
	if err != nil {
		return errRow{fmt.Errorf("build sql: %w", err)}
	}
	logger.Debug("sql_query_row", map[string]any{"sql": sql, "args": len(args)})
	return q.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
