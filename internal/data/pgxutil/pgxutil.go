// Package pgxutil bridges database/sql pools to native pgx connections.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// WithPgxConn acquires a *pgx.Conn via the stdlib bridge and executes fn with it.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	if db == nil {
		return errors.New("database is required")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		// connection close failure is best-effort and ignored
		_ = conn.Close()
	}()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}

// QueryOne runs query on a pooled pgx connection and scans exactly one row with scan.
// It returns pgx.ErrNoRows when the query yields nothing.
func QueryOne[T any](
	ctx context.Context,
	db *sql.DB,
	scan func(pgx.CollectableRow) (T, error),
	query string,
	args ...any,
) (T, error) {
	var out T
	err := WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		v, err := pgx.CollectExactlyOneRow(rows, scan)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// QueryAll runs query on a pooled pgx connection and scans every row with scan.
func QueryAll[T any](
	ctx context.Context,
	db *sql.DB,
	scan func(pgx.CollectableRow) (T, error),
	query string,
	args ...any,
) ([]T, error) {
	var out []T
	err := WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		vals, err := pgx.CollectRows(rows, scan)
		if err != nil {
			return err
		}
		out = vals
		return nil
	})
	return out, err
}
