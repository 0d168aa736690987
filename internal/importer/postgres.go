// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgConn is the part of *pgxpool.Pool the SQL loader uses.
type PgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

const databaseExistsQuery = `SELECT 1 FROM pg_database WHERE datname = $1`

// EnsureDatabase creates database name unless it exists. It reports whether
// the database was created.
func EnsureDatabase(ctx context.Context, conn PgConn, name string) (bool, error) {
	var one int
	err := conn.QueryRow(ctx, databaseExistsQuery, name).Scan(&one)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("check database %q: %w", name, err)
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("create database %q: %w", name, err)
	}
	return true, nil
}

// CreateTableSQL returns the CREATE TABLE statement for t.
func CreateTableSQL(t Table) string {
	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = pgx.Identifier{col}.Sanitize() + " " + string(t.Types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{t.Name}.Sanitize(), strings.Join(defs, ", "))
}

// LoadTable replaces table t.Name with the contents of t and returns the
// number of rows copied.
func LoadTable(ctx context.Context, conn PgConn, t Table) (int64, error) {
	ident := pgx.Identifier{t.Name}
	if _, err := conn.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return 0, fmt.Errorf("drop table %s: %w", t.Name, err)
	}
	if _, err := conn.Exec(ctx, CreateTableSQL(t)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", t.Name, err)
	}
	if len(t.Rows) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(t.Rows))
	for i := range t.Rows {
		rows[i] = t.Values(i)
	}
	n, err := conn.CopyFrom(ctx, ident, t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", t.Name, err)
	}
	return n, nil
}
