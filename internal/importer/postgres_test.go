// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int)) = 1
	return nil
}

type copied struct {
	table   pgx.Identifier
	columns []string
	rows    [][]any
}

// fakePg records statements and copies.
type fakePg struct {
	exists  bool
	execErr map[string]error
	execs   []string
	copies  []copied
}

func (f *fakePg) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr[sql]
}

func (f *fakePg) QueryRow(context.Context, string, ...any) pgx.Row {
	if f.exists {
		return fakeRow{}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakePg) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	c := copied{table: table, columns: columns}
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.rows = append(c.rows, vals)
	}
	f.copies = append(f.copies, c)
	return int64(len(c.rows)), nil
}

func TestEnsureDatabase(t *testing.T) {
	pg := &fakePg{}
	created, err := EnsureDatabase(context.Background(), pg, "shop")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{`CREATE DATABASE "shop"`}, pg.execs)

	pg = &fakePg{exists: true}
	created, err = EnsureDatabase(context.Background(), pg, "shop")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, pg.execs)
}

func TestLoadTableReplacesAndCopies(t *testing.T) {
	pg := &fakePg{}
	table := Table{
		Name:    "order_items",
		Columns: []string{"id", "Price"},
		Types:   []ColumnType{TypeBigInt, TypeDouble},
		Rows:    [][]string{{"1", "2.5"}, {"2", ""}},
	}

	n, err := LoadTable(context.Background(), pg, table)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "order_items"`,
		`CREATE TABLE "order_items" ("id" BIGINT, "Price" DOUBLE PRECISION)`,
	}, pg.execs)
	require.Len(t, pg.copies, 1)
	assert.Equal(t, pgx.Identifier{"order_items"}, pg.copies[0].table)
	assert.Equal(t, [][]any{{int64(1), 2.5}, {int64(2), nil}}, pg.copies[0].rows)
}

func TestImportSQLContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("id\n1\n2\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("id\n1\n"), 0o600))
	files, err := ReadDir(dir)
	require.NoError(t, err)

	pg := &fakePg{execErr: map[string]error{`DROP TABLE IF EXISTS "a"`: errors.New("permission denied for table a")}}
	progress := NewProgress([]string{"a", "b"})
	var out bytes.Buffer

	err = ImportSQL(context.Background(), pg, files, Options{Progress: progress, Out: &out})
	require.Error(t, err)
	assert.Equal(t, "1 of 2 file(s) failed to import", err.Error())
	assert.Equal(t, "❌ a: drop table a: permission denied for table a\nTable 'b' created successfully with 1 records.\n", out.String())
	assert.Equal(t, 1, progress.FailedCount())
	assert.Equal(t, 1, progress.CompletedCount())
}
