// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatdb/cli/internal/assistant"

	"github.com/jackc/pgx/v5"
)

const listDatabasesQuery = `
SELECT datname
FROM pg_database
WHERE datistemplate = false
ORDER BY datname`

const listTablesQuery = `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`

const columnsQuery = `
SELECT c.column_name,
       c.data_type,
       c.is_nullable = 'YES',
       COALESCE(c.column_default LIKE 'nextval%', false) OR c.is_identity = 'YES'
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`

const primaryKeyQuery = `
SELECT kc.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kc
  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kc.ordinal_position`

// ListDatabases returns the non-template databases on the server.
func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("not connected to PostgreSQL")
	}
	rows, err := s.db.QueryContext(ctx, listDatabasesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTables returns user tables. Tables outside public are schema-qualified.
func (s *Store) ListTables(ctx context.Context, database string) ([]string, error) {
	if err := s.ensure(ctx, database); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, err
		}
		if schema == "public" {
			tables = append(tables, table)
		} else {
			tables = append(tables, schema+"."+table)
		}
	}
	return tables, rows.Err()
}

// DescribeColumns returns the columns of table in ordinal order. table may be
// "table" or "schema.table".
func (s *Store) DescribeColumns(ctx context.Context, database, table string) ([]assistant.Column, error) {
	if err := s.ensure(ctx, database); err != nil {
		return nil, err
	}
	schema, name := parseTableName(table)

	rows, err := s.db.QueryContext(ctx, columnsQuery, schema, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []assistant.Column
	for rows.Next() {
		var c assistant.Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &c.AutoIncrement); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, nil
	}

	pks, err := s.primaryKeys(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i].PrimaryKey = pks[columns[i].Name]
	}
	return columns, nil
}

func (s *Store) primaryKeys(ctx context.Context, schema, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, primaryKeyQuery, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pks := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pks[col] = true
	}
	return pks, rows.Err()
}

// SampleRow returns the first row of table as an indented JSON object with
// keys in column order.
func (s *Store) SampleRow(ctx context.Context, database, table string) (string, bool, error) {
	if err := s.ensure(ctx, database); err != nil {
		return "", false, err
	}
	schema, name := parseTableName(table)

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+pgx.Identifier{schema, name}.Sanitize()+" LIMIT 1")
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	cols, data, err := collect(rows)
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	text, err := orderedJSON(cols, data[0])
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// parseTableName splits a table name into schema and table components.
// If no schema is specified, it defaults to "public".
func parseTableName(tableName string) (schema string, table string) {
	parts := strings.SplitN(strings.TrimSpace(tableName), ".", 2)
	if len(parts) == 2 {
		return strings.Trim(parts[0], `"`), strings.Trim(parts[1], `"`)
	}
	return "public", strings.Trim(parts[0], `"`)
}

// orderedJSON renders cols/vals as a JSON object, two-space indented, keeping
// column order (encoding/json would sort map keys).
func orderedJSON(cols []string, vals []any) (string, error) {
	var b bytes.Buffer
	b.WriteString("{")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(",")
		}
		key, err := json.Marshal(col)
		if err != nil {
			return "", err
		}
		val, err := json.Marshal(vals[i])
		if err != nil {
			val, _ = json.Marshal(fmt.Sprint(vals[i]))
		}
		b.WriteString("\n  ")
		b.Write(key)
		b.WriteString(": ")
		b.Write(val)
	}
	if len(cols) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String(), nil
}
