// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/logging"

	"github.com/google/uuid"
)

// readKeywords start statements that produce a result set.
var readKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"SHOW":    true,
	"EXPLAIN": true,
	"VALUES":  true,
	"TABLE":   true,
}

var (
	reReturning    = regexp.MustCompile(`(?i)\bRETURNING\b`)
	reLineComment  = regexp.MustCompile(`^--[^\n]*\n?`)
	reBlockComment = regexp.MustCompile(`^/\*(?s:.*?)\*/`)
)

// IsRead reports whether statement returns rows: it starts with a read keyword
// or has a RETURNING clause.
func IsRead(statement string) bool {
	kw := leadingKeyword(statement)
	if readKeywords[kw] {
		return true
	}
	return reReturning.MatchString(statement)
}

// leadingKeyword returns the first keyword of statement, upper-cased, skipping
// comments, whitespace and opening parentheses.
func leadingKeyword(statement string) string {
	s := strings.TrimSpace(statement)
	for {
		switch {
		case strings.HasPrefix(s, "--"):
			s = strings.TrimSpace(reLineComment.ReplaceAllString(s, ""))
		case strings.HasPrefix(s, "/*"):
			trimmed := reBlockComment.ReplaceAllString(s, "")
			if trimmed == s {
				return ""
			}
			s = strings.TrimSpace(trimmed)
		case strings.HasPrefix(s, "("):
			s = strings.TrimSpace(s[1:])
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}

// Execute runs statement verbatim as a single statement. Reads yield columns
// and rows; everything else autocommits and yields an affected-rows summary.
// No transaction is opened, so statements PostgreSQL refuses inside one
// (CREATE DATABASE, VACUUM, CREATE INDEX CONCURRENTLY) work as typed.
func (s *Store) Execute(ctx context.Context, statement string) (assistant.Result, error) {
	if s.db == nil {
		return assistant.Result{}, fmt.Errorf("not connected to PostgreSQL")
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return assistant.Result{}, fmt.Errorf("empty statement")
	}

	s.logger.Debug("executing statement", slog.String("sql", logging.Truncate(statement, 200)))
	if IsRead(statement) {
		return s.query(ctx, statement)
	}
	return s.exec(ctx, statement)
}

func (s *Store) query(ctx context.Context, statement string) (assistant.Result, error) {
	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return assistant.Result{}, err
	}
	defer rows.Close()

	cols, data, err := collect(rows)
	if err != nil {
		return assistant.Result{}, err
	}
	return assistant.Result{Columns: cols, Rows: data}, nil
}

func (s *Store) exec(ctx context.Context, statement string) (assistant.Result, error) {
	res, err := s.db.ExecContext(ctx, statement)
	if err != nil {
		return assistant.Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}

	s.logger.Debug("statement executed", slog.Int64("rows_affected", affected))
	return assistant.Result{Summary: []string{fmt.Sprintf("%d row(s) affected", affected)}}, nil
}

// collect drains rows into column names and normalized values.
func collect(rows *sql.Rows) ([]string, [][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

// normalizeValue converts driver values into something printable and
// JSON-serializable.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case []byte:
		// Handle UUID and other byte arrays
		if len(v) == 16 && !utf8.Valid(v) {
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String()
			}
		}
		if utf8.Valid(v) {
			return string(v)
		}
		return fmt.Sprintf("\\x%x", v)
	case [16]byte:
		return uuid.UUID(v).String()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return v
	}
}
