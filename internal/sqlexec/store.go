// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec is the PostgreSQL adapter: it runs synthesized statements,
// answers schema questions from information_schema and lists databases.
//
// Statements go through database/sql with the pgx stdlib driver. Reads return
// column names and rows; writes autocommit and report the number
// of affected rows. Values are normalized for display (UUID bytes become
// canonical strings). Nothing is cached; every call hits the server.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/dsn"
	apperr "chatdb/cli/internal/errors"
	"chatdb/cli/internal/logging"
)

// Store is a connection to one PostgreSQL database. Selecting another database
// reconnects, since PostgreSQL has no USE statement.
type Store struct {
	db       *sql.DB
	dsn      string
	database string
	open     Opener
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithOpener replaces Open, e.g. with an opener returning sqlmock connections.
func WithOpener(open Opener) Option {
	return func(s *Store) { s.open = open }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Connect opens the database named by rawDSN.
func Connect(ctx context.Context, rawDSN string, opts ...Option) (*Store, error) {
	normalized, err := dsn.Expect(rawDSN, dsn.DBTypePostgreSQL)
	if err != nil {
		return nil, err
	}
	s := newStore(nil, normalized, opts...)
	db, err := s.open(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s.db = db
	return s, nil
}

// New wraps an already opened database; dsnStr names it and is used to derive
// DSNs for other databases.
func New(db *sql.DB, dsnStr string, opts ...Option) *Store {
	return newStore(db, dsnStr, opts...)
}

func newStore(db *sql.DB, dsnStr string, opts ...Option) *Store {
	s := &Store{
		db:       db,
		dsn:      dsnStr,
		database: dsn.DatabaseName(dsnStr),
		open:     Open,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind reports the relational backend.
func (s *Store) Kind() assistant.BackendKind { return assistant.BackendSQL }

// Database returns the database the store is connected to.
func (s *Store) Database() string { return s.database }

// DB exposes the underlying handle for the CSV importer.
func (s *Store) DB() *sql.DB { return s.db }

// Select reconnects to name. On failure the current connection is kept.
func (s *Store) Select(ctx context.Context, name string) error {
	if name == s.database && s.db != nil {
		return nil
	}
	target, err := dsn.WithDatabase(s.dsn, name)
	if err != nil {
		return apperr.Wrap(apperr.SelectionFailed, "invalid database name", err)
	}
	db, err := s.open(ctx, target)
	if err != nil {
		return apperr.Wrap(apperr.SelectionFailed, fmt.Sprintf("connect to database %q", name), err)
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	s.db, s.dsn, s.database = db, target, name
	s.logger.Debug("switched postgres database", slog.String("database", name))
	return nil
}

// ensure makes sure the store points at database before an inspection call.
func (s *Store) ensure(ctx context.Context, database string) error {
	if database == "" || database == s.database {
		return nil
	}
	return s.Select(ctx, database)
}

// Close releases the connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
