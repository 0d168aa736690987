// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package assistant holds the request loop that sits between the user and a
// database: classify a free-text request into a command, synthesize a query
// for the active backend, run it, and ask the model to repair it when the
// backend rejects it.
//
// The package owns the ports it depends on. Completer is the language model,
// Backend runs query text, Inspector answers schema questions. The concrete
// adapters live in internal/oracle, internal/sqlexec and internal/docstore.
package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Command is one of the closed set of actions a user request can map to.
type Command string

const (
	CommandList          Command = "list"
	CommandSwitch        Command = "switch"
	CommandSelect        Command = "select"
	CommandQuery         Command = "query"
	CommandSchemaTables  Command = "schema_tables"
	CommandSchemaColumns Command = "schema_columns"
	CommandSchemaSample  Command = "schema_sample"
	CommandSchema        Command = "schema"
	CommandExit          Command = "exit"
	CommandUnknown       Command = "unknown"
)

// Commands lists the recognized commands in the order they are described to the model.
var Commands = []Command{
	CommandList,
	CommandSwitch,
	CommandSelect,
	CommandQuery,
	CommandSchemaTables,
	CommandSchemaColumns,
	CommandSchemaSample,
	CommandSchema,
	CommandExit,
}

// Known reports whether c is one of the nine recognized commands.
func (c Command) Known() bool {
	for _, k := range Commands {
		if c == k {
			return true
		}
	}
	return false
}

// Descriptor is the classification of one user turn.
type Descriptor struct {
	Command Command
	Target  string
}

// Unknown is the descriptor every unrecognized request normalizes to.
var Unknown = Descriptor{Command: CommandUnknown}

// BackendKind selects the query dialect and adapter.
type BackendKind string

const (
	BackendSQL   BackendKind = "sql"
	BackendMongo BackendKind = "mongodb"
)

// ParseBackendKind accepts the names users (and the model) commonly use for
// either backend.
func ParseBackendKind(s string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sql", "postgres", "postgresql", "mysql", "relational":
		return BackendSQL, nil
	case "mongo", "mongodb", "document", "nosql":
		return BackendMongo, nil
	}
	return "", fmt.Errorf("unknown backend %q (want sql or mongodb)", s)
}

// Dialect is the human name of the query language, used in prompts and messages.
func (k BackendKind) Dialect() string {
	if k == BackendMongo {
		return "MongoDB"
	}
	return "PostgreSQL"
}

// Containers is what the backend calls its tables.
func (k BackendKind) Containers() string {
	if k == BackendMongo {
		return "Collections"
	}
	return "Tables"
}

// Container is the singular of Containers.
func (k BackendKind) Container() string {
	if k == BackendMongo {
		return "Collection"
	}
	return "Table"
}

// Column describes one table column or document field. Document backends only
// fill Name.
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
}

// Result is what a successful query produced. Relational reads fill Columns and
// Rows, document reads fill Documents (relaxed Extended JSON), and writes of
// either kind fill Summary.
type Result struct {
	Columns   []string
	Rows      [][]any
	Documents []string
	Summary   []string
}

// Empty reports whether the query produced nothing to show.
func (r Result) Empty() bool {
	return len(r.Rows) == 0 && len(r.Documents) == 0 && len(r.Summary) == 0
}

// Completer is a text-completion oracle.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Backend runs query text against the active database.
type Backend interface {
	Kind() BackendKind
	Execute(ctx context.Context, query string) (Result, error)
}

// Inspector answers schema questions for one backend.
type Inspector interface {
	ListTables(ctx context.Context, database string) ([]string, error)
	DescribeColumns(ctx context.Context, database, table string) ([]Column, error)
	// SampleRow returns one row rendered as JSON, or ok=false when the table is empty.
	SampleRow(ctx context.Context, database, table string) (row string, ok bool, err error)
}
