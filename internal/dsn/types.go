// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package dsn parses, validates and normalizes connection strings for the two
// backends chatdb talks to: PostgreSQL DSNs and MongoDB URIs.
package dsn

import "fmt"

// DBType represents the type of database
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeMongoDB    DBType = "mongodb"
	DBTypeMySQL      DBType = "mysql"
	DBTypeUnknown    DBType = "unknown"
)

// DSNInfo contains parsed information from a DSN string
type DSNInfo struct {
	Type     DBType
	Scheme   string
	Host     string // host[:port][,host[:port]...] for MongoDB replica sets
	Port     string
	User     string
	Password string
	Database string
	Params   map[string]string
	Original string
}

// String returns the DSN as it was provided
func (d *DSNInfo) String() string {
	return d.Original
}

// Endpoint returns host:port, or the raw host list for replica sets and
// SRV records, for use in user-facing messages.
func (d *DSNInfo) Endpoint() string {
	if d.Port == "" {
		return d.Host
	}
	return d.Host + ":" + d.Port
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*DSNInfo, error)

	// Normalize converts DSN info to a properly formatted connection string
	Normalize(info *DSNInfo) (string, error)
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}
