// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// DetectDBType detects the database type from a DSN string
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DBTypePostgreSQL
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return DBTypeMongoDB
	case strings.HasPrefix(lower, "mysql://"):
		return DBTypeMySQL
	}
	return DBTypeUnknown
}

// resolverFor picks the resolver for dsn or explains why there is none.
func resolverFor(dsn string) (Resolver, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	switch DetectDBType(dsn) {
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver(), nil
	case DBTypeMongoDB:
		return NewMongoDBResolver(), nil
	case DBTypeMySQL:
		return nil, NewParseError(dsn, "MySQL is not supported", "load your data into PostgreSQL with 'chatdb import sql'")
	default:
		return nil, NewParseError(dsn, "unknown database type", "use postgres://, mongodb:// or mongodb+srv://")
	}
}

// Parse parses a DSN string and returns normalized connection string
// This is the main entry point for DSN parsing
func Parse(dsn string) (string, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return "", err
	}

	info, err := resolver.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return "", err
	}

	return resolver.Normalize(info)
}

// ParseInfo parses a DSN string and returns detailed DSN info
// Useful for inspecting connection details
func ParseInfo(dsn string) (*DSNInfo, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return nil, err
	}
	return resolver.Parse(strings.TrimSpace(dsn))
}

// Validate validates a DSN string without normalizing it
func Validate(dsn string) error {
	_, err := ParseInfo(dsn)
	return err
}

// Expect parses dsn and fails unless it is of type want.
func Expect(dsn string, want DBType) (string, error) {
	if got := DetectDBType(dsn); got != want && strings.TrimSpace(dsn) != "" {
		return "", NewParseError(dsn, "expected a "+string(want)+" connection string, got "+string(got), "")
	}
	return Parse(dsn)
}

// WithDatabase returns dsn normalized and pointed at database name instead of
// the one it currently names.
func WithDatabase(dsn, name string) (string, error) {
	resolver, err := resolverFor(dsn)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", NewParseError(dsn, "empty database name", "")
	}
	info, err := resolver.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return "", err
	}
	info.Database = strings.TrimSpace(name)
	return resolver.Normalize(info)
}

// DatabaseName returns the database a DSN points at, or "" if it cannot be parsed.
func DatabaseName(dsn string) string {
	info, err := ParseInfo(dsn)
	if err != nil {
		return ""
	}
	return info.Database
}
