// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"fmt"
	"strings"
)

// RenderSchema builds the schema snapshot handed to the synthesizer and shown
// by the schema command: every table with its columns and one sample row.
// Backend errors become the returned text; nothing is cached.
func RenderSchema(ctx context.Context, kind BackendKind, insp Inspector, database string) string {
	text, err := renderSchema(ctx, kind, insp, database)
	if err != nil {
		return fmt.Sprintf("Error getting %s schema: %s", kind.Dialect(), err)
	}
	return text
}

func renderSchema(ctx context.Context, kind BackendKind, insp Inspector, database string) (string, error) {
	tables, err := insp.ListTables(ctx, database)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n%s:\n", database, kind.Containers())
	for _, table := range tables {
		columns, err := insp.DescribeColumns(ctx, database, table)
		if err != nil {
			return "", err
		}
		sample, ok, err := insp.SampleRow(ctx, database, table)
		if err != nil {
			return "", err
		}

		if kind == BackendMongo && len(columns) == 0 {
			fmt.Fprintf(&b, "\n%s: %s (empty)\n", kind.Container(), table)
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", kind.Container(), table)
		fmt.Fprintf(&b, "%s:\n", fieldsLabel(kind))
		for _, c := range columns {
			b.WriteString("  ")
			b.WriteString(formatColumn(kind, c))
			b.WriteString("\n")
		}
		if ok {
			fmt.Fprintf(&b, "Sample %s:\n%s\n", sampleNoun(kind), indent(sample, "  "))
		}
	}
	return b.String(), nil
}

// RenderTables lists the tables or collections of database.
func RenderTables(ctx context.Context, kind BackendKind, insp Inspector, database string) string {
	tables, err := insp.ListTables(ctx, database)
	if err != nil {
		return fmt.Sprintf("Error getting %s %s: %s", kind.Dialect(), strings.ToLower(kind.Containers()), err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n%s:", database, kind.Containers())
	if len(tables) == 0 {
		b.WriteString("\n(none)")
	}
	for _, t := range tables {
		b.WriteString("\n- ")
		b.WriteString(t)
	}
	return b.String()
}

// RenderColumns describes one table's columns or one collection's fields.
func RenderColumns(ctx context.Context, kind BackendKind, insp Inspector, database, table string) string {
	columns, err := insp.DescribeColumns(ctx, database, table)
	if err != nil {
		return fmt.Sprintf("Error getting %s %s: %s", kind.Dialect(), strings.ToLower(fieldsLabel(kind)), err)
	}
	if len(columns) == 0 {
		if kind == BackendMongo {
			return fmt.Sprintf("Collection %s is empty", table)
		}
		return fmt.Sprintf("Table %s does not exist or has no columns", table)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n%s:", kind.Container(), table, fieldsLabel(kind))
	for _, c := range columns {
		b.WriteString("\n")
		b.WriteString(formatColumn(kind, c))
	}
	return b.String()
}

// RenderSample shows one row of table.
func RenderSample(ctx context.Context, kind BackendKind, insp Inspector, database, table string) string {
	sample, ok, err := insp.SampleRow(ctx, database, table)
	if err != nil {
		return fmt.Sprintf("Error getting %s sample: %s", kind.Dialect(), err)
	}
	if !ok {
		return fmt.Sprintf("%s %s is empty", kind.Container(), table)
	}
	return fmt.Sprintf("%s: %s\nSample %s:\n%s", kind.Container(), table, sampleNoun(kind), sample)
}

func formatColumn(kind BackendKind, c Column) string {
	if kind == BackendMongo || c.Type == "" {
		return "- " + c.Name
	}
	s := fmt.Sprintf("- %s (%s)", c.Name, c.Type)
	if !c.Nullable {
		s += " NOT NULL"
	}
	if c.PrimaryKey {
		s += " PRIMARY KEY"
	}
	if c.AutoIncrement {
		s += " AUTO_INCREMENT"
	}
	return s
}

func fieldsLabel(kind BackendKind) string {
	if kind == BackendMongo {
		return "Attributes"
	}
	return "Columns"
}

func sampleNoun(kind BackendKind) string {
	if kind == BackendMongo {
		return "Document"
	}
	return "Row"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
