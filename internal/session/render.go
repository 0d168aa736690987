// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"fmt"
	"strings"

	"chatdb/cli/internal/assistant"

	"github.com/pterm/pterm"
)

// printResult shows rows as a table, documents one after another, and write
// summaries as plain lines.
func (s *Session) printResult(r assistant.Result) {
	if r.Empty() {
		if len(r.Columns) > 0 {
			s.println(RenderTable(r.Columns, nil))
		}
		s.println("Query executed successfully but returned no results.")
		return
	}

	if len(r.Rows) > 0 {
		s.println(RenderTable(r.Columns, r.Rows))
		s.printf("(%d row(s))\n", len(r.Rows))
	}
	if len(r.Documents) > 0 {
		s.println(strings.Join(r.Documents, "\n"))
		s.printf("(%d document(s))\n", len(r.Documents))
	}
	for _, line := range r.Summary {
		s.println(line)
	}
}

// RenderTable renders rows under a header of column names.
func RenderTable(columns []string, rows [][]any) string {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, columns)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		data = append(data, cells)
	}
	text, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		// Fall back to tab separated output.
		lines := make([]string, len(data))
		for i, row := range data {
			lines[i] = strings.Join(row, "\t")
		}
		return strings.Join(lines, "\n")
	}
	return text
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
