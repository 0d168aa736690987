// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package importer loads a directory of CSV files into PostgreSQL (one table
// per file, replacing existing tables) or MongoDB (one collection per file).
// Column types are inferred from the data so numbers and booleans arrive typed.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ColumnType is the inferred type of a CSV column, named by its PostgreSQL type.
type ColumnType string

const (
	TypeBigInt  ColumnType = "BIGINT"
	TypeDouble  ColumnType = "DOUBLE PRECISION"
	TypeBoolean ColumnType = "BOOLEAN"
	TypeText    ColumnType = "TEXT"
)

// Table is one CSV file read into memory.
type Table struct {
	Name    string
	Columns []string
	Types   []ColumnType
	Rows    [][]string
}

// ReadDir returns the .csv files in dir, sorted by name.
func ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// TableName derives the table or collection name from a CSV path: the base
// name without extension, spaces replaced by underscores.
func TableName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
}

// Load reads the CSV file at path. The first record is the header.
func Load(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return Table{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	t.Name = TableName(path)
	return t, nil
}

// Read parses CSV from r and infers column types.
func Read(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, fmt.Errorf("missing header row")
	}
	if err != nil {
		return Table{}, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	return Table{Columns: header, Types: inferTypes(len(header), rows), Rows: rows}, nil
}

// inferTypes picks, per column, the narrowest type every non-empty cell fits:
// BIGINT, then DOUBLE PRECISION, then BOOLEAN, else TEXT.
func inferTypes(n int, rows [][]string) []ColumnType {
	types := make([]ColumnType, n)
	for col := 0; col < n; col++ {
		allInt, allFloat, allBool, seen := true, true, true, false
		for _, row := range rows {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				allFloat = false
			}
			if _, ok := parseBool(cell); !ok {
				allBool = false
			}
		}
		switch {
		case !seen:
			types[col] = TypeText
		case allInt:
			types[col] = TypeBigInt
		case allFloat:
			types[col] = TypeDouble
		case allBool:
			types[col] = TypeBoolean
		default:
			types[col] = TypeText
		}
	}
	return types
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Values converts row i to typed values. Empty cells are nil.
func (t Table) Values(i int) []any {
	row := t.Rows[i]
	out := make([]any, len(row))
	for col, raw := range row {
		out[col] = convert(strings.TrimSpace(raw), t.Types[col])
	}
	return out
}

func convert(cell string, typ ColumnType) any {
	if cell == "" {
		return nil
	}
	switch typ {
	case TypeBigInt:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case TypeDouble:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	case TypeBoolean:
		v, _ := parseBool(cell)
		return v
	}
	return cell
}
