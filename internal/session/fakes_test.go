// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"chatdb/cli/internal/assistant"
	apperr "chatdb/cli/internal/errors"
)

// scriptedOracle replies in order and records prompts.
type scriptedOracle struct {
	replies []string
	prompts []string
}

func (o *scriptedOracle) Complete(_ context.Context, prompt string) (string, error) {
	i := len(o.prompts)
	o.prompts = append(o.prompts, prompt)
	if i < len(o.replies) {
		return o.replies[i], nil
	}
	return "", errors.New("scriptedOracle: no reply queued")
}

func classify(command, target string) string {
	return fmt.Sprintf(`{"command": %q, "target": %q}`, command, target)
}

// fakeBackend is an in-memory backend with a fixed set of databases.
type fakeBackend struct {
	kind      assistant.BackendKind
	databases []string
	current   string
	tables    []string
	errs      []error
	result    assistant.Result
	queries   []string
}

func (b *fakeBackend) Kind() assistant.BackendKind { return b.kind }
func (b *fakeBackend) Database() string            { return b.current }

func (b *fakeBackend) ListDatabases(context.Context) ([]string, error) {
	return b.databases, nil
}

func (b *fakeBackend) Select(_ context.Context, name string) error {
	if !slices.Contains(b.databases, name) {
		return apperr.New(apperr.SelectionFailed, fmt.Sprintf("Database '%s' not found", name))
	}
	b.current = name
	return nil
}

func (b *fakeBackend) Execute(_ context.Context, query string) (assistant.Result, error) {
	i := len(b.queries)
	b.queries = append(b.queries, query)
	if i < len(b.errs) && b.errs[i] != nil {
		return assistant.Result{}, b.errs[i]
	}
	return b.result, nil
}

func (b *fakeBackend) ListTables(context.Context, string) ([]string, error) {
	return b.tables, nil
}

func (b *fakeBackend) DescribeColumns(_ context.Context, _, table string) ([]assistant.Column, error) {
	return []assistant.Column{{Name: "id", Type: "integer", PrimaryKey: true}}, nil
}

func (b *fakeBackend) SampleRow(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

// lines feeds fixed input and then io.EOF.
type lines struct {
	input   []string
	prompts []string
}

func (l *lines) Readline() (string, error) {
	if len(l.input) == 0 {
		return "", io.EOF
	}
	line := l.input[0]
	l.input = l.input[1:]
	return line, nil
}

func (l *lines) SetPrompt(p string) { l.prompts = append(l.prompts, p) }
