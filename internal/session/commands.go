// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"chatdb/cli/internal/assistant"
	apperr "chatdb/cli/internal/errors"
	"chatdb/cli/internal/logging"
)

// turn is one handled line: the session plus the turn's context and logger.
type turn struct {
	*Session
	ctx    context.Context
	logger *slog.Logger
	input  string
}

// backend returns the active backend, printing guidance when it is missing.
func (t turn) backend() (Backend, bool) {
	b, ok := t.backends[t.state.Backend]
	if !ok {
		t.printf("❌ %s is not configured. Run 'chatdb connect %s' or set %s.\n",
			t.state.Backend.Dialect(), t.state.Backend, configEnv(t.state.Backend))
		return nil, false
	}
	return b, true
}

func configEnv(kind assistant.BackendKind) string {
	if kind == assistant.BackendMongo {
		return "CHATDB_MONGO_URI"
	}
	return "CHATDB_SQL_DSN"
}

func (t turn) list() {
	b, ok := t.backend()
	if !ok {
		return
	}
	names, err := b.ListDatabases(t.ctx)
	if err != nil {
		t.logger.Warn("listing databases failed", slog.String("error", logging.Mask(err.Error())))
		t.printf("❌ Error listing %s databases: %s\n", b.Kind().Dialect(), logging.Mask(err.Error()))
		return
	}
	t.printf("Available %s databases:\n", b.Kind().Dialect())
	if len(names) == 0 {
		t.println("(none)")
	}
	for _, name := range names {
		t.println("- " + name)
	}
}

func (t turn) switchBackend(target string) {
	kind, err := assistant.ParseBackendKind(target)
	if err != nil {
		t.println("Unknown DBMS to switch to.")
		return
	}
	t.state = State{Backend: kind}
	t.logger.Info("switched backend", slog.String("backend", string(kind)))
	t.printf("Switched to %s.\n", kind.Dialect())
	if _, ok := t.backends[kind]; !ok {
		t.printf("⚠️  %s is not configured yet. Run 'chatdb connect %s'.\n", kind.Dialect(), kind)
	}
}

func (t turn) selectDatabase(target string) {
	name := strings.TrimSpace(target)
	if name == "" {
		t.println("Please specify a database name.")
		return
	}
	if t.use(name) {
		t.printf("Selected database: %s\n", name)
	}
}

// use selects name on the active backend and records it. It prints the
// failure and reports false when the database cannot be selected.
func (t turn) use(name string) bool {
	b, ok := t.backend()
	if !ok {
		return false
	}
	if err := b.Select(t.ctx, name); err != nil {
		t.logger.Warn("select failed",
			slog.String("database", name),
			slog.String("error", logging.Mask(err.Error())))
		t.println("❌ " + userMessage(err))
		return false
	}
	t.state.Database = name
	return true
}

// requireDatabase makes sure a database is selected. A non-empty fallback is
// selected automatically, so "show the schema of shop" works in one step.
func (t turn) requireDatabase(fallback string) bool {
	if t.state.Database != "" {
		return true
	}
	if name := strings.TrimSpace(fallback); name != "" {
		if t.use(name) {
			t.printf("Automatically switched to database '%s'.\n", name)
			return true
		}
		return false
	}
	t.println("Please select a database first using the 'select' command.")
	return false
}

func (t turn) query(request string) {
	b, ok := t.backend()
	if !ok {
		return
	}
	if !t.requireDatabase("") {
		return
	}
	if strings.TrimSpace(request) == "" {
		request = t.input
	}
	kind := b.Kind()

	schema := assistant.RenderSchema(t.ctx, kind, b, t.state.Database)

	stop := t.spin("Generating query...")
	query, err := t.synth.Synthesize(t.ctx, request, kind, schema)
	stop()
	if err != nil {
		t.oracleFailure(err)
		return
	}
	t.printf("Generated %s Query:\n%s\n", queryLabel(kind), query)

	runner := assistant.NewRunner(t.synth, t.logger)
	runner.OnFailure = func(a assistant.Attempt) {
		t.printf("Query error (attempt %d/%d): %s\n", a.Number, assistant.MaxAttempts, logging.Mask(apperr.Cause(a.Err)))
		if a.Number < assistant.MaxAttempts {
			t.println("Attempting to fix the query...")
		}
	}
	runner.OnRetry = func(_ assistant.Attempt, repaired string) {
		t.printf("Fixed query:\n%s\n", repaired)
	}

	outcome, err := runner.Run(t.ctx, query, b)
	switch {
	case err == nil:
		t.printResult(outcome.Result)
	case apperr.KindOf(err) == apperr.QueryFailed:
		t.printf("❌ Query failed after %d attempts: %s\n", assistant.MaxAttempts, logging.Mask(apperr.Cause(err)))
	default:
		t.oracleFailure(err)
	}
}

func queryLabel(kind assistant.BackendKind) string {
	if kind == assistant.BackendMongo {
		return "MongoDB"
	}
	return "SQL"
}

func (t turn) oracleFailure(err error) {
	t.logger.Error("language model request failed", slog.String("error", logging.Mask(err.Error())))
	t.println(logging.FormatOracleError(apperr.Cause(err)))
}

func (t turn) schema(target string) {
	b, ok := t.backend()
	if !ok || !t.requireDatabase(target) {
		return
	}
	t.println(assistant.RenderSchema(t.ctx, b.Kind(), b, t.state.Database))
}

func (t turn) schemaTables(target string) {
	b, ok := t.backend()
	if !ok || !t.requireDatabase(target) {
		return
	}
	t.println(assistant.RenderTables(t.ctx, b.Kind(), b, t.state.Database))
}

func (t turn) schemaColumns(target string) {
	b, ok := t.backend()
	if !ok || !t.requireTable(target) || !t.requireDatabase("") {
		return
	}
	t.println(assistant.RenderColumns(t.ctx, b.Kind(), b, t.state.Database, strings.TrimSpace(target)))
}

func (t turn) schemaSample(target string) {
	b, ok := t.backend()
	if !ok || !t.requireTable(target) || !t.requireDatabase("") {
		return
	}
	t.println(assistant.RenderSample(t.ctx, b.Kind(), b, t.state.Database, strings.TrimSpace(target)))
}

func (t turn) requireTable(target string) bool {
	if strings.TrimSpace(target) == "" {
		t.println("Please specify a table/collection name.")
		return false
	}
	return true
}

// userMessage renders err for the user: the message and, when there is one,
// the underlying cause.
func userMessage(err error) string {
	var e *apperr.E
	if stderrors.As(err, &e) {
		if e.Err != nil {
			return logging.Mask(fmt.Sprintf("%s: %s", e.Message, apperr.Cause(e.Err)))
		}
		return logging.Mask(e.Message)
	}
	return logging.Mask(err.Error())
}
