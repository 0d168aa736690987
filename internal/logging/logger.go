// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
)

type ctxKey string

const turnIDKey ctxKey = "turn_id"

// NewLogger returns a slog.Logger rendered by pterm so log lines share the
// terminal styling of the rest of the CLI. level is one of debug, info, warn,
// error; unknown values fall back to info.
func NewLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	plog := pterm.DefaultLogger.WithLevel(ptermLevel(level)).WithWriter(w)
	return slog.New(pterm.NewSlogHandler(plog))
}

// Discard returns a logger that drops everything; handy for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptermLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}

// NewTurn tags ctx with a fresh turn id and returns a logger carrying it.
func NewTurn(ctx context.Context, logger *slog.Logger) (context.Context, *slog.Logger) {
	id := uuid.NewString()
	return context.WithValue(ctx, turnIDKey, id), logger.With(slog.String("turn_id", id))
}

// TurnIDFromContext returns the id set by NewTurn, or "".
func TurnIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(turnIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
