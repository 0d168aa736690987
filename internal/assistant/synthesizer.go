// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"strings"

	apperr "chatdb/cli/internal/errors"
)

// Synthesizer turns requests into query text and repairs failing queries. It
// does not validate what the model returns; that happens on execution.
type Synthesizer struct {
	oracle Completer
}

// NewSynthesizer returns a Synthesizer backed by oracle.
func NewSynthesizer(oracle Completer) *Synthesizer {
	return &Synthesizer{oracle: oracle}
}

// Synthesize asks for a query answering request in kind's dialect. schema may
// be empty when no database is selected.
func (s *Synthesizer) Synthesize(ctx context.Context, request string, kind BackendKind, schema string) (string, error) {
	return s.ask(ctx, BuildSynthesizePrompt(request, kind, schema), "query synthesis failed")
}

// Repair asks for a corrected version of query given the backend's error text.
func (s *Synthesizer) Repair(ctx context.Context, query, errText string, kind BackendKind) (string, error) {
	return s.ask(ctx, BuildRepairPrompt(query, errText, kind), "query repair failed")
}

func (s *Synthesizer) ask(ctx context.Context, prompt, failure string) (string, error) {
	reply, err := s.oracle.Complete(ctx, prompt)
	if err != nil {
		return "", apperr.Wrap(apperr.OracleFailed, failure, err)
	}
	query := ExtractCodeBlock(reply)
	if query == "" {
		return "", apperr.New(apperr.OracleFailed, failure+": the model returned no query")
	}
	return query, nil
}

// languageTags are first lines of a fenced block that name its language.
var languageTags = map[string]bool{
	"sql": true, "postgresql": true, "postgres": true, "psql": true, "pgsql": true,
	"json": true, "javascript": true, "js": true, "python": true, "py": true,
	"mongodb": true, "mongo": true, "mongosh": true, "shell": true, "bash": true,
	"text": true, "plaintext": true,
}

// ExtractCodeBlock returns the contents of the first fenced block in reply,
// without a leading language tag line. A reply with no fence is returned trimmed.
func ExtractCodeBlock(reply string) string {
	text := strings.TrimSpace(reply)
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}

	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if first := strings.TrimSpace(body[:nl]); first == "" || languageTags[strings.ToLower(first)] {
			body = body[nl+1:]
		}
	} else if languageTags[strings.ToLower(strings.TrimSpace(body))] {
		body = ""
	}
	return strings.TrimSpace(body)
}
