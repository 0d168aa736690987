// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"chatdb/cli/internal/logging"
)

// Classifier maps free text onto a Descriptor using the model.
type Classifier struct {
	oracle Completer
	logger *slog.Logger
}

// NewClassifier returns a Classifier. A nil logger discards failure reasons.
func NewClassifier(oracle Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Classifier{oracle: oracle, logger: logger}
}

type classification struct {
	Command string `json:"command"`
	Target  any    `json:"target"`
}

// Classify never fails. Oracle errors, unparsable replies and commands outside
// the recognized set all yield Unknown; the reason is logged at WARN.
func (c *Classifier) Classify(ctx context.Context, input string) Descriptor {
	return c.ClassifyWith(ctx, c.logger, input)
}

// ClassifyWith is Classify with a per-turn logger.
func (c *Classifier) ClassifyWith(ctx context.Context, logger *slog.Logger, input string) Descriptor {
	reply, err := c.oracle.Complete(ctx, BuildClassifyPrompt(input))
	if err != nil {
		logger.Warn("classification request failed", slog.String("error", logging.Mask(err.Error())))
		return Unknown
	}

	d, ok := ParseClassification(reply)
	if !ok {
		logger.Warn("could not parse classification reply", slog.String("reply", logging.Truncate(reply, 200)))
		return Unknown
	}
	logger.Debug("classified request", slog.String("command", string(d.Command)), slog.String("target", d.Target))
	return d
}

// ParseClassification decodes a {"command","target"} reply, tolerating code
// fences and prose around the object.
func ParseClassification(reply string) (Descriptor, bool) {
	text := strings.TrimSpace(reply)
	if strings.Contains(text, "```") {
		text = ExtractCodeBlock(text)
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var raw classification
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Unknown, false
	}

	cmd := Command(strings.ToLower(strings.TrimSpace(raw.Command)))
	if !cmd.Known() {
		return Unknown, cmd == CommandUnknown
	}

	target, _ := raw.Target.(string)
	return Descriptor{Command: cmd, Target: strings.TrimSpace(target)}, true
}
