// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"chatdb/cli/internal/docstore"
	"chatdb/cli/internal/logging"
)

// Options controls an import run. Progress and Logger may be nil.
type Options struct {
	BatchSize int
	Progress  *Progress
	Out       io.Writer
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// ImportSQL loads each CSV file into its own table through conn, replacing
// existing tables. A failing file is reported and the rest still run.
func ImportSQL(ctx context.Context, conn PgConn, files []string, opts Options) error {
	opts = opts.withDefaults()
	return each(files, opts, func(t Table) (string, int, error) {
		n, err := LoadTable(ctx, conn, t)
		if err != nil {
			return "", 0, err
		}
		return fmt.Sprintf("Table '%s' created successfully with %d records.", t.Name, n), int(n), nil
	})
}

// ImportMongo appends each CSV file to the collection of the same name in db.
func ImportMongo(ctx context.Context, db docstore.Database, files []string, opts Options) error {
	opts = opts.withDefaults()
	return each(files, opts, func(t Table) (string, int, error) {
		if len(t.Rows) == 0 {
			return fmt.Sprintf("No records to import for %s", t.Name), 0, nil
		}
		n, err := LoadCollection(ctx, db.Collection(t.Name), t, opts.BatchSize)
		if err != nil {
			return "", n, err
		}
		return fmt.Sprintf("Imported %d records into %s collection", n, t.Name), n, nil
	})
}

// each loads every file and hands it to load, collecting messages until all
// files ran. Messages are written once the run is over so they do not
// interleave with a live progress display.
func each(files []string, opts Options, load func(Table) (string, int, error)) error {
	var messages []string
	failed := 0
	for _, path := range files {
		name := TableName(path)
		opts.Progress.Start(name)

		t, err := Load(path)
		if err == nil {
			var msg string
			var n int
			msg, n, err = load(t)
			if err == nil {
				opts.Progress.Complete(name, n)
				opts.Logger.Debug("imported file", slog.String("table", name), slog.Int("records", n))
				messages = append(messages, msg)
				continue
			}
		}

		failed++
		reason := logging.Mask(err.Error())
		opts.Progress.Fail(name, reason)
		opts.Logger.Warn("import failed", slog.String("table", name), slog.String("error", reason))
		messages = append(messages, fmt.Sprintf("❌ %s: %s", name, reason))
	}

	for _, m := range messages {
		fmt.Fprintln(opts.Out, m)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to import", failed, len(files))
	}
	return nil
}
